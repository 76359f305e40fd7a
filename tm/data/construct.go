/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import "fmt"

/*
ID is the stable internal id of a construct. IDs are never reused.
*/
type ID uint64

/*
NoID is the id value which references no construct
*/
const NoID ID = 0

/*
ConstructKind is the kind of a construct.
*/
type ConstructKind int

/*
Known construct kinds
*/
const (
	KindTopicMap ConstructKind = iota + 1
	KindTopic
	KindAssociation
	KindRole
	KindName
	KindOccurrence
	KindVariant
)

var constructKindNames = map[ConstructKind]string{
	KindTopicMap:    "TopicMap",
	KindTopic:       "Topic",
	KindAssociation: "Association",
	KindRole:        "Role",
	KindName:        "Name",
	KindOccurrence:  "Occurrence",
	KindVariant:     "Variant",
}

/*
String returns a string representation of this construct kind.
*/
func (k ConstructKind) String() string {
	if n, ok := constructKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ConstructKind(%d)", int(k))
}

/*
IsTyped returns if constructs of this kind have a single type.
*/
func (k ConstructKind) IsTyped() bool {
	return k == KindAssociation || k == KindRole || k == KindName || k == KindOccurrence
}

/*
IsScoped returns if constructs of this kind have a scope.
*/
func (k ConstructKind) IsScoped() bool {
	return k == KindAssociation || k == KindName || k == KindOccurrence || k == KindVariant
}

/*
IsReifiable returns if constructs of this kind can be reified.
*/
func (k ConstructKind) IsReifiable() bool {
	return k != KindTopic && k != 0
}

/*
IsCharacteristic returns if constructs of this kind carry a literal value.
*/
func (k ConstructKind) IsCharacteristic() bool {
	return k == KindName || k == KindOccurrence || k == KindVariant
}

/*
IdentityKind is the kind of an identifier.
*/
type IdentityKind int

/*
Known identity kinds
*/
const (
	ItemIdentifier IdentityKind = iota + 1
	SubjectIdentifier
	SubjectLocator
)

/*
IdentityKinds lists all identity kinds.
*/
var IdentityKinds = []IdentityKind{ItemIdentifier, SubjectIdentifier, SubjectLocator}

/*
String returns a string representation of this identity kind.
*/
func (k IdentityKind) String() string {
	switch k {
	case ItemIdentifier:
		return "ItemIdentifier"
	case SubjectIdentifier:
		return "SubjectIdentifier"
	case SubjectLocator:
		return "SubjectLocator"
	}
	return fmt.Sprintf("IdentityKind(%d)", int(k))
}
