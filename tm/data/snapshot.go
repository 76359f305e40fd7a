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

import (
	"fmt"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/errorutil"
)

/*
SnapshotData is the plain state of a construct at a point in time. Identities
are stored as normalized references.
*/
type SnapshotData struct {
	ID                 ID
	Kind               ConstructKind
	Parent             ID
	ItemIdentifiers    []string
	SubjectIdentifiers []string
	SubjectLocators    []string
	Types              []ID // Topic types
	Supertypes         []ID
	Names              []ID
	Occurrences        []ID
	Roles              []ID // Roles of an association or roles played by a topic
	Associations       []ID // Associations played by a topic
	Variants           []ID
	Type               ID
	Themes             []ID
	Value              string
	Datatype           string
	Player             ID
	Reifier            ID
	Reified            ID
}

/*
Snapshot is a frozen copy of a construct's state. A snapshot never changes
after it was created.
*/
type Snapshot struct {
	data *SnapshotData
}

/*
NewSnapshot freezes the given construct state. The given data is deep copied.
*/
func NewSnapshot(d *SnapshotData) *Snapshot {
	frozen := &SnapshotData{}

	errorutil.AssertOk(datautil.CopyObject(d, frozen))

	return &Snapshot{frozen}
}

/*
Data returns a copy of the frozen construct state.
*/
func (s *Snapshot) Data() *SnapshotData {
	ret := &SnapshotData{}

	errorutil.AssertOk(datautil.CopyObject(s.data, ret))

	return ret
}

/*
ID returns the id of the construct.
*/
func (s *Snapshot) ID() ID {
	return s.data.ID
}

/*
Kind returns the kind of the construct.
*/
func (s *Snapshot) Kind() ConstructKind {
	return s.data.Kind
}

/*
Parent returns the parent of the construct.
*/
func (s *Snapshot) Parent() ID {
	return s.data.Parent
}

/*
ItemIdentifiers returns the item identifiers of the construct.
*/
func (s *Snapshot) ItemIdentifiers() []Locator {
	return toLocators(s.data.ItemIdentifiers)
}

/*
SubjectIdentifiers returns the subject identifiers of the topic.
*/
func (s *Snapshot) SubjectIdentifiers() []Locator {
	return toLocators(s.data.SubjectIdentifiers)
}

/*
SubjectLocators returns the subject locators of the topic.
*/
func (s *Snapshot) SubjectLocators() []Locator {
	return toLocators(s.data.SubjectLocators)
}

/*
Types returns the types of the topic.
*/
func (s *Snapshot) Types() []ID {
	return copyIDs(s.data.Types)
}

/*
Supertypes returns the supertypes of the topic.
*/
func (s *Snapshot) Supertypes() []ID {
	return copyIDs(s.data.Supertypes)
}

/*
Names returns the names of the topic.
*/
func (s *Snapshot) Names() []ID {
	return copyIDs(s.data.Names)
}

/*
Occurrences returns the occurrences of the topic.
*/
func (s *Snapshot) Occurrences() []ID {
	return copyIDs(s.data.Occurrences)
}

/*
Roles returns the roles of an association or the roles played by a topic.
*/
func (s *Snapshot) Roles() []ID {
	return copyIDs(s.data.Roles)
}

/*
Associations returns the associations played by a topic.
*/
func (s *Snapshot) Associations() []ID {
	return copyIDs(s.data.Associations)
}

/*
Variants returns the variants of a name.
*/
func (s *Snapshot) Variants() []ID {
	return copyIDs(s.data.Variants)
}

/*
Type returns the type of a typed construct.
*/
func (s *Snapshot) Type() ID {
	return s.data.Type
}

/*
Themes returns the scope themes of a scoped construct.
*/
func (s *Snapshot) Themes() []ID {
	return copyIDs(s.data.Themes)
}

/*
Value returns the value of a characteristic.
*/
func (s *Snapshot) Value() string {
	return s.data.Value
}

/*
Datatype returns the datatype of an occurrence or variant.
*/
func (s *Snapshot) Datatype() string {
	return s.data.Datatype
}

/*
Player returns the player of a role.
*/
func (s *Snapshot) Player() ID {
	return s.data.Player
}

/*
Reifier returns the reifier of a reifiable construct.
*/
func (s *Snapshot) Reifier() ID {
	return s.data.Reifier
}

/*
Reified returns the construct reified by a topic.
*/
func (s *Snapshot) Reified() ID {
	return s.data.Reified
}

/*
String returns a string representation of this snapshot.
*/
func (s *Snapshot) String() string {
	return fmt.Sprintf("%v#%v", s.data.Kind, s.data.ID)
}

func copyIDs(ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}
	ret := make([]ID, len(ids))
	copy(ret, ids)
	return ret
}

func toLocators(refs []string) []Locator {
	var ret []Locator
	for _, r := range refs {
		ret = append(ret, MustLocator(r))
	}
	return ret
}
