/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package tm contains the main API to the topic map store.

MemoryStore API

The main API is provided by a MemoryStore object which can be created with the
NewMemoryStore() constructor function. All constructs of a topic map are
addressed by their ID. The store provides a narrow uniform interface:

	Create(context, param, args...)
	Read(context, param, args...)
	Modify(context, param, args...)
	Remove(context, cascade)
	RemoveParam(context, param, args...)

The param value selects the operation. Every mutation is atomic: it either
succeeds completely or leaves the store unchanged.

Merging

Two topics with a common identity are merged automatically. The construct
which is operated on always survives. The ID of an absorbed topic stays valid
and refers to the surviving topic from then on.

Transactions

A transaction is an isolated view on a store which can be modified without
changing the store. All changes are buffered and replayed on the store when
the transaction is committed. A commit fails with a TransactionConflict if the
transaction changed identities which were changed in the store since the
transaction was opened or if it changed constructs which were removed from
the store in the meantime.

Revisions

Every accepted mutation is recorded in a revision of the store's journal. A
revision holds an ordered changeset. Removed or merged constructs are
recorded as frozen snapshots.

Asynchronous writes

Operations can be submitted to a worker pool. Commit() blocks until all
submitted operations have been applied.

Change listeners

Listeners are called synchronously for every recorded change in mutation
order after a mutation has succeeded.
*/
package tm

import (
	"fmt"

	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
TopicMapID is the ID of the topic map construct of every store
*/
const TopicMapID data.ID = 1

/*
Param selects the operation of a uniform store call.
*/
type Param int

/*
Known operation params
*/
const (
	ParamItemIdentifier Param = iota + 1
	ParamSubjectIdentifier
	ParamSubjectLocator
	ParamType
	ParamSupertype
	ParamTopic
	ParamAssociation
	ParamRole
	ParamName
	ParamOccurrence
	ParamVariant
	ParamScope
	ParamTheme
	ParamValue
	ParamDatatype
	ParamPlayer
	ParamReification
	ParamReified
	ParamParent
	ParamKind
	ParamBestLabel
	ParamBestIdentifier
	ParamRoleType
	ParamTopicMap
)

var paramNames = map[Param]string{
	ParamItemIdentifier:    "ItemIdentifier",
	ParamSubjectIdentifier: "SubjectIdentifier",
	ParamSubjectLocator:    "SubjectLocator",
	ParamType:              "Type",
	ParamSupertype:         "Supertype",
	ParamTopic:             "Topic",
	ParamAssociation:       "Association",
	ParamRole:              "Role",
	ParamName:              "Name",
	ParamOccurrence:        "Occurrence",
	ParamVariant:           "Variant",
	ParamScope:             "Scope",
	ParamTheme:             "Theme",
	ParamValue:             "Value",
	ParamDatatype:          "Datatype",
	ParamPlayer:            "Player",
	ParamReification:       "Reification",
	ParamReified:           "Reified",
	ParamParent:            "Parent",
	ParamKind:              "Kind",
	ParamBestLabel:         "BestLabel",
	ParamBestIdentifier:    "BestIdentifier",
	ParamRoleType:          "RoleType",
	ParamTopicMap:          "TopicMap",
}

/*
String returns a string representation of this param.
*/
func (p Param) String() string {
	if n, ok := paramNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Param(%d)", int(p))
}

/*
identityKind returns the identity kind of an identity param.
*/
func (p Param) identityKind() (data.IdentityKind, bool) {
	switch p {
	case ParamItemIdentifier:
		return data.ItemIdentifier, true
	case ParamSubjectIdentifier:
		return data.SubjectIdentifier, true
	case ParamSubjectLocator:
		return data.SubjectLocator, true
	}
	return 0, false
}

/*
OpKind is the kind of a mutating operation.
*/
type OpKind int

/*
Known operation kinds
*/
const (
	OpCreate OpKind = iota + 1
	OpModify
	OpRemove
	OpRemoveParam
	OpRemoveDuplicates
)

var opKindNames = map[OpKind]string{
	OpCreate:           "create",
	OpModify:           "modify",
	OpRemove:           "remove",
	OpRemoveParam:      "removeparam",
	OpRemoveDuplicates: "removeduplicates",
}

/*
String returns a string representation of this operation kind.
*/
func (k OpKind) String() string {
	if n, ok := opKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

/*
Operation is a single mutating store operation. Operations are used for
asynchronous writes and are recorded by transactions.
*/
type Operation struct {
	Kind    OpKind        // Kind of the operation
	Context data.ID       // Construct which is operated on
	Param   Param         // Operation param (not used by remove operations)
	Args    []interface{} // Positional arguments
	Cascade bool          // Cascade flag of remove operations
}

/*
String returns a string representation of this operation.
*/
func (op *Operation) String() string {
	if op.Kind == OpRemove {
		return fmt.Sprintf("%v #%v cascade:%v", op.Kind, op.Context, op.Cascade)
	}
	return fmt.Sprintf("%v #%v %v %v", op.Kind, op.Context, op.Param, op.Args)
}

/*
Store is a topic map store. Every backend implements this contract. All
mutations are atomic: a failing operation leaves the store unchanged.
*/
type Store interface {

	/*
	   Create creates a new construct in a given context and returns its id.
	   An existing construct is returned if the arguments identify one.
	*/
	Create(ctx data.ID, param Param, args ...interface{}) (data.ID, error)

	/*
	   Read reads a property of a construct.
	*/
	Read(ctx data.ID, param Param, args ...interface{}) (interface{}, error)

	/*
	   Modify modifies a property of a construct.
	*/
	Modify(ctx data.ID, param Param, args ...interface{}) error

	/*
	   Remove removes a construct. Dependents are removed as well if cascade
	   is set.
	*/
	Remove(ctx data.ID, cascade bool) error

	/*
	   RemoveParam removes a single property value of a construct.
	*/
	RemoveParam(ctx data.ID, param Param, args ...interface{}) error

	/*
	   RemoveDuplicates removes all duplicate constructs.
	*/
	RemoveDuplicates() error

	/*
	   Clear removes all topics and associations.
	*/
	Clear() error

	/*
	   Commit blocks until all pending writes have been applied.
	*/
	Commit() error

	/*
	   EnableRevisionManagement switches the revision journal on or off.
	*/
	EnableRevisionManagement(enable bool)

	/*
	   IsRevisionManagementEnabled returns if the revision journal is on.
	*/
	IsRevisionManagementEnabled() bool

	/*
	   AddListener adds a change listener.
	*/
	AddListener(l ChangeListener)

	/*
	   Index returns an index of the store.
	*/
	Index(kind IndexKind) (Index, error)
}

/*
ChangeListener is notified of every recorded change.
*/
type ChangeListener interface {

	/*
	   OnChange is called for every change. The revision is 0 if revision
	   management is disabled.
	*/
	OnChange(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{})
}

/*
ChangeListenerFunc is a function which can be used as a ChangeListener.
*/
type ChangeListenerFunc func(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{})

/*
OnChange calls the wrapped function.
*/
func (f ChangeListenerFunc) OnChange(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
	f(revision, event, notifier, newValue, oldValue)
}

/*
Revision metadata keys which are set by the store
*/
const (
	MetaTransaction = "transaction"
	MetaOperation   = "operation"
)
