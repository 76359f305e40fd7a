/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tm

import (
	"fmt"
	"sort"

	ecalutil "devt.de/krotik/ecal/util"
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
	"github.com/google/uuid"
)

/*
pendingChange is a change of the running batch which was not yet recorded.
*/
type pendingChange struct {
	kind     data.EventKind
	notifier data.ID
	newValue interface{}
	oldValue interface{}
}

/*
identityRetry is an identity which could not be moved to a surviving topic
before another merge was done.
*/
type identityRetry struct {
	topic data.ID
	kind  data.IdentityKind
	loc   data.Locator
}

/*
engine implements all topic map operations on a state. The same engine code
runs on a store and on a transaction overlay.
*/
type engine struct {
	st           state           // State which is operated on
	typeInstance bool            // Flag if topic types are also modeled as associations
	logger       ecalutil.Logger // Logger of the owning store
	labels       *labelCache     // Label cache (nil if labels are not cached)

	pending     []*pendingChange // Changes of the running batch
	allocated   []data.ID        // IDs allocated by the running batch
	preassigned []data.ID        // IDs which should be used for new constructs

	generated      []data.Locator // Item identifiers generated by the running batch
	preassignedIIs []data.Locator // Item identifiers which should be used for new topics

	mergeQueue [][2]data.ID    // Topic pairs which need to be merged
	retries    []identityRetry // Identities which need to be moved after merging
	merging    bool            // Flag if the merge queue is being processed

	merges     int // Number of merges in the running batch
	duplicates int // Number of removed duplicates in the running batch
}

/*
newEngine creates a new engine.
*/
func newEngine(st state, typeInstance bool, logger ecalutil.Logger) *engine {
	return &engine{st: st, typeInstance: typeInstance, logger: logger}
}

/*
batch runs a given function as one atomic batch. Returns the changes of the
batch. If the function fails all changes are reverted.
*/
func (e *engine) batch(f func() error) ([]*pendingChange, error) {
	e.st.begin()

	e.pending = nil
	e.allocated = nil
	e.generated = nil
	e.mergeQueue = nil
	e.retries = nil
	e.merges = 0
	e.duplicates = 0

	err := f()

	if err == nil && len(e.mergeQueue) > 0 {
		err = e.drainMerges()
	}

	if err != nil {
		e.st.rollback()
		e.pending = nil
		e.mergeQueue = nil
		e.retries = nil
		return nil, err
	}

	e.st.commit()

	ret := e.pending
	e.pending = nil

	return ret, nil
}

/*
apply applies a single mutating operation.
*/
func (e *engine) apply(op *Operation) (data.ID, error) {
	var err error
	var ret data.ID

	a := args(op.Args)

	switch op.Kind {
	case OpCreate:
		ret, err = e.create(op.Context, op.Param, a)
	case OpModify:
		err = e.modify(op.Context, op.Param, a)
	case OpRemove:
		err = e.remove(op.Context, op.Cascade)
	case OpRemoveParam:
		err = e.removeParam(op.Context, op.Param, a)
	case OpRemoveDuplicates:
		err = e.removeAllDuplicates()
	default:
		err = util.NewError(util.ErrUnsupportedOperation, "Unknown operation kind %v", op.Kind)
	}

	return ret, err
}

/*
newID returns an id for a new construct.
*/
func (e *engine) newID() data.ID {
	var id data.ID

	if len(e.preassigned) > 0 {
		id = e.preassigned[0]
		e.preassigned = e.preassigned[1:]
	} else {
		id = e.st.allocate()
	}

	e.allocated = append(e.allocated, id)

	return id
}

/*
newItemIdentifier returns a generated item identifier for a new topic.
*/
func (e *engine) newItemIdentifier() data.Locator {
	var loc data.Locator

	if len(e.preassignedIIs) > 0 {
		loc = e.preassignedIIs[0]
		e.preassignedIIs = e.preassignedIIs[1:]
	} else {
		loc = data.MustLocator("urn:uuid:" + uuid.New().String())
	}

	e.generated = append(e.generated, loc)

	return loc
}

/*
emit records a change of the running batch.
*/
func (e *engine) emit(kind data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
	e.pending = append(e.pending, &pendingChange{kind, notifier, newValue, oldValue})
}

// Construct access
// ================

/*
resolve returns the id of the construct which absorbed a given construct.
*/
func (e *engine) resolve(id data.ID) data.ID {
	for {
		to := e.st.alias(id)
		if to == data.NoID {
			return id
		}
		id = to
	}
}

/*
construct returns a live construct.
*/
func (e *engine) construct(id data.ID) (*construct, error) {
	if c := e.st.get(e.resolve(id)); c != nil {
		return c, nil
	}
	return nil, util.NewError(util.ErrUnknownConstruct, "No construct with id %v", id)
}

/*
constructOf returns a live construct of one of the given kinds.
*/
func (e *engine) constructOf(id data.ID, kinds ...data.ConstructKind) (*construct, error) {
	c, err := e.construct(id)
	if err != nil {
		return nil, err
	}

	for _, k := range kinds {
		if c.kind == k {
			return c, nil
		}
	}

	return nil, util.NewError(util.ErrInvalidData, "Construct %v is not a %v", c, kindNames(kinds))
}

/*
topic returns a live topic.
*/
func (e *engine) topic(id data.ID) (*construct, error) {
	return e.constructOf(id, data.KindTopic)
}

/*
topics returns the live ids of a list of topics.
*/
func (e *engine) topics(ids []data.ID) ([]data.ID, error) {
	var ret []data.ID

	for _, id := range ids {
		t, err := e.topic(id)
		if err != nil {
			return nil, err
		}
		ret, _ = appendID(ret, t.id)
	}

	return ret, nil
}

/*
mutable returns a construct which can be modified in the running batch.
*/
func (e *engine) mutable(id data.ID) *construct {
	return e.st.mutable(e.resolve(id))
}

/*
associationsPlayed returns the associations in which a topic plays a role.
*/
func (e *engine) associationsPlayed(t *construct) []data.ID {
	var ret []data.ID

	for _, r := range t.played {
		if rc := e.st.get(r); rc != nil {
			ret, _ = appendID(ret, rc.parent)
		}
	}

	sortIDs(ret)

	return ret
}

/*
snapshot freezes the current state of a construct.
*/
func (e *engine) snapshot(id data.ID) *data.Snapshot {
	c := e.st.get(e.resolve(id))
	if c == nil {
		return nil
	}

	ids := e.st.registry().Identities(c.id)

	d := &data.SnapshotData{
		ID:                 c.id,
		Kind:               c.kind,
		Parent:             c.parent,
		ItemIdentifiers:    data.LocatorStrings(ids.ItemIdentifiers),
		SubjectIdentifiers: data.LocatorStrings(ids.SubjectIdentifiers),
		SubjectLocators:    data.LocatorStrings(ids.SubjectLocators),
		Types:              c.types,
		Supertypes:         c.supertypes,
		Names:              c.names,
		Occurrences:        c.occurrences,
		Variants:           c.variants,
		Type:               c.typ,
		Themes:             c.scope.Themes(),
		Value:              c.value,
		Datatype:           c.datatype.Reference(),
		Player:             c.player,
		Reifier:            c.reifier,
		Reified:            c.reified,
	}

	if c.kind == data.KindTopic {
		d.Roles = c.played
		d.Associations = e.associationsPlayed(c)
	} else {
		d.Roles = c.roles
	}

	return data.NewSnapshot(d)
}

/*
snapshotValue returns a snapshot of a construct or nil if no construct is given.
*/
func (e *engine) snapshotValue(id data.ID) interface{} {
	if id == data.NoID {
		return nil
	}
	if s := e.snapshot(id); s != nil {
		return s
	}
	return nil
}

/*
psiTopic returns the topic with a given subject identifier. The topic is
created if it does not exist.
*/
func (e *engine) psiTopic(loc data.Locator) (data.ID, error) {
	return e.topicByIdentity(data.SubjectIdentifier, loc)
}

/*
lookupPSITopic returns the topic with a given subject identifier or NoID.
*/
func (e *engine) lookupPSITopic(loc data.Locator) data.ID {
	return e.resolve(e.st.registry().Resolve(data.SubjectIdentifier, loc))
}

// Argument handling
// =================

/*
args are positional operation arguments.
*/
type args []interface{}

func (a args) has(i int) bool {
	return i < len(a) && a[i] != nil
}

func (a args) missing(i int, what string) error {
	return util.NewError(util.ErrInvalidData, "Argument %v (%v) is missing", i+1, what)
}

func (a args) wrongType(i int, what string) error {
	return util.NewError(util.ErrInvalidData, "Argument %v must be a %v not %T", i+1, what, a[i])
}

func (a args) locator(i int) (data.Locator, error) {
	if !a.has(i) {
		return data.Locator{}, a.missing(i, "locator")
	}

	switch v := a[i].(type) {
	case data.Locator:
		if v.IsZero() {
			return v, a.missing(i, "locator")
		}
		return v, nil
	case string:
		l, err := data.NewLocator(v)
		if err != nil {
			return l, util.NewError(util.ErrInvalidData, err.Error())
		}
		return l, nil
	}

	return data.Locator{}, a.wrongType(i, "locator")
}

func (a args) id(i int) (data.ID, error) {
	if !a.has(i) {
		return data.NoID, a.missing(i, "construct id")
	}

	switch v := a[i].(type) {
	case data.ID:
		return v, nil
	case int:
		return data.ID(v), nil
	case uint64:
		return data.ID(v), nil
	}

	return data.NoID, a.wrongType(i, "construct id")
}

func (a args) str(i int) (string, error) {
	if !a.has(i) {
		return "", a.missing(i, "string")
	}

	if v, ok := a[i].(string); ok {
		return v, nil
	}

	return "", a.wrongType(i, "string")
}

func (a args) boolean(i int) (bool, error) {
	if !a.has(i) {
		return false, a.missing(i, "boolean")
	}

	if v, ok := a[i].(bool); ok {
		return v, nil
	}

	return false, a.wrongType(i, "boolean")
}

/*
isThemes returns if an argument is a theme list.
*/
func (a args) isThemes(i int) bool {
	if !a.has(i) {
		return false
	}

	switch a[i].(type) {
	case []data.ID, *data.Scope:
		return true
	}

	return false
}

func (a args) themes(i int) ([]data.ID, error) {
	if !a.has(i) {
		return nil, nil
	}

	switch v := a[i].(type) {
	case []data.ID:
		return v, nil
	case *data.Scope:
		return v.Themes(), nil
	}

	return nil, a.wrongType(i, "theme list")
}

/*
isLocator returns if an argument is a locator.
*/
func (a args) isLocator(i int) bool {
	if !a.has(i) {
		return false
	}

	switch a[i].(type) {
	case data.Locator, string:
		return true
	}

	return false
}

// Helper functions
// ================

func kindNames(kinds []data.ConstructKind) string {
	var names []string

	for _, k := range kinds {
		names = append(names, k.String())
	}

	sort.Strings(names)

	return fmt.Sprint(names)
}

/*
identityEvents returns the add and remove event of an identity kind.
*/
func identityEvents(kind data.IdentityKind) (data.EventKind, data.EventKind) {
	switch kind {
	case data.SubjectIdentifier:
		return data.EventSubjectIdentifierAdded, data.EventSubjectIdentifierRemoved
	case data.SubjectLocator:
		return data.EventSubjectLocatorAdded, data.EventSubjectLocatorRemoved
	}
	return data.EventItemIdentifierAdded, data.EventItemIdentifierRemoved
}

/*
constructEvents returns the add and remove event of a construct kind.
*/
func constructEvents(kind data.ConstructKind) (data.EventKind, data.EventKind) {
	switch kind {
	case data.KindTopic:
		return data.EventTopicAdded, data.EventTopicRemoved
	case data.KindAssociation:
		return data.EventAssociationAdded, data.EventAssociationRemoved
	case data.KindRole:
		return data.EventRoleAdded, data.EventRoleRemoved
	case data.KindName:
		return data.EventNameAdded, data.EventNameRemoved
	case data.KindOccurrence:
		return data.EventOccurrenceAdded, data.EventOccurrenceRemoved
	case data.KindVariant:
		return data.EventVariantAdded, data.EventVariantRemoved
	}
	return data.EventTopicMapCreated, data.EventTopicMapCleared
}
