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

	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
addIdentity adds an identity to a construct. Topics which already hold the
identity are merged into the construct.
*/
func (e *engine) addIdentity(id data.ID, kind data.IdentityKind, loc data.Locator) error {
	id = e.resolve(id)

	for {
		c, err := e.construct(id)
		if err != nil {
			return err
		}

		if e.st.registry().Resolve(kind, loc) == c.id {
			return nil
		}

		other, err := e.st.register(kind, loc, c.id, c.kind)
		if err != nil {
			return err
		}

		if other == data.NoID {
			added, _ := identityEvents(kind)
			e.emit(added, c.id, loc, nil)
			return nil
		}

		if err := e.merge(c.id, other); err != nil {
			return err
		}
	}
}

/*
removeIdentity removes an identity from a construct.
*/
func (e *engine) removeIdentity(id data.ID, kind data.IdentityKind, loc data.Locator) {
	if e.st.unregister(kind, loc, id) {
		_, removed := identityEvents(kind)
		e.emit(removed, id, nil, loc)
	}
}

/*
merge merges a topic into a context topic. The context topic survives. All
merges which become necessary are done before this function returns. Merges
requested while merging are queued.
*/
func (e *engine) merge(ctxID, otherID data.ID) error {
	e.mergeQueue = append(e.mergeQueue, [2]data.ID{ctxID, otherID})

	if e.merging {
		return nil
	}

	return e.drainMerges()
}

/*
drainMerges processes the merge queue until no more merges are necessary.
*/
func (e *engine) drainMerges() error {
	e.merging = true
	defer func() {
		e.merging = false
	}()

	for len(e.mergeQueue) > 0 || len(e.retries) > 0 {

		if len(e.mergeQueue) > 0 {
			pair := e.mergeQueue[0]
			e.mergeQueue = e.mergeQueue[1:]

			if err := e.mergeTopics(pair[0], pair[1]); err != nil {
				e.mergeQueue = nil
				e.retries = nil
				return err
			}

			continue
		}

		// Move identities which collided with a third topic

		retries := e.retries
		e.retries = nil

		for _, r := range retries {
			target := e.resolve(r.topic)

			if e.st.registry().Resolve(r.kind, r.loc) == target {
				continue
			}

			other, err := e.st.register(r.kind, r.loc, target, data.KindTopic)
			if err != nil {
				return err
			}

			if other != data.NoID {
				e.mergeQueue = append(e.mergeQueue, [2]data.ID{target, other})
				e.retries = append(e.retries, r)
			}
		}
	}

	return nil
}

/*
mergeTopics merges a single topic into a context topic.
*/
func (e *engine) mergeTopics(ctxID, otherID data.ID) error {
	ctxID, otherID = e.resolve(ctxID), e.resolve(otherID)

	if ctxID == otherID {
		return nil
	}

	ctx, err := e.topic(ctxID)
	if err != nil {
		return err
	}

	other, err := e.topic(otherID)
	if err != nil {
		return err
	}

	if ctx.reified != data.NoID && other.reified != data.NoID && ctx.reified != other.reified {
		return util.NewError(util.ErrModelConstraint,
			"Cannot merge %v and %v: both reify different constructs", ctx, other)
	}

	ctxSnap := e.snapshot(ctxID)
	otherSnap := e.snapshot(otherID)

	e.logger.LogDebug(fmt.Sprintf("Merging %v into %v", other, ctx))

	// Move identities

	ids := e.st.registry().Identities(otherID)

	for _, kind := range data.IdentityKinds {
		for _, loc := range ids.Get(kind) {
			e.st.unregister(kind, loc, otherID)
		}
	}

	for _, kind := range data.IdentityKinds {
		for _, loc := range ids.Get(kind) {
			third, err := e.st.register(kind, loc, ctxID, data.KindTopic)
			if err != nil {
				return err
			}

			if third != data.NoID {
				e.mergeQueue = append(e.mergeQueue, [2]data.ID{ctxID, third})
				e.retries = append(e.retries, identityRetry{ctxID, kind, loc})
			}
		}
	}

	cm := e.st.mutable(ctxID)
	om := e.st.mutable(otherID)

	if cm == nil || om == nil {
		return util.NewError(util.ErrUnknownConstruct, "Cannot merge topic #%v into #%v", otherID, ctxID)
	}

	// Move reification

	if om.reified != data.NoID {
		if r := e.st.mutable(om.reified); r != nil {
			r.reifier = ctxID
		}
		cm.reified = om.reified
		om.reified = data.NoID
	}

	// Move types and characteristics

	for _, t := range om.types {
		if t == otherID {
			t = ctxID
		}
		cm.types, _ = appendID(cm.types, t)
	}

	for _, t := range om.supertypes {
		if t == otherID {
			t = ctxID
		}
		cm.supertypes, _ = appendID(cm.supertypes, t)
	}

	for _, n := range om.names {
		if nm := e.st.mutable(n); nm != nil {
			nm.parent = ctxID
			cm.names = append(cm.names, n)
		}
	}

	for _, o := range om.occurrences {
		if omm := e.st.mutable(o); omm != nil {
			omm.parent = ctxID
			cm.occurrences = append(cm.occurrences, o)
		}
	}

	for _, r := range om.played {
		if rm := e.st.mutable(r); rm != nil {
			rm.player = ctxID
			cm.played = append(cm.played, r)
		}
	}

	om.types, om.supertypes, om.names, om.occurrences, om.played = nil, nil, nil, nil, nil

	// Re-point all references to the absorbed topic

	owners := e.replaceReferences(otherID, ctxID)
	owners[ctxID] = true

	// Remove duplicates which were created by the merge

	for _, id := range sortedKeys(owners) {
		if err := e.removeOwnerDuplicates(id); err != nil {
			return err
		}
	}

	if err := e.removeAssociationDuplicates(); err != nil {
		return err
	}

	e.emit(data.EventMerge, ctxID, ctxSnap, otherSnap)

	e.st.drop(otherID)
	e.st.setAlias(otherID, ctxID)

	e.merges++

	return nil
}

/*
replaceReferences replaces all references to a topic with another topic.
Returns all topics, names and associations whose children may now contain
duplicates.
*/
func (e *engine) replaceReferences(oldID, newID data.ID) map[data.ID]bool {
	owners := make(map[data.ID]bool)

	replaceTheme := func(c *construct) *data.Scope {
		themes, _ := replaceID(c.scope.Themes(), oldID, newID)
		return e.st.scopes().Get(themes)
	}

	for _, kind := range []data.ConstructKind{data.KindTopic, data.KindAssociation,
		data.KindRole, data.KindName, data.KindOccurrence, data.KindVariant, data.KindTopicMap} {

		for _, id := range e.st.ids(kind) {
			if id == oldID {
				continue
			}

			c := e.st.get(id)

			changed := containsID(c.types, oldID) || containsID(c.supertypes, oldID) ||
				c.typ == oldID || c.player == oldID || c.reifier == oldID || c.scope.Contains(oldID)

			if !changed {
				continue
			}

			cm := e.st.mutable(id)

			cm.types, _ = replaceID(cm.types, oldID, newID)
			cm.supertypes, _ = replaceID(cm.supertypes, oldID, newID)

			if cm.typ == oldID {
				cm.typ = newID
			}
			if cm.player == oldID {
				cm.player = newID
			}
			if cm.reifier == oldID {
				cm.reifier = newID
			}
			if cm.scope.Contains(oldID) {
				cm.scope = replaceTheme(cm)
			}

			switch cm.kind {
			case data.KindName, data.KindOccurrence, data.KindRole, data.KindVariant:
				owners[cm.parent] = true
			case data.KindAssociation:
				owners[cm.id] = true
			}
		}
	}

	return owners
}

func sortedKeys(m map[data.ID]bool) []data.ID {
	var ret []data.ID

	for k := range m {
		ret = append(ret, k)
	}

	sortIDs(ret)

	return ret
}
