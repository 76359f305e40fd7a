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
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
dependents are all constructs which depend on a topic.
*/
type dependents struct {
	typed      []data.ID // Topics which use the topic as type
	subtypes   []data.ID // Topics which use the topic as supertype
	constructs []data.ID // Constructs which use the topic as type or theme
	played     []data.ID // Associations in which the topic plays a role
	reified    data.ID   // Construct which is reified by the topic
}

/*
empty returns if there are no dependents.
*/
func (d *dependents) empty() bool {
	return len(d.typed) == 0 && len(d.subtypes) == 0 && len(d.constructs) == 0 &&
		len(d.played) == 0 && d.reified == data.NoID
}

/*
remove runs a remove operation.
*/
func (e *engine) remove(ctxID data.ID, cascade bool) error {
	c, err := e.construct(ctxID)
	if err != nil {
		return err
	}

	switch c.kind {
	case data.KindTopicMap:
		return e.clear()
	case data.KindTopic:
		return e.removeTopic(c.id, cascade)
	}

	return e.removeConstruct(c.id, e.snapshot(c.id))
}

/*
dependentsOf collects all dependents of a topic. Constructs which are owned
by the topic itself are not dependents.
*/
func (e *engine) dependentsOf(t *construct) *dependents {
	d := &dependents{reified: t.reified}

	owned := make(map[data.ID]bool)
	for _, n := range t.names {
		owned[n] = true
		for _, v := range e.st.get(n).variants {
			owned[v] = true
		}
	}
	for _, o := range t.occurrences {
		owned[o] = true
	}

	for _, id := range e.st.ids(data.KindTopic) {
		if id == t.id {
			continue
		}
		c := e.st.get(id)
		if containsID(c.types, t.id) {
			d.typed = append(d.typed, id)
		}
		if containsID(c.supertypes, t.id) {
			d.subtypes = append(d.subtypes, id)
		}
	}

	for _, kind := range []data.ConstructKind{data.KindAssociation, data.KindRole,
		data.KindName, data.KindOccurrence, data.KindVariant} {

		for _, id := range e.st.ids(kind) {
			if owned[id] {
				continue
			}
			if c := e.st.get(id); c.typ == t.id || c.scope.Contains(t.id) {
				d.constructs = append(d.constructs, id)
			}
		}
	}

	d.played = e.associationsPlayed(t)

	return d
}

/*
removeTopic removes a topic. All dependents are removed or unlinked if the
cascade flag is set.
*/
func (e *engine) removeTopic(id data.ID, cascade bool) error {
	t := e.st.get(id)
	d := e.dependentsOf(t)

	if !d.empty() && !cascade {
		return util.NewError(util.ErrHasDependents, "Cannot remove %v", t)
	}

	snap := e.snapshot(id)

	for _, ids := range [][]data.ID{d.played, d.constructs} {
		for _, dep := range ids {
			if e.st.get(dep) == nil {
				continue
			}
			if err := e.removeConstruct(dep, e.snapshot(dep)); err != nil {
				return err
			}
		}
	}

	for _, other := range d.typed {
		if om := e.st.mutable(other); om != nil {
			om.types, _ = removeID(om.types, id)
			e.emit(data.EventTypeRemoved, other, nil, snap)
		}
	}

	for _, other := range d.subtypes {
		if om := e.st.mutable(other); om != nil {
			om.supertypes, _ = removeID(om.supertypes, id)
			e.emit(data.EventSupertypeRemoved, other, nil, snap)
		}
	}

	if d.reified != data.NoID && e.st.get(d.reified) != nil {
		e.st.mutable(d.reified).reifier = data.NoID
		e.st.mutable(id).reified = data.NoID
		e.emit(data.EventReifierSet, d.reified, nil, snap)
	}

	return e.removeConstruct(id, snap)
}

/*
removeConstruct removes a construct and all its children. Children are
removed first.
*/
func (e *engine) removeConstruct(id data.ID, snap *data.Snapshot) error {
	c := e.st.get(id)
	if c == nil {
		return nil
	}

	for _, child := range c.children() {
		if err := e.removeConstruct(child, e.snapshot(child)); err != nil {
			return err
		}
	}

	c = e.st.get(id)

	if c.kind != data.KindTopic && c.kind != data.KindAssociation {
		if pm := e.st.mutable(c.parent); pm != nil {
			switch c.kind {
			case data.KindName:
				pm.names, _ = removeID(pm.names, id)
			case data.KindOccurrence:
				pm.occurrences, _ = removeID(pm.occurrences, id)
			case data.KindVariant:
				pm.variants, _ = removeID(pm.variants, id)
			case data.KindRole:
				pm.roles, _ = removeID(pm.roles, id)
			}
		}
	}

	if c.kind == data.KindRole && c.player != data.NoID {
		if plm := e.st.mutable(c.player); plm != nil {
			plm.played, _ = removeID(plm.played, id)
		}
	}

	if c.reifier != data.NoID {
		if r := e.st.mutable(c.reifier); r != nil {
			r.reified = data.NoID
		}
	}

	if c.reified != data.NoID {
		if r := e.st.mutable(c.reified); r != nil {
			r.reifier = data.NoID
		}
	}

	e.unregisterAll(id)

	e.st.drop(id)

	_, removed := constructEvents(c.kind)
	e.emit(removed, c.parent, nil, snap)

	return nil
}

/*
unregisterAll removes all identities of a construct from the registry.
*/
func (e *engine) unregisterAll(id data.ID) {
	ids := e.st.registry().Identities(id)

	for _, kind := range data.IdentityKinds {
		for _, loc := range ids.Get(kind) {
			e.st.unregister(kind, loc, id)
		}
	}
}

/*
clear removes all topics and associations from the topic map.
*/
func (e *engine) clear() error {
	snap := e.snapshot(TopicMapID)

	for _, kind := range []data.ConstructKind{data.KindVariant, data.KindName,
		data.KindOccurrence, data.KindRole, data.KindAssociation, data.KindTopic} {

		for _, id := range e.st.ids(kind) {
			e.unregisterAll(id)
			e.st.drop(id)
		}
	}

	e.st.mutable(TopicMapID).reifier = data.NoID

	e.emit(data.EventTopicMapCleared, TopicMapID, nil, snap)

	return nil
}
