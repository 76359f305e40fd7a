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
	"strings"

	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
characteristicKey identifies equal names, occurrences and variants of one owner.
*/
type characteristicKey struct {
	kind     data.ConstructKind
	typ      data.ID
	scope    string
	value    string
	datatype string
}

/*
roleKey identifies equal roles of one association.
*/
type roleKey struct {
	typ    data.ID
	player data.ID
}

/*
associationKey identifies equal associations.
*/
type associationKey struct {
	typ   data.ID
	scope string
	roles string
}

func (e *engine) characteristicKey(c *construct) interface{} {
	return characteristicKey{c.kind, c.typ, c.scope.Key(), c.value, c.datatype.Reference()}
}

func (e *engine) roleKey(c *construct) interface{} {
	return roleKey{c.typ, c.player}
}

func (e *engine) associationKey(c *construct) interface{} {
	var roles []string

	for _, r := range c.roles {
		if rc := e.st.get(r); rc != nil {
			roles = append(roles, fmt.Sprintf("%v:%v", rc.typ, rc.player))
		}
	}

	sort.Strings(roles)

	return associationKey{c.typ, c.scope.Key(), strings.Join(roles, ",")}
}

/*
removeAllDuplicates removes all duplicates from the topic map.
*/
func (e *engine) removeAllDuplicates() error {
	for _, id := range e.st.ids(data.KindTopic) {
		if err := e.removeOwnerDuplicates(id); err != nil {
			return err
		}
	}

	if err := e.removeAssociationDuplicates(); err != nil {
		return err
	}

	return e.drainMerges()
}

/*
removeOwnerDuplicates removes duplicate children of a topic, name or
association.
*/
func (e *engine) removeOwnerDuplicates(id data.ID) error {
	var err error

	c := e.st.get(e.resolve(id))
	if c == nil {
		return nil
	}

	switch c.kind {

	case data.KindTopic:
		if err = e.removeChildDuplicates(c.id, c.names, e.characteristicKey); err == nil {
			if err = e.removeChildDuplicates(c.id, c.occurrences, e.characteristicKey); err == nil {
				for _, n := range e.st.get(c.id).names {
					if err = e.removeOwnerDuplicates(n); err != nil {
						break
					}
				}
			}
		}

	case data.KindName:
		err = e.removeChildDuplicates(c.id, c.variants, e.characteristicKey)

	case data.KindAssociation:
		err = e.removeChildDuplicates(c.id, c.roles, e.roleKey)
	}

	return err
}

/*
removeChildDuplicates removes duplicates from a list of children. The first
child of equal children survives.
*/
func (e *engine) removeChildDuplicates(ownerID data.ID, children []data.ID,
	key func(*construct) interface{}) error {

	seen := make(map[interface{}]data.ID)

	for _, id := range cloneIDs(children) {
		c := e.st.get(id)
		if c == nil {
			continue
		}

		k := key(c)

		if survivor, ok := seen[k]; ok {
			if err := e.removeDuplicate(ownerID, survivor, id); err != nil {
				return err
			}
			continue
		}

		seen[k] = id
	}

	return nil
}

/*
removeAssociationDuplicates removes duplicate associations from the topic map.
Duplicate roles are removed first.
*/
func (e *engine) removeAssociationDuplicates() error {
	seen := make(map[interface{}]data.ID)

	for _, id := range e.st.ids(data.KindAssociation) {
		if err := e.removeOwnerDuplicates(id); err != nil {
			return err
		}

		c := e.st.get(id)
		if c == nil {
			continue
		}

		k := e.associationKey(c)

		if survivor, ok := seen[k]; ok {
			if err := e.removeDuplicate(TopicMapID, survivor, id); err != nil {
				return err
			}
			continue
		}

		seen[k] = id
	}

	return nil
}

/*
removeDuplicate removes a duplicate construct. Identities, reifier and
children of the duplicate are transferred to the survivor.
*/
func (e *engine) removeDuplicate(ownerID, survivorID, dupID data.ID) error {
	dup := e.st.get(dupID)
	dupSnap := e.snapshot(dupID)

	if err := e.absorb(survivorID, dupID); err != nil {
		return err
	}

	switch dup.kind {

	case data.KindName:
		sm := e.st.mutable(survivorID)
		for _, v := range dup.variants {
			if vm := e.st.mutable(v); vm != nil {
				vm.parent = survivorID
				sm.variants = append(sm.variants, v)
			}
		}
		e.st.mutable(dupID).variants = nil

		if om := e.st.mutable(ownerID); om != nil {
			om.names, _ = removeID(om.names, dupID)
		}

	case data.KindOccurrence:
		if om := e.st.mutable(ownerID); om != nil {
			om.occurrences, _ = removeID(om.occurrences, dupID)
		}

	case data.KindVariant:
		if om := e.st.mutable(ownerID); om != nil {
			om.variants, _ = removeID(om.variants, dupID)
		}

	case data.KindRole:
		if om := e.st.mutable(ownerID); om != nil {
			om.roles, _ = removeID(om.roles, dupID)
		}

		if pm := e.st.mutable(dup.player); pm != nil {
			pm.played, _ = removeID(pm.played, dupID)
		}

	case data.KindAssociation:
		survivor := e.st.get(survivorID)

		for _, r := range dup.roles {
			rc := e.st.get(r)
			if rc == nil {
				continue
			}

			for _, sr := range survivor.roles {
				if src := e.st.get(sr); src != nil && src.typ == rc.typ && src.player == rc.player {
					if err := e.absorb(sr, r); err != nil {
						return err
					}
					break
				}
			}

			if pm := e.st.mutable(rc.player); pm != nil {
				pm.played, _ = removeID(pm.played, r)
			}

			e.st.drop(r)
		}
	}

	e.st.drop(dupID)

	e.emit(data.EventRemoveDuplicates, ownerID, e.snapshot(survivorID), dupSnap)

	e.logger.LogDebug(fmt.Sprintf("Removed duplicate %v of %v", dupSnap, survivorID))

	e.duplicates++

	if dup.kind == data.KindName {
		return e.removeOwnerDuplicates(survivorID)
	}

	return nil
}

/*
absorb transfers the item identifiers and the reifier of a construct to
another construct. If both constructs are reified the reifying topics are
queued for merging.
*/
func (e *engine) absorb(survivorID, dupID data.ID) error {
	for _, loc := range e.st.registry().Identities(dupID).ItemIdentifiers {
		e.st.unregister(data.ItemIdentifier, loc, dupID)

		if _, err := e.st.register(data.ItemIdentifier, loc, survivorID, e.st.get(survivorID).kind); err != nil {
			return err
		}
	}

	dup := e.st.get(dupID)

	if dup.reifier != data.NoID {
		reifier := dup.reifier

		e.st.mutable(dupID).reifier = data.NoID

		rm := e.st.mutable(reifier)
		if rm == nil {
			return nil
		}
		rm.reified = data.NoID

		sm := e.st.mutable(survivorID)

		if sm.reifier == data.NoID {
			sm.reifier = reifier
			rm.reified = survivorID
		} else {
			e.mergeQueue = append(e.mergeQueue, [2]data.ID{sm.reifier, reifier})
		}
	}

	return nil
}
