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

	"devt.de/krotik/common/stringutil"
	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
merger copies the topics and associations of another topic map into the
topic map of an engine.
*/
type merger struct {
	e       *engine             // Target engine
	src     *baseState          // Source state
	mapping map[data.ID]data.ID // Source ids to target ids
}

/*
newMerger creates a new merger.
*/
func newMerger(e *engine, src *baseState) *merger {
	return &merger{e, src, map[data.ID]data.ID{TopicMapID: TopicMapID}}
}

/*
run copies all constructs. Topics are copied first so that all merges caused
by equal identities are done before any characteristic is copied.
*/
func (m *merger) run() error {
	topics := m.src.ids(data.KindTopic)
	assocs := m.src.ids(data.KindAssociation)

	for _, id := range topics {
		if err := m.copyTopicIdentities(id); err != nil {
			return err
		}
	}

	for _, id := range topics {
		if err := m.copyTopicCharacteristics(id); err != nil {
			return err
		}
	}

	for _, id := range assocs {
		if err := m.copyAssociation(id); err != nil {
			return err
		}
	}

	if err := m.copyReifier(TopicMapID); err != nil {
		return err
	}

	m.e.logger.LogDebug(fmt.Sprintf("Merged %v topic%v and %v association%v",
		len(topics), stringutil.Plural(len(topics)), len(assocs), stringutil.Plural(len(assocs))))

	return m.e.removeAllDuplicates()
}

/*
target returns the target id of a source construct.
*/
func (m *merger) target(id data.ID) data.ID {
	return m.e.resolve(m.mapping[id])
}

func (m *merger) targets(ids []data.ID) []data.ID {
	var ret []data.ID

	for _, id := range ids {
		ret = append(ret, m.target(id))
	}

	return ret
}

/*
copyTopicIdentities creates or finds the target topic of a source topic.
*/
func (m *merger) copyTopicIdentities(id data.ID) error {
	var target data.ID
	var err error

	ids := m.src.reg.Identities(id)

	for _, kind := range []data.IdentityKind{data.SubjectIdentifier, data.SubjectLocator, data.ItemIdentifier} {
		for _, loc := range ids.Get(kind) {
			if target == data.NoID {
				target, err = m.e.topicByIdentity(kind, loc)
			} else {
				err = m.e.addIdentity(target, kind, loc)
			}

			if err != nil {
				return err
			}
		}
	}

	if target == data.NoID {
		if target, err = m.e.createTopic(true); err != nil {
			return err
		}
	}

	m.mapping[id] = target

	return nil
}

/*
copyTopicCharacteristics copies the types, supertypes, names and occurrences
of a source topic.
*/
func (m *merger) copyTopicCharacteristics(id data.ID) error {
	t := m.src.get(id)

	for _, typ := range t.types {
		if err := m.e.addType(m.target(id), m.target(typ)); err != nil {
			return err
		}
	}

	for _, typ := range t.supertypes {
		if err := m.e.addSupertype(m.target(id), m.target(typ)); err != nil {
			return err
		}
	}

	for _, n := range t.names {
		nc := m.src.get(n)

		nid, err := m.e.createName(m.target(id), m.target(nc.typ), nc.value, m.targets(nc.scope.Themes()))
		if err == nil {
			m.mapping[n] = nid
			err = m.copyIdentitiesAndReifier(n)
		}

		for _, v := range nc.variants {
			if err != nil {
				break
			}

			vc := m.src.get(v)

			var vid data.ID
			if vid, err = m.e.createVariant(nid, vc.value, vc.datatype, m.targets(vc.scope.Themes())); err == nil {
				m.mapping[v] = vid
				err = m.copyIdentitiesAndReifier(v)
			}
		}

		if err != nil {
			return err
		}
	}

	for _, o := range t.occurrences {
		oc := m.src.get(o)

		oid, err := m.e.createOccurrence(m.target(id), m.target(oc.typ), oc.value,
			oc.datatype, m.targets(oc.scope.Themes()))

		if err == nil {
			m.mapping[o] = oid
			err = m.copyIdentitiesAndReifier(o)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

/*
copyAssociation copies a source association and its roles.
*/
func (m *merger) copyAssociation(id data.ID) error {
	a := m.src.get(id)

	aid, err := m.e.createAssociation(m.target(a.typ), m.targets(a.scope.Themes()))
	if err != nil {
		return err
	}

	m.mapping[id] = aid

	for _, r := range a.roles {
		rc := m.src.get(r)

		rid, err := m.e.createRole(aid, m.target(rc.typ), m.target(rc.player))
		if err == nil {
			m.mapping[r] = rid
			err = m.copyIdentitiesAndReifier(r)
		}

		if err != nil {
			return err
		}
	}

	return m.copyIdentitiesAndReifier(id)
}

/*
copyIdentitiesAndReifier copies the item identifiers and the reifier of a
source construct.
*/
func (m *merger) copyIdentitiesAndReifier(id data.ID) error {
	for _, loc := range m.src.reg.Identities(id).ItemIdentifiers {
		if err := m.e.addIdentity(m.mapping[id], data.ItemIdentifier, loc); err != nil {
			return err
		}
	}

	return m.copyReifier(id)
}

/*
copyReifier copies the reifier of a source construct. If the target construct
is already reified both reifiers are merged.
*/
func (m *merger) copyReifier(id data.ID) error {
	c := m.src.get(id)

	if c.reifier == data.NoID {
		return nil
	}

	target := m.mapping[id]
	reifier := m.target(c.reifier)

	if existing := m.e.st.get(target).reifier; existing != data.NoID && existing != reifier {
		return m.e.merge(existing, reifier)
	}

	return m.e.setReifier(target, reifier)
}
