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
create runs a create operation and returns the created (or found) construct.
*/
func (e *engine) create(ctxID data.ID, param Param, a args) (data.ID, error) {
	var ctx *construct
	var err error

	switch param {

	case ParamTopic:
		if _, err = e.constructOf(ctxID, data.KindTopicMap); err == nil {
			return e.createTopic(true)
		}

	case ParamItemIdentifier, ParamSubjectIdentifier, ParamSubjectLocator:
		if _, err = e.constructOf(ctxID, data.KindTopicMap); err == nil {
			var loc data.Locator

			if loc, err = a.locator(0); err == nil {
				kind, _ := param.identityKind()
				return e.topicByIdentity(kind, loc)
			}
		}

	case ParamAssociation:
		if _, err = e.constructOf(ctxID, data.KindTopicMap); err == nil {
			var typ data.ID
			var themes []data.ID

			if typ, err = a.id(0); err == nil {
				if themes, err = a.themes(1); err == nil {
					return e.createAssociation(typ, themes)
				}
			}
		}

	case ParamRole:
		if ctx, err = e.constructOf(ctxID, data.KindAssociation); err == nil {
			var typ, player data.ID

			if typ, err = a.id(0); err == nil {
				if player, err = a.id(1); err == nil {
					return e.createRole(ctx.id, typ, player)
				}
			}
		}

	case ParamName:
		if ctx, err = e.constructOf(ctxID, data.KindTopic); err == nil {
			return e.createNameFromArgs(ctx.id, a)
		}

	case ParamOccurrence:
		if ctx, err = e.constructOf(ctxID, data.KindTopic); err == nil {
			return e.createOccurrenceFromArgs(ctx.id, a)
		}

	case ParamVariant:
		if ctx, err = e.constructOf(ctxID, data.KindName); err == nil {
			return e.createVariantFromArgs(ctx.id, a)
		}

	default:
		err = util.NewError(util.ErrUnsupportedOperation, "Cannot create %v", param)
	}

	return data.NoID, err
}

/*
addConstruct adds a new construct and records its creation.
*/
func (e *engine) addConstruct(c *construct) {
	e.st.add(c)

	added, _ := constructEvents(c.kind)
	e.emit(added, c.parent, e.snapshot(c.id), nil)
}

/*
createTopic creates a new topic. A generated item identifier is added on request.
*/
func (e *engine) createTopic(generateIdentity bool) (data.ID, error) {
	t := &construct{id: e.newID(), kind: data.KindTopic, parent: TopicMapID}

	e.addConstruct(t)

	if generateIdentity {
		loc := e.newItemIdentifier()

		if err := e.addIdentity(t.id, data.ItemIdentifier, loc); err != nil {
			return data.NoID, err
		}
	}

	return t.id, nil
}

/*
topicByIdentity returns the topic with a given identity. A subject identifier
and an item identifier of a topic are interchangeable. A new topic is created
if no topic has the identity.
*/
func (e *engine) topicByIdentity(kind data.IdentityKind, loc data.Locator) (data.ID, error) {
	reg := e.st.registry()

	if id := reg.Resolve(kind, loc); id != data.NoID {
		c, err := e.construct(id)

		if err == nil && c.kind != data.KindTopic {
			err = util.NewError(util.ErrIdentityConflict,
				"%v %v is held by %v", kind, loc, c)
		}

		if err != nil {
			return data.NoID, err
		}

		return c.id, nil
	}

	var other data.IdentityKind

	if kind == data.SubjectIdentifier {
		other = data.ItemIdentifier
	} else if kind == data.ItemIdentifier {
		other = data.SubjectIdentifier
	}

	if other != 0 {
		if id := reg.Resolve(other, loc); id != data.NoID {
			if c, err := e.construct(id); err == nil && c.kind == data.KindTopic {
				return c.id, e.addIdentity(c.id, kind, loc)
			}
		}
	}

	id, err := e.createTopic(false)

	if err == nil {
		err = e.addIdentity(id, kind, loc)
	}

	return e.resolve(id), err
}

/*
createAssociation creates a new association.
*/
func (e *engine) createAssociation(typ data.ID, themes []data.ID) (data.ID, error) {
	t, err := e.topic(typ)
	if err != nil {
		return data.NoID, err
	}

	if themes, err = e.topics(themes); err != nil {
		return data.NoID, err
	}

	a := &construct{
		id:     e.newID(),
		kind:   data.KindAssociation,
		parent: TopicMapID,
		typ:    t.id,
		scope:  e.st.scopes().Get(themes),
	}

	e.addConstruct(a)

	return a.id, nil
}

/*
createRole creates a new role in an association.
*/
func (e *engine) createRole(assocID, typ, player data.ID) (data.ID, error) {
	t, err := e.topic(typ)
	if err != nil {
		return data.NoID, err
	}

	p, err := e.topic(player)
	if err != nil {
		return data.NoID, err
	}

	r := &construct{
		id:     e.newID(),
		kind:   data.KindRole,
		parent: assocID,
		typ:    t.id,
		player: p.id,
	}

	am := e.mutable(assocID)
	am.roles = append(am.roles, r.id)

	pm := e.mutable(p.id)
	pm.played = append(pm.played, r.id)

	e.addConstruct(r)

	return r.id, nil
}

/*
createNameFromArgs creates a name from operation arguments: value, optional
type and optional themes.
*/
func (e *engine) createNameFromArgs(topicID data.ID, a args) (data.ID, error) {
	var typ data.ID
	var themes []data.ID

	value, err := a.str(0)

	for i := 1; err == nil && i < len(a); i++ {
		if a.isThemes(i) {
			themes, err = a.themes(i)
		} else if a.has(i) {
			typ, err = a.id(i)
		}
	}

	if err != nil {
		return data.NoID, err
	}

	return e.createName(topicID, typ, value, themes)
}

/*
createName creates a new name. A name without type gets the default name type.
*/
func (e *engine) createName(topicID, typ data.ID, value string, themes []data.ID) (data.ID, error) {
	var err error

	if typ == data.NoID {
		if typ, err = e.psiTopic(data.PSITopicName); err != nil {
			return data.NoID, err
		}
	}

	t, err := e.topic(typ)
	if err != nil {
		return data.NoID, err
	}

	if themes, err = e.topics(themes); err != nil {
		return data.NoID, err
	}

	n := &construct{
		id:     e.newID(),
		kind:   data.KindName,
		parent: topicID,
		typ:    t.id,
		scope:  e.st.scopes().Get(themes),
		value:  value,
	}

	owner := e.mutable(topicID)
	owner.names = append(owner.names, n.id)

	e.addConstruct(n)

	return n.id, nil
}

/*
createOccurrenceFromArgs creates an occurrence from operation arguments: type,
value, optional datatype and optional themes.
*/
func (e *engine) createOccurrenceFromArgs(topicID data.ID, a args) (data.ID, error) {
	var themes []data.ID
	var value string

	datatype := data.XSDString

	typ, err := a.id(0)

	if err == nil {
		value, err = a.str(1)
	}

	for i := 2; err == nil && i < len(a); i++ {
		if a.isThemes(i) {
			themes, err = a.themes(i)
		} else if a.has(i) {
			datatype, err = a.locator(i)
		}
	}

	if err != nil {
		return data.NoID, err
	}

	return e.createOccurrence(topicID, typ, value, datatype, themes)
}

/*
createOccurrence creates a new occurrence.
*/
func (e *engine) createOccurrence(topicID, typ data.ID, value string,
	datatype data.Locator, themes []data.ID) (data.ID, error) {

	t, err := e.topic(typ)
	if err != nil {
		return data.NoID, err
	}

	if themes, err = e.topics(themes); err != nil {
		return data.NoID, err
	}

	o := &construct{
		id:       e.newID(),
		kind:     data.KindOccurrence,
		parent:   topicID,
		typ:      t.id,
		scope:    e.st.scopes().Get(themes),
		value:    value,
		datatype: datatype,
	}

	owner := e.mutable(topicID)
	owner.occurrences = append(owner.occurrences, o.id)

	e.addConstruct(o)

	return o.id, nil
}

/*
createVariantFromArgs creates a variant from operation arguments: value,
optional datatype and themes.
*/
func (e *engine) createVariantFromArgs(nameID data.ID, a args) (data.ID, error) {
	var themes []data.ID

	datatype := data.XSDString

	value, err := a.str(0)

	for i := 1; err == nil && i < len(a); i++ {
		if a.isThemes(i) {
			themes, err = a.themes(i)
		} else if a.has(i) {
			datatype, err = a.locator(i)
		}
	}

	if err != nil {
		return data.NoID, err
	}

	return e.createVariant(nameID, value, datatype, themes)
}

/*
createVariant creates a new variant. The variant themes must add at least one
theme to the scope of the name.
*/
func (e *engine) createVariant(nameID data.ID, value string,
	datatype data.Locator, themes []data.ID) (data.ID, error) {

	themes, err := e.topics(themes)
	if err != nil {
		return data.NoID, err
	}

	scope := e.st.scopes().Get(themes)

	if err := e.checkVariantScope(nameID, scope); err != nil {
		return data.NoID, err
	}

	v := &construct{
		id:       e.newID(),
		kind:     data.KindVariant,
		parent:   nameID,
		scope:    scope,
		value:    value,
		datatype: datatype,
	}

	nm := e.mutable(nameID)
	nm.variants = append(nm.variants, v.id)

	e.addConstruct(v)

	return v.id, nil
}

/*
checkVariantScope checks that a variant scope adds at least one theme to the
scope of its name.
*/
func (e *engine) checkVariantScope(nameID data.ID, scope *data.Scope) error {
	n, err := e.constructOf(nameID, data.KindName)
	if err != nil {
		return err
	}

	if n.scope.ContainsAll(scope) {
		return util.NewError(util.ErrModelConstraint,
			"Variant scope %v must add a theme to the name scope %v", scope, n.scope)
	}

	return nil
}
