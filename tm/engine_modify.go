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
modify runs a modify operation.
*/
func (e *engine) modify(ctxID data.ID, param Param, a args) error {
	c, err := e.construct(ctxID)
	if err != nil {
		return err
	}

	switch param {

	case ParamItemIdentifier:
		var loc data.Locator

		if loc, err = a.locator(0); err == nil {
			err = e.addIdentity(c.id, data.ItemIdentifier, loc)
		}

	case ParamSubjectIdentifier, ParamSubjectLocator:
		var loc data.Locator

		if _, err = e.topic(c.id); err == nil {
			if loc, err = a.locator(0); err == nil {
				kind, _ := param.identityKind()
				err = e.addIdentity(c.id, kind, loc)
			}
		}

	case ParamType:
		var typ data.ID

		if typ, err = a.id(0); err == nil {
			if c.kind == data.KindTopic {
				err = e.addType(c.id, typ)
			} else if c.kind.IsTyped() {
				err = e.setType(c.id, typ)
			} else {
				err = e.notApplicable(param, c)
			}
		}

	case ParamSupertype:
		var typ data.ID

		if _, err = e.topic(c.id); err == nil {
			if typ, err = a.id(0); err == nil {
				err = e.addSupertype(c.id, typ)
			}
		}

	case ParamTheme:
		var theme data.ID

		if !c.kind.IsScoped() {
			err = e.notApplicable(param, c)
		} else if theme, err = a.id(0); err == nil {
			themes, _ := appendID(c.scope.Themes(), theme)
			err = e.setScope(c.id, themes)
		}

	case ParamScope:
		var themes []data.ID

		if !c.kind.IsScoped() {
			err = e.notApplicable(param, c)
		} else if themes, err = a.themes(0); err == nil {
			err = e.setScope(c.id, themes)
		}

	case ParamValue:
		var value string

		if !c.kind.IsCharacteristic() {
			err = e.notApplicable(param, c)
		} else if value, err = a.str(0); err == nil {
			if err = e.setValue(c.id, value); err == nil && a.has(1) {
				err = e.setDatatypeFromArgs(c, a, 1)
			}
		}

	case ParamDatatype:
		err = e.setDatatypeFromArgs(c, a, 0)

	case ParamPlayer:
		var player data.ID

		if c.kind != data.KindRole {
			err = e.notApplicable(param, c)
		} else if player, err = a.id(0); err == nil {
			err = e.setPlayer(c.id, player)
		}

	case ParamReification:
		var reifier data.ID

		if !c.kind.IsReifiable() {
			err = e.notApplicable(param, c)
		} else if !a.has(0) {
			err = e.setReifier(c.id, data.NoID)
		} else if reifier, err = a.id(0); err == nil {
			err = e.setReifier(c.id, reifier)
		}

	default:
		err = util.NewError(util.ErrUnsupportedOperation, "Cannot modify %v", param)
	}

	return err
}

/*
removeParam runs a remove operation on a single property of a construct.
*/
func (e *engine) removeParam(ctxID data.ID, param Param, a args) error {
	c, err := e.construct(ctxID)
	if err != nil {
		return err
	}

	switch param {

	case ParamItemIdentifier, ParamSubjectIdentifier, ParamSubjectLocator:
		var loc data.Locator

		if loc, err = a.locator(0); err == nil {
			kind, _ := param.identityKind()
			e.removeIdentity(c.id, kind, loc)
		}

	case ParamType:
		var typ data.ID

		if c.kind != data.KindTopic {
			err = e.notApplicable(param, c)
		} else if typ, err = a.id(0); err == nil {
			err = e.removeType(c.id, e.resolve(typ))
		}

	case ParamSupertype:
		var typ data.ID

		if c.kind != data.KindTopic {
			err = e.notApplicable(param, c)
		} else if typ, err = a.id(0); err == nil {
			e.removeSupertype(c.id, e.resolve(typ))
		}

	case ParamTheme:
		var theme data.ID

		if !c.kind.IsScoped() {
			err = e.notApplicable(param, c)
		} else if theme, err = a.id(0); err == nil {
			themes, _ := removeID(c.scope.Themes(), e.resolve(theme))
			err = e.setScope(c.id, themes)
		}

	default:
		err = util.NewError(util.ErrUnsupportedOperation, "Cannot remove %v", param)
	}

	return err
}

func (e *engine) notApplicable(param Param, c *construct) error {
	return util.NewError(util.ErrUnsupportedOperation, "%v cannot be modified on %v", param, c)
}

// Types
// =====

/*
addType adds a type to a topic. A type-instance association is created if
types are modeled as associations.
*/
func (e *engine) addType(topicID, typ data.ID) error {
	t, err := e.topic(typ)
	if err != nil {
		return err
	}

	tc := e.mutable(topicID)

	var added bool
	if tc.types, added = appendID(tc.types, t.id); !added {
		return nil
	}

	e.emit(data.EventTypeAdded, topicID, e.snapshot(t.id), nil)

	if e.typeInstance {
		return e.createTypeInstance(t.id, topicID)
	}

	return nil
}

/*
createTypeInstance creates a type-instance association between a type and an
instance.
*/
func (e *engine) createTypeInstance(typ, instance data.ID) error {
	assocType, err := e.psiTopic(data.PSITypeInstance)
	if err != nil {
		return err
	}

	typeRole, err := e.psiTopic(data.PSIType)
	if err != nil {
		return err
	}

	instanceRole, err := e.psiTopic(data.PSIInstance)
	if err != nil {
		return err
	}

	assoc, err := e.createAssociation(assocType, nil)
	if err == nil {
		if _, err = e.createRole(assoc, typeRole, e.resolve(typ)); err == nil {
			_, err = e.createRole(assoc, instanceRole, e.resolve(instance))
		}
	}

	return err
}

/*
typeInstances returns the type-instance associations between a type and an
instance.
*/
func (e *engine) typeInstances(typ, instance data.ID) []data.ID {
	var ret []data.ID

	assocType := e.lookupPSITopic(data.PSITypeInstance)
	typeRole := e.lookupPSITopic(data.PSIType)
	instanceRole := e.lookupPSITopic(data.PSIInstance)

	if assocType == data.NoID || typeRole == data.NoID || instanceRole == data.NoID {
		return nil
	}

	t := e.st.get(instance)

	for _, r := range t.played {
		rc := e.st.get(r)
		if rc == nil || rc.typ != instanceRole {
			continue
		}

		a := e.st.get(rc.parent)
		if a == nil || a.typ != assocType || !a.scope.IsUnconstrained() {
			continue
		}

		for _, or := range a.roles {
			if orc := e.st.get(or); orc != nil && orc.typ == typeRole && orc.player == typ {
				ret, _ = appendID(ret, a.id)
				break
			}
		}
	}

	return ret
}

/*
removeType removes a type from a topic.
*/
func (e *engine) removeType(topicID, typ data.ID) error {
	snap := e.snapshot(typ)

	tc := e.mutable(topicID)

	var removed bool
	if tc.types, removed = removeID(tc.types, typ); !removed {
		return nil
	}

	e.emit(data.EventTypeRemoved, topicID, nil, snap)

	if e.typeInstance {
		for _, a := range e.typeInstances(typ, topicID) {
			if err := e.removeConstruct(a, e.snapshot(a)); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
setType sets the type of a typed construct.
*/
func (e *engine) setType(id, typ data.ID) error {
	t, err := e.topic(typ)
	if err != nil {
		return err
	}

	c := e.mutable(id)

	if c.typ == t.id {
		return nil
	}

	old := c.typ
	c.typ = t.id

	e.emit(data.EventTypeSet, id, e.snapshot(t.id), e.snapshotValue(old))

	return nil
}

/*
addSupertype adds a supertype to a topic.
*/
func (e *engine) addSupertype(topicID, typ data.ID) error {
	t, err := e.topic(typ)
	if err != nil {
		return err
	}

	tc := e.mutable(topicID)

	var added bool
	if tc.supertypes, added = appendID(tc.supertypes, t.id); added {
		e.emit(data.EventSupertypeAdded, topicID, e.snapshot(t.id), nil)
	}

	return nil
}

/*
removeSupertype removes a supertype from a topic.
*/
func (e *engine) removeSupertype(topicID, typ data.ID) {
	snap := e.snapshot(typ)

	tc := e.mutable(topicID)

	var removed bool
	if tc.supertypes, removed = removeID(tc.supertypes, typ); removed {
		e.emit(data.EventSupertypeRemoved, topicID, nil, snap)
	}
}

// Characteristics
// ===============

/*
setScope sets the themes of a scoped construct.
*/
func (e *engine) setScope(id data.ID, themes []data.ID) error {
	themes, err := e.topics(themes)
	if err != nil {
		return err
	}

	scope := e.st.scopes().Get(themes)
	c := e.st.get(id)

	if scope.Key() == c.scope.Key() {
		return nil
	}

	if c.kind == data.KindVariant {
		if err := e.checkVariantScope(c.parent, scope); err != nil {
			return err
		}
	}

	old := c.scope
	e.mutable(id).scope = scope

	e.emit(data.EventScopeModified, id, scope, old)

	return nil
}

/*
setValue sets the value of a name, occurrence or variant.
*/
func (e *engine) setValue(id data.ID, value string) error {
	c := e.mutable(id)

	if c.value != value {
		old := c.value
		c.value = value

		e.emit(data.EventValueModified, id, value, old)
	}

	return nil
}

func (e *engine) setDatatypeFromArgs(c *construct, a args, i int) error {
	if c.kind != data.KindOccurrence && c.kind != data.KindVariant {
		return e.notApplicable(ParamDatatype, c)
	}

	datatype, err := a.locator(i)
	if err != nil {
		return err
	}

	cm := e.mutable(c.id)

	if cm.datatype != datatype {
		old := cm.datatype
		cm.datatype = datatype

		e.emit(data.EventDatatypeSet, c.id, datatype, old)
	}

	return nil
}

/*
setPlayer sets the player of a role.
*/
func (e *engine) setPlayer(roleID, player data.ID) error {
	p, err := e.topic(player)
	if err != nil {
		return err
	}

	r := e.mutable(roleID)

	if r.player == p.id {
		return nil
	}

	old := r.player
	oldSnap := e.snapshot(old)

	om := e.mutable(old)
	om.played, _ = removeID(om.played, roleID)

	pm := e.mutable(p.id)
	pm.played = append(pm.played, roleID)

	r.player = p.id

	e.emit(data.EventPlayerModified, roleID, e.snapshot(p.id), oldSnap)

	return nil
}

/*
setReifier sets the reifier of a construct. NoID clears the reifier.
*/
func (e *engine) setReifier(id, reifier data.ID) error {
	var newSnap interface{}

	c := e.st.get(id)

	if reifier != data.NoID {
		t, err := e.topic(reifier)
		if err != nil {
			return err
		}

		reifier = t.id

		if t.reified != data.NoID && t.reified != id {
			return util.NewError(util.ErrModelConstraint,
				"%v already reifies %v", t, t.reified)
		}
	}

	if c.reifier == reifier {
		return nil
	}

	old := c.reifier
	oldSnap := e.snapshotValue(old)

	if old != data.NoID {
		e.mutable(old).reified = data.NoID
	}

	e.mutable(id).reifier = reifier

	if reifier != data.NoID {
		e.mutable(reifier).reified = id
		newSnap = e.snapshot(reifier)
	}

	e.emit(data.EventReifierSet, id, newSnap, oldSnap)

	return nil
}
