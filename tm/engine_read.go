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
read runs a read operation. Reading an unknown construct returns nil.
*/
func (e *engine) read(ctxID data.ID, param Param, a args) (interface{}, error) {
	c := e.st.get(e.resolve(ctxID))
	if c == nil {
		return nil, nil
	}

	if c.kind == data.KindTopicMap {
		if ret, ok, err := e.readTopicMap(param, a); ok {
			return ret, err
		}
	}

	switch param {

	case ParamItemIdentifier:
		return e.st.registry().Identities(c.id).ItemIdentifiers, nil

	case ParamSubjectIdentifier, ParamSubjectLocator:
		if c.kind == data.KindTopic {
			kind, _ := param.identityKind()
			return e.st.registry().Identities(c.id).Get(kind), nil
		}

	case ParamType:
		if c.kind == data.KindTopic {
			return cloneIDs(c.types), nil
		} else if c.kind.IsTyped() {
			return c.typ, nil
		}

	case ParamSupertype:
		if c.kind == data.KindTopic {
			return cloneIDs(c.supertypes), nil
		}

	case ParamName:
		if c.kind == data.KindTopic {
			return e.filterByType(c.names, a, 0)
		}

	case ParamOccurrence:
		if c.kind == data.KindTopic {
			return e.filterByType(c.occurrences, a, 0)
		}

	case ParamVariant:
		if c.kind == data.KindName {
			return cloneIDs(c.variants), nil
		}

	case ParamRole:
		if c.kind == data.KindAssociation {
			return e.filterByType(c.roles, a, 0)
		} else if c.kind == data.KindTopic {
			return e.readPlayedRoles(c, a)
		}

	case ParamAssociation:
		if c.kind == data.KindTopic {
			return e.associationsPlayed(c), nil
		}

	case ParamRoleType:
		if c.kind == data.KindAssociation {
			var ret []data.ID
			for _, r := range c.roles {
				ret, _ = appendID(ret, e.st.get(r).typ)
			}
			return ret, nil
		}

	case ParamScope:
		if c.kind.IsScoped() {
			return c.scope, nil
		}

	case ParamTheme:
		if c.kind.IsScoped() {
			return c.scope.Themes(), nil
		}

	case ParamValue:
		if c.kind.IsCharacteristic() {
			return c.value, nil
		}

	case ParamDatatype:
		if c.kind == data.KindOccurrence || c.kind == data.KindVariant {
			return c.datatype, nil
		}

	case ParamPlayer:
		if c.kind == data.KindRole {
			return c.player, nil
		}

	case ParamReification:
		if c.kind.IsReifiable() {
			return c.reifier, nil
		}

	case ParamReified:
		if c.kind == data.KindTopic {
			return c.reified, nil
		}

	case ParamParent:
		return c.parent, nil

	case ParamKind:
		return c.kind, nil

	case ParamTopicMap:
		return TopicMapID, nil

	case ParamBestLabel:
		if c.kind == data.KindTopic {
			return e.readBestLabel(c, a)
		}

	case ParamBestIdentifier:
		if c.kind == data.KindTopic {
			var prefix bool
			var err error

			if a.has(0) {
				if prefix, err = a.boolean(0); err != nil {
					return nil, err
				}
			}

			return e.bestIdentifier(c.id, prefix), nil
		}
	}

	return nil, util.NewError(util.ErrUnsupportedOperation, "Cannot read %v of %v", param, c)
}

/*
readTopicMap runs read operations which are specific to the topic map.
Returns false if the operation is not topic map specific.
*/
func (e *engine) readTopicMap(param Param, a args) (interface{}, bool, error) {
	switch param {

	case ParamItemIdentifier, ParamSubjectIdentifier, ParamSubjectLocator:
		if !a.has(0) {
			return nil, false, nil
		}

		loc, err := a.locator(0)
		if err != nil {
			return nil, true, err
		}

		kind, _ := param.identityKind()

		return e.resolve(e.st.registry().Resolve(kind, loc)), true, nil

	case ParamTopic:
		return e.st.ids(data.KindTopic), true, nil

	case ParamAssociation:
		if !a.has(0) {
			return e.st.ids(data.KindAssociation), true, nil
		}

		typ, err := a.id(0)
		if err != nil {
			return nil, true, err
		}

		ret, err := e.filterByType(e.st.ids(data.KindAssociation), args{typ}, 0)

		return ret, true, err

	case ParamRoleType:
		var ret []data.ID

		for _, r := range e.st.ids(data.KindRole) {
			ret, _ = appendID(ret, e.st.get(r).typ)
		}

		sortIDs(ret)

		return ret, true, nil
	}

	return nil, false, nil
}

/*
filterByType returns all constructs of a list which have a given type. The
type is an optional argument.
*/
func (e *engine) filterByType(ids []data.ID, a args, i int) ([]data.ID, error) {
	if !a.has(i) {
		return cloneIDs(ids), nil
	}

	typ, err := a.id(i)
	if err != nil {
		return nil, err
	}

	typ = e.resolve(typ)

	var ret []data.ID

	for _, id := range ids {
		if c := e.st.get(id); c != nil && c.typ == typ {
			ret = append(ret, id)
		}
	}

	return ret, nil
}

/*
readPlayedRoles returns the roles played by a topic. The roles can be
filtered by role type and association type.
*/
func (e *engine) readPlayedRoles(t *construct, a args) ([]data.ID, error) {
	roles, err := e.filterByType(t.played, a, 0)

	if err != nil || !a.has(1) {
		return roles, err
	}

	assocType, err := a.id(1)
	if err != nil {
		return nil, err
	}

	assocType = e.resolve(assocType)

	var ret []data.ID

	for _, r := range roles {
		if ac := e.st.get(e.st.get(r).parent); ac != nil && ac.typ == assocType {
			ret = append(ret, r)
		}
	}

	return ret, nil
}

/*
readBestLabel returns the best label of a topic. Optional arguments are a
theme and a strict flag.
*/
func (e *engine) readBestLabel(t *construct, a args) (string, error) {
	var theme data.ID
	var strict bool
	var err error

	if a.has(0) {
		if theme, err = a.id(0); err != nil {
			return "", err
		}
		theme = e.resolve(theme)
	}

	if a.has(1) {
		if strict, err = a.boolean(1); err != nil {
			return "", err
		}
	}

	return e.bestLabel(t.id, theme, strict), nil
}
