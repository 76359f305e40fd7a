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
)

/*
construct is the live state of a single construct. Constructs reference each
other only by ID. A construct object which was part of a finished batch is
never modified again; a batch always modifies a copy.
*/
type construct struct {
	id     data.ID
	kind   data.ConstructKind
	parent data.ID

	types       []data.ID // Topic types
	supertypes  []data.ID // Topic supertypes
	names       []data.ID // Names of a topic
	occurrences []data.ID // Occurrences of a topic
	played      []data.ID // Roles played by a topic
	roles       []data.ID // Roles of an association
	variants    []data.ID // Variants of a name

	typ      data.ID      // Type of a typed construct
	scope    *data.Scope  // Scope of a scoped construct
	value    string       // Value of a characteristic
	datatype data.Locator // Datatype of an occurrence or variant
	player   data.ID      // Player of a role
	reifier  data.ID      // Reifier of a reifiable construct
	reified  data.ID      // Construct reified by a topic
}

/*
clone returns a copy of this construct.
*/
func (c *construct) clone() *construct {
	ret := *c

	ret.types = cloneIDs(c.types)
	ret.supertypes = cloneIDs(c.supertypes)
	ret.names = cloneIDs(c.names)
	ret.occurrences = cloneIDs(c.occurrences)
	ret.played = cloneIDs(c.played)
	ret.roles = cloneIDs(c.roles)
	ret.variants = cloneIDs(c.variants)

	return &ret
}

/*
children returns all constructs which are owned by this construct.
*/
func (c *construct) children() []data.ID {
	var ret []data.ID

	ret = append(ret, c.names...)
	ret = append(ret, c.occurrences...)
	ret = append(ret, c.roles...)
	ret = append(ret, c.variants...)

	return ret
}

/*
String returns a string representation of this construct.
*/
func (c *construct) String() string {
	return fmt.Sprintf("%v#%v", c.kind, c.id)
}

// ID list helpers
// ===============

func cloneIDs(ids []data.ID) []data.ID {
	if ids == nil {
		return nil
	}
	ret := make([]data.ID, len(ids))
	copy(ret, ids)
	return ret
}

func containsID(ids []data.ID, id data.ID) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

/*
appendID appends an id to a list if it is not already in the list.
*/
func appendID(ids []data.ID, id data.ID) ([]data.ID, bool) {
	if containsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

/*
removeID removes all occurrences of an id from a list.
*/
func removeID(ids []data.ID, id data.ID) ([]data.ID, bool) {
	var found bool

	ret := ids[:0]

	for _, i := range ids {
		if i == id {
			found = true
			continue
		}
		ret = append(ret, i)
	}

	return ret, found
}

/*
replaceID replaces all occurrences of an id in a list. The result is duplicate
free if the input was.
*/
func replaceID(ids []data.ID, old, new data.ID) ([]data.ID, bool) {
	if !containsID(ids, old) {
		return ids, false
	}

	ret, _ := removeID(ids, old)
	ret, _ = appendID(ret, new)

	return ret, true
}
