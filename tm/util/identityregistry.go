/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"fmt"
	"sort"

	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
IdentityKey identifies a single identity binding.
*/
type IdentityKey struct {
	Kind      data.IdentityKind
	Reference string
}

/*
String returns a string representation of this key.
*/
func (k IdentityKey) String() string {
	return fmt.Sprintf("%v:%v", k.Kind, k.Reference)
}

/*
Identities holds all identities of a construct.
*/
type Identities struct {
	Kind               data.ConstructKind
	ItemIdentifiers    []data.Locator
	SubjectIdentifiers []data.Locator
	SubjectLocators    []data.Locator
}

/*
Get returns the identities of a given kind.
*/
func (i *Identities) Get(kind data.IdentityKind) []data.Locator {
	switch kind {
	case data.ItemIdentifier:
		return i.ItemIdentifiers
	case data.SubjectIdentifier:
		return i.SubjectIdentifiers
	case data.SubjectLocator:
		return i.SubjectLocators
	}
	return nil
}

/*
Len returns the number of identities.
*/
func (i *Identities) Len() int {
	return len(i.ItemIdentifiers) + len(i.SubjectIdentifiers) + len(i.SubjectLocators)
}

/*
binding is a single forward map entry. A binding with NoID marks an identity
which was unbound in a layered registry.
*/
type binding struct {
	loc data.Locator
	id  data.ID
}

/*
identityEntry is a single reverse map entry.
*/
type identityEntry struct {
	kind data.ConstructKind
	locs map[IdentityKey]data.Locator
}

func (e *identityEntry) copy() *identityEntry {
	ret := &identityEntry{e.kind, make(map[IdentityKey]data.Locator, len(e.locs))}
	for k, v := range e.locs {
		ret.locs[k] = v
	}
	return ret
}

/*
IdentityRegistry maps identities to constructs and constructs to identities.
Both directions are kept in lock-step.
*/
type IdentityRegistry struct {
	parent  *IdentityRegistry                        // Parent registry (layered registries only)
	forward map[data.IdentityKind]map[string]binding // Forward maps per identity kind
	reverse map[data.ID]*identityEntry               // Reverse map (nil entry: no identities in this layer)
	stamps  map[IdentityKey]uint64                   // Version of the last change of an identity
	touched map[IdentityKey]bool                     // Identities changed in this registry
	version uint64                                   // Change counter
}

/*
NewIdentityRegistry creates a new identity registry.
*/
func NewIdentityRegistry() *IdentityRegistry {
	return NewLayeredIdentityRegistry(nil)
}

/*
NewLayeredIdentityRegistry creates a new identity registry on top of a given
parent registry. Lookups which are not answered by the layer are delegated to
the parent. The parent is never modified.
*/
func NewLayeredIdentityRegistry(parent *IdentityRegistry) *IdentityRegistry {
	ir := &IdentityRegistry{
		parent:  parent,
		forward: make(map[data.IdentityKind]map[string]binding),
		reverse: make(map[data.ID]*identityEntry),
		stamps:  make(map[IdentityKey]uint64),
		touched: make(map[IdentityKey]bool),
	}

	for _, k := range data.IdentityKinds {
		ir.forward[k] = make(map[string]binding)
	}

	return ir
}

/*
Resolve returns the construct which holds a given identity or NoID.
*/
func (ir *IdentityRegistry) Resolve(kind data.IdentityKind, loc data.Locator) data.ID {
	if b, ok := ir.forward[kind][loc.Reference()]; ok {
		return b.id
	}
	if ir.parent != nil {
		return ir.parent.Resolve(kind, loc)
	}
	return data.NoID
}

/*
entry returns the reverse entry of a construct or nil.
*/
func (ir *IdentityRegistry) entry(id data.ID) *identityEntry {
	if e, ok := ir.reverse[id]; ok {
		return e
	}
	if ir.parent != nil {
		return ir.parent.entry(id)
	}
	return nil
}

/*
Identities returns all identities of a given construct. Each list is sorted by
reference.
*/
func (ir *IdentityRegistry) Identities(id data.ID) *Identities {
	ret := &Identities{}

	e := ir.entry(id)
	if e == nil {
		return ret
	}

	ret.Kind = e.kind

	for k, loc := range e.locs {
		switch k.Kind {
		case data.ItemIdentifier:
			ret.ItemIdentifiers = append(ret.ItemIdentifiers, loc)
		case data.SubjectIdentifier:
			ret.SubjectIdentifiers = append(ret.SubjectIdentifiers, loc)
		case data.SubjectLocator:
			ret.SubjectLocators = append(ret.SubjectLocators, loc)
		}
	}

	sortLocators(ret.ItemIdentifiers)
	sortLocators(ret.SubjectIdentifiers)
	sortLocators(ret.SubjectLocators)

	return ret
}

/*
Check checks if a given construct can take a given identity. Returns the id
of a topic which must be merged with the construct before the identity can be
registered. Returns an IdentityConflict error if the identity is held by a
construct of an incompatible kind.
*/
func (ir *IdentityRegistry) Check(kind data.IdentityKind, loc data.Locator,
	id data.ID, ckind data.ConstructKind) (data.ID, error) {

	if loc.IsZero() {
		return data.NoID, NewError(ErrInvalidData, "Identity must not be empty")
	}

	if kind != data.ItemIdentifier && ckind != data.KindTopic {
		return data.NoID, NewError(ErrInvalidData, "Only topics can have a %v", kind)
	}

	if bound := ir.Resolve(kind, loc); bound != data.NoID && bound != id {
		if ckind == data.KindTopic && ir.kindOf(bound) == data.KindTopic {
			return bound, nil
		}

		return data.NoID, NewError(ErrIdentityConflict, "%v %v is already held by %v #%v",
			kind, loc, ir.kindOf(bound), bound)
	}

	if ckind == data.KindTopic {

		// Subject identifiers and item identifiers of topics share one space

		var other data.IdentityKind

		if kind == data.SubjectIdentifier {
			other = data.ItemIdentifier
		} else if kind == data.ItemIdentifier {
			other = data.SubjectIdentifier
		}

		if other != 0 {
			if bound := ir.Resolve(other, loc); bound != data.NoID && bound != id &&
				ir.kindOf(bound) == data.KindTopic {
				return bound, nil
			}
		}
	}

	return data.NoID, nil
}

/*
Register binds an identity to a given construct. Returns the id of a topic
which must be merged with the construct first. In this case nothing is
registered.
*/
func (ir *IdentityRegistry) Register(kind data.IdentityKind, loc data.Locator,
	id data.ID, ckind data.ConstructKind) (data.ID, error) {

	other, err := ir.Check(kind, loc, id, ckind)
	if other != data.NoID || err != nil {
		return other, err
	}

	if ir.Resolve(kind, loc) == id {
		return data.NoID, nil
	}

	key := IdentityKey{kind, loc.Reference()}

	ir.forward[kind][key.Reference] = binding{loc, id}

	e := ir.localEntry(id)
	if e == nil {
		e = &identityEntry{ckind, make(map[IdentityKey]data.Locator)}
		ir.reverse[id] = e
	}
	e.locs[key] = loc

	ir.stamp(key)

	return data.NoID, nil
}

/*
Unregister removes an identity from a given construct. Returns if the
identity was bound to the construct.
*/
func (ir *IdentityRegistry) Unregister(kind data.IdentityKind, loc data.Locator, id data.ID) bool {
	if id == data.NoID || ir.Resolve(kind, loc) != id {
		return false
	}

	key := IdentityKey{kind, loc.Reference()}

	if ir.parent != nil {
		ir.forward[kind][key.Reference] = binding{loc, data.NoID}
	} else {
		delete(ir.forward[kind], key.Reference)
	}

	e := ir.localEntry(id)
	delete(e.locs, key)

	if len(e.locs) == 0 {
		if ir.parent != nil {
			ir.reverse[id] = nil
		} else {
			delete(ir.reverse, id)
		}
	}

	ir.stamp(key)

	return true
}

/*
localEntry returns a reverse entry which can be modified in this layer.
*/
func (ir *IdentityRegistry) localEntry(id data.ID) *identityEntry {
	if e, ok := ir.reverse[id]; ok {
		return e
	}

	if ir.parent != nil {
		if e := ir.parent.entry(id); e != nil {
			e = e.copy()
			ir.reverse[id] = e
			return e
		}
	}

	return nil
}

func (ir *IdentityRegistry) kindOf(id data.ID) data.ConstructKind {
	if e := ir.entry(id); e != nil {
		return e.kind
	}
	return 0
}

func (ir *IdentityRegistry) stamp(key IdentityKey) {
	ir.version++
	ir.stamps[key] = ir.version
	ir.touched[key] = true
}

/*
Version returns the change counter of this registry.
*/
func (ir *IdentityRegistry) Version() uint64 {
	return ir.version
}

/*
Stamp returns the change counter value of the last change of a given identity
or 0 if the identity was never changed.
*/
func (ir *IdentityRegistry) Stamp(key IdentityKey) uint64 {
	return ir.stamps[key]
}

/*
Touched returns all identities which were changed in this registry.
*/
func (ir *IdentityRegistry) Touched() []IdentityKey {
	var ret []IdentityKey

	for k := range ir.touched {
		ret = append(ret, k)
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Kind != ret[j].Kind {
			return ret[i].Kind < ret[j].Kind
		}
		return ret[i].Reference < ret[j].Reference
	})

	return ret
}

/*
Locators returns all bound identities of a given kind sorted by reference.
*/
func (ir *IdentityRegistry) Locators(kind data.IdentityKind) []data.Locator {
	var ret []data.Locator

	bindings := make(map[string]binding)
	ir.collect(kind, bindings)

	for _, b := range bindings {
		if b.id != data.NoID {
			ret = append(ret, b.loc)
		}
	}

	sortLocators(ret)

	return ret
}

func (ir *IdentityRegistry) collect(kind data.IdentityKind, bindings map[string]binding) {
	if ir.parent != nil {
		ir.parent.collect(kind, bindings)
	}
	for k, b := range ir.forward[kind] {
		bindings[k] = b
	}
}

/*
Snapshot returns a flat copy of all bindings of this registry. Later changes
of this registry do not show in the copy.
*/
func (ir *IdentityRegistry) Snapshot() *IdentityRegistry {
	ret := NewIdentityRegistry()

	for _, k := range data.IdentityKinds {
		bindings := make(map[string]binding)
		ir.collect(k, bindings)

		for ref, b := range bindings {
			if b.id != data.NoID {
				ret.forward[k][ref] = b
			}
		}
	}

	ir.collectEntries(ret.reverse)

	return ret
}

func (ir *IdentityRegistry) collectEntries(entries map[data.ID]*identityEntry) {
	if ir.parent != nil {
		ir.parent.collectEntries(entries)
	}
	for id, e := range ir.reverse {
		if e == nil {
			delete(entries, id)
		} else {
			entries[id] = e.copy()
		}
	}
}

/*
Clear unbinds all identities.
*/
func (ir *IdentityRegistry) Clear() {
	for _, k := range data.IdentityKinds {
		for _, loc := range ir.Locators(k) {
			ir.Unregister(k, loc, ir.Resolve(k, loc))
		}
	}
}

func sortLocators(locs []data.Locator) {
	sort.Slice(locs, func(i, j int) bool {
		return locs[i].Reference() < locs[j].Reference()
	})
}
