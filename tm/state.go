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
	"sort"
	"sync/atomic"

	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
state holds all constructs, identities and aliases of a topic map. All
mutations happen inside a batch which can be rolled back.
*/
type state interface {

	/*
	   get returns a construct or nil if the construct does not exist. The
	   returned construct must not be modified.
	*/
	get(id data.ID) *construct

	/*
	   mutable returns a construct which can be modified in the current batch.
	*/
	mutable(id data.ID) *construct

	/*
	   add adds a new construct.
	*/
	add(c *construct)

	/*
	   drop removes a construct.
	*/
	drop(id data.ID)

	/*
	   ids returns the ids of all constructs of a given kind in ascending order.
	*/
	ids(kind data.ConstructKind) []data.ID

	/*
	   registry returns the identity registry.
	*/
	registry() *util.IdentityRegistry

	/*
	   register binds an identity to a construct. Returns the id of a topic
	   which must be merged first.
	*/
	register(kind data.IdentityKind, loc data.Locator, id data.ID, ckind data.ConstructKind) (data.ID, error)

	/*
	   unregister removes an identity from a construct.
	*/
	unregister(kind data.IdentityKind, loc data.Locator, id data.ID) bool

	/*
	   scopes returns the scope cache.
	*/
	scopes() *data.ScopeCache

	/*
	   alias returns the construct which absorbed a given construct or NoID.
	*/
	alias(id data.ID) data.ID

	/*
	   setAlias records that a construct was absorbed by another.
	*/
	setAlias(from, to data.ID)

	/*
	   allocate returns a new unique construct id.
	*/
	allocate() data.ID

	/*
	   begin starts a new batch.
	*/
	begin()

	/*
	   commit finishes the current batch.
	*/
	commit()

	/*
	   rollback reverts all changes of the current batch.
	*/
	rollback()
}

/*
stateCore contains the parts which are shared by all state implementations.
*/
type stateCore struct {
	undo    []func()               // Undo operations of the current batch
	saved   map[data.ID]bool       // Constructs which were copied in the current batch
	inBatch bool                   // Flag if a batch is running
	reg     *util.IdentityRegistry // Identity registry
	scache  *data.ScopeCache       // Scope cache
	aliases map[data.ID]data.ID    // Absorbed constructs
}

func (s *stateCore) registry() *util.IdentityRegistry {
	return s.reg
}

func (s *stateCore) scopes() *data.ScopeCache {
	return s.scache
}

func (s *stateCore) record(f func()) {
	s.undo = append(s.undo, f)
}

func (s *stateCore) begin() {
	s.undo = nil
	s.saved = make(map[data.ID]bool)
	s.inBatch = true
}

func (s *stateCore) commit() {
	s.undo = nil
	s.saved = nil
	s.inBatch = false
}

func (s *stateCore) rollback() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.commit()
}

func (s *stateCore) register(kind data.IdentityKind, loc data.Locator,
	id data.ID, ckind data.ConstructKind) (data.ID, error) {

	if s.reg.Resolve(kind, loc) == id {
		return data.NoID, nil
	}

	other, err := s.reg.Register(kind, loc, id, ckind)

	if other == data.NoID && err == nil {
		s.record(func() {
			s.reg.Unregister(kind, loc, id)
		})
	}

	return other, err
}

func (s *stateCore) unregister(kind data.IdentityKind, loc data.Locator, id data.ID) bool {
	ckind := s.reg.Identities(id).Kind

	ok := s.reg.Unregister(kind, loc, id)

	if ok {
		s.record(func() {
			s.reg.Register(kind, loc, id, ckind)
		})
	}

	return ok
}

func (s *stateCore) setAlias(from, to data.ID) {
	old, ok := s.aliases[from]

	s.aliases[from] = to

	s.record(func() {
		if ok {
			s.aliases[from] = old
		} else {
			delete(s.aliases, from)
		}
	})
}

// Base state
// ==========

/*
baseState is the state of a store.
*/
type baseState struct {
	stateCore
	arena   map[data.ID]*construct // All live constructs
	removed map[data.ID]uint64     // Batch version in which a construct was removed
	counter *uint64                // Construct id counter
	version uint64                 // Number of committed batches
}

/*
newBaseState creates a new empty base state.
*/
func newBaseState() *baseState {
	var counter uint64

	return &baseState{
		stateCore: stateCore{
			reg:     util.NewIdentityRegistry(),
			scache:  data.NewScopeCache(nil),
			aliases: make(map[data.ID]data.ID),
		},
		arena:   make(map[data.ID]*construct),
		removed: make(map[data.ID]uint64),
		counter: &counter,
	}
}

func (s *baseState) get(id data.ID) *construct {
	return s.arena[id]
}

func (s *baseState) mutable(id data.ID) *construct {
	c, ok := s.arena[id]
	if !ok || s.saved[id] {
		return c
	}

	s.saved[id] = true

	clone := c.clone()
	s.arena[id] = clone

	s.record(func() {
		s.arena[id] = c
	})

	return clone
}

func (s *baseState) add(c *construct) {
	s.arena[c.id] = c
	s.saved[c.id] = true

	s.record(func() {
		delete(s.arena, c.id)
	})
}

func (s *baseState) drop(id data.ID) {
	c, ok := s.arena[id]
	if !ok {
		return
	}

	oldStamp, stamped := s.removed[id]

	delete(s.arena, id)
	s.removed[id] = s.version + 1

	s.record(func() {
		s.arena[id] = c
		if stamped {
			s.removed[id] = oldStamp
		} else {
			delete(s.removed, id)
		}
	})
}

func (s *baseState) ids(kind data.ConstructKind) []data.ID {
	var ret []data.ID

	for id, c := range s.arena {
		if c.kind == kind {
			ret = append(ret, id)
		}
	}

	sortIDs(ret)

	return ret
}

func (s *baseState) alias(id data.ID) data.ID {
	return s.aliases[id]
}

func (s *baseState) allocate() data.ID {
	return data.ID(atomic.AddUint64(s.counter, 1))
}

func (s *baseState) commit() {
	s.stateCore.commit()
	s.version++
}

/*
removedSince returns if a construct was removed after a given batch version.
*/
func (s *baseState) removedSince(id data.ID, version uint64) bool {
	return s.removed[id] > version
}

// Overlay state
// =============

/*
overlayState is a copy-on-write view on a base state as it was when the
overlay was created. Constructs which are not modified are read from the
captured base constructs. The base state is never modified.
*/
type overlayState struct {
	stateCore
	base        *baseState             // Base state
	arena       map[data.ID]*construct // Base constructs when the overlay was created
	baseAliases map[data.ID]data.ID    // Base aliases when the overlay was created
	local       map[data.ID]*construct // Local copies and new constructs
	dropped     map[data.ID]bool       // Removed constructs
	referenced  map[data.ID]bool       // Base constructs which were used by a batch
}

/*
newOverlayState creates a new overlay on top of a given base state. Must be
called with the base lock held. Base constructs of finished batches are never
modified so copying the maps freezes the view.
*/
func newOverlayState(base *baseState) *overlayState {
	arena := make(map[data.ID]*construct, len(base.arena))
	for id, c := range base.arena {
		arena[id] = c
	}

	aliases := make(map[data.ID]data.ID, len(base.aliases))
	for from, to := range base.aliases {
		aliases[from] = to
	}

	return &overlayState{
		stateCore: stateCore{
			reg:     util.NewLayeredIdentityRegistry(base.reg.Snapshot()),
			scache:  data.NewScopeCache(base.scache),
			aliases: make(map[data.ID]data.ID),
		},
		base:        base,
		arena:       arena,
		baseAliases: aliases,
		local:       make(map[data.ID]*construct),
		dropped:     make(map[data.ID]bool),
		referenced:  make(map[data.ID]bool),
	}
}

func (s *overlayState) get(id data.ID) *construct {
	if s.dropped[id] {
		return nil
	}

	if c, ok := s.local[id]; ok {
		return c
	}

	c := s.arena[id]

	if c != nil && s.inBatch && !s.referenced[id] {
		s.referenced[id] = true

		s.record(func() {
			delete(s.referenced, id)
		})
	}

	return c
}

func (s *overlayState) mutable(id data.ID) *construct {
	c := s.get(id)
	if c == nil || s.saved[id] {
		return c
	}

	s.saved[id] = true

	old, hadLocal := s.local[id]

	clone := c.clone()
	s.local[id] = clone

	s.record(func() {
		if hadLocal {
			s.local[id] = old
		} else {
			delete(s.local, id)
		}
	})

	return clone
}

func (s *overlayState) add(c *construct) {
	s.local[c.id] = c
	s.saved[c.id] = true

	s.record(func() {
		delete(s.local, c.id)
	})
}

func (s *overlayState) drop(id data.ID) {
	old, hadLocal := s.local[id]

	delete(s.local, id)
	s.dropped[id] = true

	s.record(func() {
		delete(s.dropped, id)
		if hadLocal {
			s.local[id] = old
		}
	})
}

func (s *overlayState) ids(kind data.ConstructKind) []data.ID {
	var ret []data.ID

	for id, c := range s.arena {
		if c.kind == kind && !s.dropped[id] {
			if _, ok := s.local[id]; !ok {
				ret = append(ret, id)
			}
		}
	}

	for id, c := range s.local {
		if c.kind == kind {
			ret = append(ret, id)
		}
	}

	sortIDs(ret)

	return ret
}

func (s *overlayState) alias(id data.ID) data.ID {
	if to, ok := s.aliases[id]; ok {
		return to
	}
	return s.baseAliases[id]
}

func (s *overlayState) allocate() data.ID {
	return s.base.allocate()
}

/*
touched returns all base constructs which were modified, removed or used by
this overlay.
*/
func (s *overlayState) touched() []data.ID {
	seen := make(map[data.ID]bool)

	for id := range s.local {
		seen[id] = true
	}
	for id := range s.dropped {
		seen[id] = true
	}
	for id := range s.referenced {
		seen[id] = true
	}

	var ret []data.ID

	for id := range seen {
		ret = append(ret, id)
	}

	sortIDs(ret)

	return ret
}

func sortIDs(ids []data.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
