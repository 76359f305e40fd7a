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
	"regexp"
	"sync"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/stringutil"
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
IndexKind is the kind of an index.
*/
type IndexKind int

/*
Known index kinds
*/
const (
	IndexTypeInstance IndexKind = iota + 1
	IndexLiteral
	IndexScoped
	IndexIdentity
	IndexRevision
)

var indexKindNames = map[IndexKind]string{
	IndexTypeInstance: "TypeInstance",
	IndexLiteral:      "Literal",
	IndexScoped:       "Scoped",
	IndexIdentity:     "Identity",
	IndexRevision:     "Revision",
}

/*
String returns a string representation of this index kind.
*/
func (k IndexKind) String() string {
	if n, ok := indexKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("IndexKind(%d)", int(k))
}

/*
Index is a query access point of a store. Queries on a closed index fail.
*/
type Index interface {

	/*
		Kind returns the kind of this index.
	*/
	Kind() IndexKind

	/*
		Open opens this index.
	*/
	Open() error

	/*
		Close closes this index and drops all cached results.
	*/
	Close()

	/*
		IsOpen returns if this index is open.
	*/
	IsOpen() bool
}

// Index set
// =========

/*
indexSet holds all indexes of a store.
*/
type indexSet struct {
	store   *MemoryStore
	indexes map[IndexKind]*indexBase
	typed   *TypeInstanceIndex
	literal *LiteralIndex
	scoped  *ScopedIndex
	ident   *IdentityIndex
	revs    *RevisionIndex
}

/*
newIndexSet creates all indexes of a given store. All indexes start closed.
*/
func newIndexSet(s *MemoryStore) *indexSet {
	newBase := func(kind IndexKind) *indexBase {
		return &indexBase{kind: kind, store: s, lock: &sync.Mutex{}}
	}

	is := &indexSet{
		store:   s,
		typed:   &TypeInstanceIndex{newBase(IndexTypeInstance)},
		literal: &LiteralIndex{newBase(IndexLiteral)},
		scoped:  &ScopedIndex{newBase(IndexScoped)},
		ident:   &IdentityIndex{newBase(IndexIdentity)},
		revs:    &RevisionIndex{newBase(IndexRevision)},
	}

	is.indexes = map[IndexKind]*indexBase{
		IndexTypeInstance: is.typed.indexBase,
		IndexLiteral:      is.literal.indexBase,
		IndexScoped:       is.scoped.indexBase,
		IndexIdentity:     is.ident.indexBase,
		IndexRevision:     is.revs.indexBase,
	}

	return is
}

/*
get returns an index by its kind.
*/
func (is *indexSet) get(kind IndexKind) (Index, error) {
	switch kind {
	case IndexTypeInstance:
		return is.typed, nil
	case IndexLiteral:
		return is.literal, nil
	case IndexScoped:
		return is.scoped, nil
	case IndexIdentity:
		return is.ident, nil
	case IndexRevision:
		return is.revs, nil
	}

	return nil, util.NewError(util.ErrUnsupportedOperation, "Unknown index kind %v", kind)
}

/*
OnChange drops the cached results of all open indexes.
*/
func (is *indexSet) OnChange(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
	for _, ib := range is.indexes {
		ib.invalidate()
	}
}

// Index base
// ==========

/*
indexBase contains the parts which are shared by all indexes.
*/
type indexBase struct {
	kind  IndexKind          // Kind of the index
	store *MemoryStore       // Store of the index
	open  bool               // Flag if the index is open
	cache *datautil.MapCache // Cached query results
	gen   uint64             // Generation of the cached results
	lock  *sync.Mutex        // Lock for the index state
}

/*
Kind returns the kind of this index.
*/
func (ib *indexBase) Kind() IndexKind {
	return ib.kind
}

/*
Open opens this index.
*/
func (ib *indexBase) Open() error {
	ib.store.lock.RLock()
	closed := ib.store.closed
	ib.store.lock.RUnlock()

	if closed {
		return util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	ib.lock.Lock()
	defer ib.lock.Unlock()

	if !ib.open {
		ib.open = true
		ib.cache = datautil.NewMapCache(ib.store.opts.IndexCacheMaxSize, 0)
		ib.gen++
	}

	return nil
}

/*
Close closes this index and drops all cached results.
*/
func (ib *indexBase) Close() {
	ib.lock.Lock()
	defer ib.lock.Unlock()

	ib.open = false
	ib.cache = nil
	ib.gen++
}

/*
IsOpen returns if this index is open.
*/
func (ib *indexBase) IsOpen() bool {
	ib.lock.Lock()
	defer ib.lock.Unlock()

	return ib.open
}

/*
invalidate drops all cached results.
*/
func (ib *indexBase) invalidate() {
	ib.lock.Lock()
	defer ib.lock.Unlock()

	if ib.open {
		ib.cache = datautil.NewMapCache(ib.store.opts.IndexCacheMaxSize, 0)
		ib.gen++
	}
}

/*
query runs a query. Results are cached by key. The compute function is called
with the store read lock held.
*/
func (ib *indexBase) query(key string, compute func() interface{}) (interface{}, error) {
	ib.lock.Lock()

	if !ib.open {
		ib.lock.Unlock()
		return nil, util.NewError(util.ErrIndexError, "%v index is not open", ib.kind)
	}

	cache, gen := ib.cache, ib.gen

	ib.lock.Unlock()

	if res, ok := cache.Get(key); ok {
		return res, nil
	}

	ib.store.lock.RLock()
	res := compute()
	ib.store.lock.RUnlock()

	ib.lock.Lock()
	defer ib.lock.Unlock()

	// Results of an outdated generation are not cached

	if ib.gen == gen {
		ib.cache.Put(key, res)
	}

	return res, nil
}

/*
queryIDs runs a query which returns a list of construct ids.
*/
func (ib *indexBase) queryIDs(key string, compute func() []data.ID) ([]data.ID, error) {
	res, err := ib.query(key, func() interface{} {
		ret := compute()
		sortIDs(ret)
		return ret
	})

	if err != nil {
		return nil, err
	}

	return cloneIDs(res.([]data.ID)), nil
}

/*
filter returns all live constructs of a given kind which match a condition.
*/
func (ib *indexBase) filter(kind data.ConstructKind, cond func(c *construct) bool) []data.ID {
	var ret []data.ID

	base := ib.store.base

	for _, id := range base.ids(kind) {
		if c := base.get(id); cond(c) {
			ret = append(ret, id)
		}
	}

	return ret
}

/*
collect returns a duplicate free list of ids which are produced by all live
constructs of a given kind.
*/
func (ib *indexBase) collect(kind data.ConstructKind, produce func(c *construct) []data.ID) []data.ID {
	var ret []data.ID

	seen := make(map[data.ID]bool)
	base := ib.store.base

	for _, id := range base.ids(kind) {
		for _, p := range produce(base.get(id)) {
			if !seen[p] {
				seen[p] = true
				ret = append(ret, p)
			}
		}
	}

	return ret
}

// Type-instance index
// ===================

/*
TypeInstanceIndex finds constructs by their type.
*/
type TypeInstanceIndex struct {
	*indexBase
}

/*
Topics returns all topics which are instances of a given type. NoID returns
all topics without a type.
*/
func (ti *TypeInstanceIndex) Topics(typ data.ID) ([]data.ID, error) {
	return ti.queryIDs(fmt.Sprint("topics:", typ), func() []data.ID {
		return ti.filter(data.KindTopic, func(c *construct) bool {
			if typ == data.NoID {
				return len(c.types) == 0
			}
			return containsID(c.types, typ)
		})
	})
}

/*
TopicTypes returns all topics which are used as topic types.
*/
func (ti *TypeInstanceIndex) TopicTypes() ([]data.ID, error) {
	return ti.queryIDs("topictypes", func() []data.ID {
		return ti.collect(data.KindTopic, func(c *construct) []data.ID {
			return c.types
		})
	})
}

/*
Associations returns all associations of a given type.
*/
func (ti *TypeInstanceIndex) Associations(typ data.ID) ([]data.ID, error) {
	return ti.typed(data.KindAssociation, typ)
}

/*
AssociationTypes returns all topics which are used as association types.
*/
func (ti *TypeInstanceIndex) AssociationTypes() ([]data.ID, error) {
	return ti.types(data.KindAssociation)
}

/*
Roles returns all roles of a given type.
*/
func (ti *TypeInstanceIndex) Roles(typ data.ID) ([]data.ID, error) {
	return ti.typed(data.KindRole, typ)
}

/*
RoleTypes returns all topics which are used as role types.
*/
func (ti *TypeInstanceIndex) RoleTypes() ([]data.ID, error) {
	return ti.types(data.KindRole)
}

/*
Names returns all names of a given type.
*/
func (ti *TypeInstanceIndex) Names(typ data.ID) ([]data.ID, error) {
	return ti.typed(data.KindName, typ)
}

/*
NameTypes returns all topics which are used as name types.
*/
func (ti *TypeInstanceIndex) NameTypes() ([]data.ID, error) {
	return ti.types(data.KindName)
}

/*
Occurrences returns all occurrences of a given type.
*/
func (ti *TypeInstanceIndex) Occurrences(typ data.ID) ([]data.ID, error) {
	return ti.typed(data.KindOccurrence, typ)
}

/*
OccurrenceTypes returns all topics which are used as occurrence types.
*/
func (ti *TypeInstanceIndex) OccurrenceTypes() ([]data.ID, error) {
	return ti.types(data.KindOccurrence)
}

func (ti *TypeInstanceIndex) typed(kind data.ConstructKind, typ data.ID) ([]data.ID, error) {
	return ti.queryIDs(fmt.Sprint(kind, ":", typ), func() []data.ID {
		return ti.filter(kind, func(c *construct) bool {
			return c.typ == typ
		})
	})
}

func (ti *TypeInstanceIndex) types(kind data.ConstructKind) ([]data.ID, error) {
	return ti.queryIDs(fmt.Sprint(kind, "types"), func() []data.ID {
		return ti.collect(kind, func(c *construct) []data.ID {
			return []data.ID{c.typ}
		})
	})
}

// Literal index
// =============

/*
LiteralIndex finds characteristics by their value.
*/
type LiteralIndex struct {
	*indexBase
}

/*
Names returns all names with a given value.
*/
func (li *LiteralIndex) Names(value string) ([]data.ID, error) {
	return li.literals(data.KindName, value, data.Locator{})
}

/*
Occurrences returns all occurrences with a given value. A zero datatype
matches all datatypes.
*/
func (li *LiteralIndex) Occurrences(value string, datatype data.Locator) ([]data.ID, error) {
	return li.literals(data.KindOccurrence, value, datatype)
}

/*
Variants returns all variants with a given value. A zero datatype matches
all datatypes.
*/
func (li *LiteralIndex) Variants(value string, datatype data.Locator) ([]data.ID, error) {
	return li.literals(data.KindVariant, value, datatype)
}

func (li *LiteralIndex) literals(kind data.ConstructKind, value string, datatype data.Locator) ([]data.ID, error) {
	key := fmt.Sprintf("%v:%q:%v", kind, value, datatype.Reference())

	return li.queryIDs(key, func() []data.ID {
		return li.filter(kind, func(c *construct) bool {
			return c.value == value && (datatype.IsZero() || c.datatype == datatype)
		})
	})
}

// Scoped index
// ============

/*
ScopedIndex finds scoped constructs by their themes.
*/
type ScopedIndex struct {
	*indexBase
}

/*
Constructs returns all scoped constructs of a given kind which have a given
theme in their scope. NoID returns all constructs in the unconstrained scope.
*/
func (si *ScopedIndex) Constructs(kind data.ConstructKind, theme data.ID) ([]data.ID, error) {
	if !kind.IsScoped() {
		return nil, util.NewError(util.ErrUnsupportedOperation, "%v is not scoped", kind)
	}

	return si.queryIDs(fmt.Sprint(kind, ":", theme), func() []data.ID {
		return si.filter(kind, func(c *construct) bool {
			if theme == data.NoID {
				return c.scope.IsUnconstrained()
			}
			return c.scope.Contains(theme)
		})
	})
}

/*
Themes returns all topics which are used as themes by constructs of a given
kind.
*/
func (si *ScopedIndex) Themes(kind data.ConstructKind) ([]data.ID, error) {
	if !kind.IsScoped() {
		return nil, util.NewError(util.ErrUnsupportedOperation, "%v is not scoped", kind)
	}

	return si.queryIDs(fmt.Sprint(kind, "themes"), func() []data.ID {
		return si.collect(kind, func(c *construct) []data.ID {
			return c.scope.Themes()
		})
	})
}

// Identity index
// ==============

/*
IdentityIndex finds identities by glob patterns.
*/
type IdentityIndex struct {
	*indexBase
}

/*
Locators returns all registered locators of a given kind.
*/
func (ii *IdentityIndex) Locators(kind data.IdentityKind) ([]data.Locator, error) {
	res, err := ii.query(fmt.Sprint("locators:", kind), func() interface{} {
		return ii.store.base.reg.Locators(kind)
	})

	if err != nil {
		return nil, err
	}

	return cloneLocators(res.([]data.Locator)), nil
}

/*
Match returns all registered locators of a given kind which match a glob
pattern (e.g. http://example.org/*).
*/
func (ii *IdentityIndex) Match(kind data.IdentityKind, glob string) ([]data.Locator, error) {
	re, err := globRegexp(glob)
	if err != nil {
		return nil, err
	}

	res, err := ii.query(fmt.Sprintf("match:%v:%v", kind, glob), func() interface{} {
		var ret []data.Locator

		for _, loc := range ii.store.base.reg.Locators(kind) {
			if re.MatchString(loc.Reference()) {
				ret = append(ret, loc)
			}
		}

		return ret
	})

	if err != nil {
		return nil, err
	}

	return cloneLocators(res.([]data.Locator)), nil
}

/*
Constructs returns all constructs which have an identity of a given kind
which matches a glob pattern.
*/
func (ii *IdentityIndex) Constructs(kind data.IdentityKind, glob string) ([]data.ID, error) {
	re, err := globRegexp(glob)
	if err != nil {
		return nil, err
	}

	return ii.queryIDs(fmt.Sprintf("constructs:%v:%v", kind, glob), func() []data.ID {
		var ret []data.ID

		seen := make(map[data.ID]bool)
		reg := ii.store.base.reg

		for _, loc := range reg.Locators(kind) {
			if re.MatchString(loc.Reference()) {
				if id := reg.Resolve(kind, loc); id != data.NoID && !seen[id] {
					seen[id] = true
					ret = append(ret, id)
				}
			}
		}

		return ret
	})
}

func globRegexp(glob string) (*regexp.Regexp, error) {
	pattern, err := stringutil.GlobToRegex(glob)
	if err == nil {
		var re *regexp.Regexp
		if re, err = regexp.Compile("^" + pattern + "$"); err == nil {
			return re, nil
		}
	}

	return nil, util.NewError(util.ErrInvalidData, "Invalid pattern %v: %v", glob, err)
}

func cloneLocators(locs []data.Locator) []data.Locator {
	ret := make([]data.Locator, len(locs))
	copy(ret, locs)
	return ret
}

// Revision index
// ==============

/*
RevisionIndex finds revisions by the constructs they changed.
*/
type RevisionIndex struct {
	*indexBase
}

/*
Revisions returns the ids of all revisions which contain a change that
references a given construct.
*/
func (ri *RevisionIndex) Revisions(id data.ID) ([]uint64, error) {
	res, err := ri.query(fmt.Sprint("revisions:", id), func() interface{} {
		var ret []uint64

		for _, r := range ri.store.journal.Revisions() {
			for _, c := range r.changes {
				if c.References(id) {
					ret = append(ret, r.id)
					break
				}
			}
		}

		return ret
	})

	if err != nil {
		return nil, err
	}

	revs := res.([]uint64)
	ret := make([]uint64, len(revs))
	copy(ret, revs)

	return ret, nil
}
