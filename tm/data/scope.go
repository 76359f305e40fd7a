/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

/*
Scope is an immutable set of theme topics.
*/
type Scope struct {
	key    string // Canonical key of the theme set
	themes []ID   // Sorted themes
}

/*
Key returns the canonical key of this scope.
*/
func (s *Scope) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

/*
Themes returns the themes of this scope.
*/
func (s *Scope) Themes() []ID {
	if s == nil {
		return nil
	}
	ret := make([]ID, len(s.themes))
	copy(ret, s.themes)
	return ret
}

/*
Len returns the number of themes in this scope.
*/
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.themes)
}

/*
IsUnconstrained returns if this scope has no themes.
*/
func (s *Scope) IsUnconstrained() bool {
	return s.Len() == 0
}

/*
Contains returns if a given topic is a theme of this scope.
*/
func (s *Scope) Contains(theme ID) bool {
	if s == nil {
		return false
	}
	i := sort.Search(len(s.themes), func(i int) bool { return s.themes[i] >= theme })
	return i < len(s.themes) && s.themes[i] == theme
}

/*
ContainsAll returns if all themes of another scope are themes of this scope.
*/
func (s *Scope) ContainsAll(other *Scope) bool {
	for _, t := range other.Themes() {
		if !s.Contains(t) {
			return false
		}
	}
	return true
}

/*
String returns a string representation of this scope.
*/
func (s *Scope) String() string {
	return fmt.Sprintf("Scope[%v]", s.Key())
}

/*
normalizeThemes returns a sorted duplicate-free copy of a theme list.
*/
func normalizeThemes(themes []ID) []ID {
	ret := make([]ID, 0, len(themes))
	seen := make(map[ID]bool)

	for _, t := range themes {
		if t != NoID && !seen[t] {
			seen[t] = true
			ret = append(ret, t)
		}
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })

	return ret
}

/*
ScopeKey returns the canonical key for a given list of themes.
*/
func ScopeKey(themes []ID) string {
	var buf strings.Builder

	for i, t := range normalizeThemes(themes) {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString(fmt.Sprint(uint64(t)))
	}

	return buf.String()
}

/*
ScopeCache makes sure that scopes with identical theme sets are
represented once.
*/
type ScopeCache struct {
	parent *ScopeCache       // Parent cache which is consulted for unknown scopes
	scopes map[string]*Scope // Known scopes
	mutex  *sync.Mutex       // Mutex to protect the scope map
}

/*
NewScopeCache creates a new scope cache. The parent cache is optional.
*/
func NewScopeCache(parent *ScopeCache) *ScopeCache {
	return &ScopeCache{parent, make(map[string]*Scope), &sync.Mutex{}}
}

/*
Get returns the canonical scope for a given list of themes.
*/
func (sc *ScopeCache) Get(themes []ID) *Scope {
	normalized := normalizeThemes(themes)
	key := ScopeKey(normalized)

	if s := sc.lookup(key); s != nil {
		return s
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if s, ok := sc.scopes[key]; ok {
		return s
	}

	s := &Scope{key, normalized}
	sc.scopes[key] = s

	return s
}

/*
lookup looks up an existing scope in this cache or its parents. A scope known
to this cache is preferred so a once returned scope stays canonical.
*/
func (sc *ScopeCache) lookup(key string) *Scope {
	sc.mutex.Lock()
	s := sc.scopes[key]
	sc.mutex.Unlock()

	if s == nil && sc.parent != nil {
		s = sc.parent.lookup(key)
	}

	return s
}

/*
Size returns the number of scopes held by this cache (excluding parents).
*/
func (sc *ScopeCache) Size() int {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	return len(sc.scopes)
}
