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
	"sync"

	"devt.de/krotik/common/datautil"
	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
labelKey is the cache key of a best label or best identifier.
*/
type labelKey struct {
	topic      data.ID
	theme      data.ID
	strict     bool
	identifier bool
	prefix     bool
}

/*
String returns the cache key string of this label key.
*/
func (k labelKey) String() string {
	return fmt.Sprintf("%v/%v/%v/%v/%v", k.topic, k.theme, k.strict, k.identifier, k.prefix)
}

/*
labelCache caches best labels and best identifiers of topics. The cache is
kept up to date by the change notifications of its store.
*/
type labelCache struct {
	maxSize uint64                      // Maximum number of cached labels
	cache   *datautil.MapCache          // Cached labels
	keys    map[data.ID]map[string]bool // Cache keys per topic
	names   map[data.ID]data.ID         // Owning topics of names
	lock    *sync.Mutex                 // Lock for key bookkeeping
}

/*
newLabelCache creates a new label cache.
*/
func newLabelCache(maxSize uint64) *labelCache {
	return &labelCache{
		maxSize: maxSize,
		cache:   datautil.NewMapCache(maxSize, 0),
		keys:    make(map[data.ID]map[string]bool),
		names:   make(map[data.ID]data.ID),
		lock:    &sync.Mutex{},
	}
}

/*
get looks up a cached label.
*/
func (lc *labelCache) get(k labelKey) (string, bool) {
	lc.lock.Lock()
	cache := lc.cache
	lc.lock.Unlock()

	if v, ok := cache.Get(k.String()); ok {
		labelCacheHits.Inc()
		return v.(string), true
	}

	labelCacheMisses.Inc()

	return "", false
}

/*
put stores a label.
*/
func (lc *labelCache) put(k labelKey, label string) {
	lc.lock.Lock()
	defer lc.lock.Unlock()

	ks := k.String()

	if _, ok := lc.keys[k.topic]; !ok {
		lc.keys[k.topic] = make(map[string]bool)
	}
	lc.keys[k.topic][ks] = true

	lc.cache.Put(ks, label)
}

/*
invalidate removes all cached labels of a topic.
*/
func (lc *labelCache) invalidate(topic data.ID) {
	lc.lock.Lock()
	defer lc.lock.Unlock()

	for k := range lc.keys[topic] {
		lc.cache.Remove(k)
	}

	delete(lc.keys, topic)
}

/*
clear removes all cached labels.
*/
func (lc *labelCache) clear() {
	lc.lock.Lock()
	defer lc.lock.Unlock()

	lc.cache = datautil.NewMapCache(lc.maxSize, 0)
	lc.keys = make(map[data.ID]map[string]bool)
}

/*
OnChange updates the cache on a change of the topic map.
*/
func (lc *labelCache) OnChange(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
	switch event {

	case data.EventNameAdded:
		if s, ok := newValue.(*data.Snapshot); ok {
			lc.setOwner(s.ID(), notifier)
		}
		lc.invalidate(notifier)

	case data.EventNameRemoved:
		if s, ok := oldValue.(*data.Snapshot); ok {
			lc.setOwner(s.ID(), data.NoID)
		}
		lc.invalidate(notifier)

	case data.EventValueModified, data.EventTypeSet, data.EventScopeModified:
		if owner := lc.owner(notifier); owner != data.NoID {
			lc.invalidate(owner)
		}

	case data.EventSubjectIdentifierAdded, data.EventSubjectIdentifierRemoved:
		if isDefaultNameType(newValue) || isDefaultNameType(oldValue) {
			lc.clear()
		} else {
			lc.invalidate(notifier)
		}

	case data.EventSubjectLocatorAdded, data.EventSubjectLocatorRemoved,
		data.EventItemIdentifierAdded, data.EventItemIdentifierRemoved:
		lc.invalidate(notifier)

	case data.EventTopicRemoved:
		if s, ok := oldValue.(*data.Snapshot); ok {
			lc.invalidate(s.ID())
		}

	case data.EventMerge:
		if s, ok := oldValue.(*data.Snapshot); ok {
			for _, n := range s.Names() {
				lc.setOwner(n, notifier)
			}
		}
		lc.clear()

	case data.EventRemoveDuplicates:
		if s, ok := oldValue.(*data.Snapshot); ok && s.Kind() == data.KindName {
			lc.setOwner(s.ID(), data.NoID)
		}
		lc.clear()

	case data.EventTopicMapCleared:
		lc.lock.Lock()
		lc.names = make(map[data.ID]data.ID)
		lc.lock.Unlock()

		lc.clear()
	}
}

func (lc *labelCache) setOwner(name, topic data.ID) {
	lc.lock.Lock()
	defer lc.lock.Unlock()

	if topic == data.NoID {
		delete(lc.names, name)
	} else {
		lc.names[name] = topic
	}
}

func (lc *labelCache) owner(name data.ID) data.ID {
	lc.lock.Lock()
	defer lc.lock.Unlock()

	return lc.names[name]
}

func isDefaultNameType(v interface{}) bool {
	loc, ok := v.(data.Locator)
	return ok && loc == data.PSITopicName
}

// Label computation
// =================

/*
bestLabel returns the best label of a topic. With a theme only names which
contain the theme are considered. In strict mode no other names are used as
fallback.
*/
func (e *engine) bestLabel(topicID, theme data.ID, strict bool) string {
	key := labelKey{topic: topicID, theme: theme, strict: strict}

	if e.labels != nil {
		if l, ok := e.labels.get(key); ok {
			return l
		}
	}

	l := e.computeBestLabel(topicID, theme, strict)

	if e.labels != nil {
		e.labels.put(key, l)
	}

	return l
}

func (e *engine) computeBestLabel(topicID, theme data.ID, strict bool) string {
	var candidates []*construct

	t := e.st.get(topicID)

	for _, n := range t.names {
		if nc := e.st.get(n); nc != nil && (theme == data.NoID || nc.scope.Contains(theme)) {
			candidates = append(candidates, nc)
		}
	}

	if len(candidates) == 0 && theme != data.NoID {
		if strict {
			return ""
		}
		return e.computeBestLabel(topicID, data.NoID, false)
	}

	if len(candidates) == 0 {
		return e.bestIdentifier(topicID, false)
	}

	defaultType := e.lookupPSITopic(data.PSITopicName)

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]

		if di, dj := ci.typ == defaultType, cj.typ == defaultType; di != dj {
			return di
		}
		if ci.scope.Len() != cj.scope.Len() {
			return ci.scope.Len() < cj.scope.Len()
		}
		return ci.value < cj.value
	})

	return candidates[0].value
}

/*
bestIdentifier returns the best identifier of a topic: the smallest subject
identifier, subject locator or item identifier (in this order) or the
internal id.
*/
func (e *engine) bestIdentifier(topicID data.ID, prefix bool) string {
	key := labelKey{topic: topicID, identifier: true, prefix: prefix}

	if e.labels != nil {
		if l, ok := e.labels.get(key); ok {
			return l
		}
	}

	l := fmt.Sprint(uint64(topicID))
	ids := e.st.registry().Identities(topicID)

	for _, c := range []struct {
		prefix string
		locs   []data.Locator
	}{
		{"si:", ids.SubjectIdentifiers},
		{"sl:", ids.SubjectLocators},
		{"ii:", ids.ItemIdentifiers},
	} {
		if len(c.locs) > 0 {
			l = c.locs[0].Reference()
			if prefix {
				l = c.prefix + l
			}
			break
		}
	}

	if e.labels != nil {
		e.labels.put(key, l)
	}

	return l
}
