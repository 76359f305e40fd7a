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
	"bytes"
	"fmt"
	"sort"
	"sync"

	"devt.de/krotik/common/timeutil"
	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
Journal is the append-only history of a store. Revisions form a linked chain
with exactly one terminal revision.
*/
type Journal struct {
	revisions []*Revision   // All revisions in order
	segment   bool          // Flag if the next revision starts a new segment
	lock      *sync.RWMutex // Lock for the revision chain
}

/*
newJournal creates a new empty journal.
*/
func newJournal() *Journal {
	return &Journal{lock: &sync.RWMutex{}}
}

/*
append adds a new revision for a list of changes. Returns the new revision.
*/
func (j *Journal) append(changes []*pendingChange, metadata map[string]string) *Revision {
	j.lock.Lock()
	defer j.lock.Unlock()

	id := uint64(len(j.revisions) + 1)

	r := &Revision{
		id:           id,
		timestamp:    timeutil.MakeTimestamp(),
		metadata:     make(map[string]string),
		segmentStart: j.segment,
		journal:      j,
	}

	for _, c := range changes {
		r.changes = append(r.changes, data.NewChange(id, c.kind, c.notifier, c.newValue, c.oldValue))
	}

	for k, v := range metadata {
		r.metadata[k] = v
	}

	if l := len(j.revisions); l > 0 {
		r.previous = j.revisions[l-1]
		r.previous.future = r
	}

	j.revisions = append(j.revisions, r)
	j.segment = false

	return r
}

/*
startSegment marks the next revision as the start of a new segment.
*/
func (j *Journal) startSegment() {
	j.lock.Lock()
	defer j.lock.Unlock()

	if len(j.revisions) > 0 {
		j.segment = true
	}
}

/*
First returns the first revision or nil if there are no revisions.
*/
func (j *Journal) First() *Revision {
	j.lock.RLock()
	defer j.lock.RUnlock()

	if len(j.revisions) == 0 {
		return nil
	}

	return j.revisions[0]
}

/*
Last returns the terminal revision or nil if there are no revisions.
*/
func (j *Journal) Last() *Revision {
	j.lock.RLock()
	defer j.lock.RUnlock()

	if len(j.revisions) == 0 {
		return nil
	}

	return j.revisions[len(j.revisions)-1]
}

/*
Revision returns a revision by its id or nil if there is no such revision.
*/
func (j *Journal) Revision(id uint64) *Revision {
	j.lock.RLock()
	defer j.lock.RUnlock()

	if id == 0 || id > uint64(len(j.revisions)) {
		return nil
	}

	return j.revisions[id-1]
}

/*
Len returns the number of revisions.
*/
func (j *Journal) Len() int {
	j.lock.RLock()
	defer j.lock.RUnlock()

	return len(j.revisions)
}

/*
Revisions returns all revisions in order.
*/
func (j *Journal) Revisions() []*Revision {
	j.lock.RLock()
	defer j.lock.RUnlock()

	ret := make([]*Revision, len(j.revisions))
	copy(ret, j.revisions)

	return ret
}

/*
Revision is a single unit of recorded history.
*/
type Revision struct {
	id           uint64            // Revision id
	timestamp    string            // Creation time (milliseconds since epoch)
	changes      []*data.Change    // Ordered changeset
	metadata     map[string]string // Revision metadata
	previous     *Revision         // Previous revision
	future       *Revision         // Next revision
	segmentStart bool              // Flag if revision management was re-enabled before this revision
	journal      *Journal          // Journal which owns the revision
}

/*
ID returns the id of this revision.
*/
func (r *Revision) ID() uint64 {
	return r.id
}

/*
Timestamp returns the creation time of this revision.
*/
func (r *Revision) Timestamp() string {
	return r.timestamp
}

/*
Changeset returns the changeset of this revision.
*/
func (r *Revision) Changeset() *Changeset {
	return &Changeset{r.changes}
}

/*
Previous returns the previous revision or nil.
*/
func (r *Revision) Previous() *Revision {
	return r.previous
}

/*
Future returns the next revision or nil if this is the terminal revision.
*/
func (r *Revision) Future() *Revision {
	r.journal.lock.RLock()
	defer r.journal.lock.RUnlock()

	return r.future
}

/*
SegmentStart returns if this revision starts a new segment of the history.
*/
func (r *Revision) SegmentStart() bool {
	return r.segmentStart
}

/*
Metadata returns a metadata value of this revision.
*/
func (r *Revision) Metadata(key string) (string, bool) {
	r.journal.lock.RLock()
	defer r.journal.lock.RUnlock()

	v, ok := r.metadata[key]

	return v, ok
}

/*
MetadataKeys returns all metadata keys of this revision.
*/
func (r *Revision) MetadataKeys() []string {
	r.journal.lock.RLock()
	defer r.journal.lock.RUnlock()

	var ret []string

	for k := range r.metadata {
		ret = append(ret, k)
	}

	sort.Strings(ret)

	return ret
}

/*
SetMetadata sets a metadata value of this revision. An existing value is
overwritten.
*/
func (r *Revision) SetMetadata(key, value string) {
	r.journal.lock.Lock()
	defer r.journal.lock.Unlock()

	r.metadata[key] = value
}

/*
String returns a string representation of this revision.
*/
func (r *Revision) String() string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Revision %v (%v changes)\n", r.id, len(r.changes)))

	for _, c := range r.changes {
		buf.WriteString("  ")
		buf.WriteString(c.String())
		buf.WriteString("\n")
	}

	return buf.String()
}

/*
Changeset is the ordered list of changes of a revision.
*/
type Changeset struct {
	changes []*data.Change
}

/*
Len returns the number of changes.
*/
func (cs *Changeset) Len() int {
	return len(cs.changes)
}

/*
Get returns a single change.
*/
func (cs *Changeset) Get(i int) *data.Change {
	return cs.changes[i]
}

/*
Changes returns all changes.
*/
func (cs *Changeset) Changes() []*data.Change {
	ret := make([]*data.Change, len(cs.changes))
	copy(ret, cs.changes)
	return ret
}
