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
	"sync"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/flowutil"
	"devt.de/krotik/common/pools"
	ecalutil "devt.de/krotik/ecal/util"
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
MemoryStore is an in-memory topic map store.
*/
type MemoryStore struct {
	opts    *Options        // Store options
	logger  ecalutil.Logger // Store logger
	base    *baseState      // Live state
	eng     *engine         // Engine which operates on the live state
	journal *Journal        // Revision journal
	labels  *labelCache     // Best label cache
	indexes *indexSet       // Indexes of the store

	revisions  bool                // Flag if revision management is enabled
	closed     bool                // Flag if the store was closed
	closing    bool                // Flag if the store accepts no more submitted operations
	submitLock *sync.Mutex         // Lock for submitting operations
	pump       *flowutil.EventPump // Dispatcher for external change listeners
	pool       *pools.ThreadPool   // Worker pool for submitted operations
	asyncErrs  []error             // Errors of submitted operations
	asyncLock  *sync.Mutex         // Lock for async errors
	transCount uint64              // Transaction id counter

	lock       *sync.RWMutex // Lock for the live state
	notifyLock *sync.Mutex   // Lock which keeps listener notifications in mutation order
}

var _ Store = &MemoryStore{}

/*
NewMemoryStore creates a new empty store. The store holds a single topic map.
*/
func NewMemoryStore(opts *Options) *MemoryStore {
	if opts == nil {
		opts = DefaultOptions()
	}

	logger := opts.Logger
	if logger == nil {
		logger = ecalutil.NewNullLogger()
	}

	base := newBaseState()

	s := &MemoryStore{
		opts:       opts,
		logger:     logger,
		base:       base,
		eng:        newEngine(base, opts.TypeInstance, logger),
		journal:    newJournal(),
		labels:     newLabelCache(opts.LabelCacheMaxSize),
		revisions:  opts.RevisionManagement,
		pump:       flowutil.NewEventPump(),
		pool:       pools.NewThreadPool(),
		asyncLock:  &sync.Mutex{},
		submitLock: &sync.Mutex{},
		lock:       &sync.RWMutex{},
		notifyLock: &sync.Mutex{},
	}

	s.eng.labels = s.labels
	s.indexes = newIndexSet(s)

	workers := opts.CommitWorkerCount
	if workers < 1 {
		workers = 1
	}
	s.pool.SetWorkerCount(workers, false)

	changes, err := s.eng.batch(s.createTopicMap)
	errorutil.AssertOk(err)

	// The creation of the topic map is always the first revision

	s.journal.append(changes, nil)

	return s
}

/*
createTopicMap creates the topic map construct.
*/
func (s *MemoryStore) createTopicMap() error {
	tm := &construct{id: s.eng.newID(), kind: data.KindTopicMap}

	errorutil.AssertTrue(tm.id == TopicMapID, "Unexpected topic map id")

	s.base.add(tm)

	if s.opts.BaseLocator != "" {
		loc, err := data.NewLocator(s.opts.BaseLocator)
		if err != nil {
			return err
		}

		if _, err = s.base.register(data.ItemIdentifier, loc, tm.id, tm.kind); err != nil {
			return err
		}
	}

	s.eng.emit(data.EventTopicMapCreated, tm.id, s.eng.snapshot(tm.id), nil)

	return nil
}

/*
Logger returns the logger of this store.
*/
func (s *MemoryStore) Logger() ecalutil.Logger {
	return s.logger
}

/*
Journal returns the revision journal of this store.
*/
func (s *MemoryStore) Journal() *Journal {
	return s.journal
}

/*
EnableRevisionManagement enables or disables the recording of revisions.
Re-enabling starts a new segment of the revision chain.
*/
func (s *MemoryStore) EnableRevisionManagement(enable bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if enable && !s.revisions {
		s.journal.startSegment()
	}

	s.revisions = enable
}

/*
IsRevisionManagementEnabled returns if revisions are recorded.
*/
func (s *MemoryStore) IsRevisionManagementEnabled() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.revisions
}

/*
AddListener adds a change listener. Listeners are called in the order in which
they were added. A listener must not modify the store synchronously.
*/
func (s *MemoryStore) AddListener(l ChangeListener) {
	s.pump.AddObserver("", nil, func(event string, source interface{}) {
		c := source.(*data.Change)
		l.OnChange(c.Revision(), c.Kind(), c.Notifier(), c.NewValue(), c.OldValue())
	})
}

// Uniform operation interface
// ===========================

/*
Create creates a new construct in a given context. Returns the created
construct. If the new construct was merged the surviving construct is returned.
*/
func (s *MemoryStore) Create(ctx data.ID, param Param, args ...interface{}) (data.ID, error) {
	return s.mutate(&Operation{Kind: OpCreate, Context: ctx, Param: param, Args: args}, nil)
}

/*
Read reads a property of a construct.
*/
func (s *MemoryStore) Read(ctx data.ID, param Param, args ...interface{}) (interface{}, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	return s.eng.read(ctx, param, args)
}

/*
Modify modifies a property of a construct.
*/
func (s *MemoryStore) Modify(ctx data.ID, param Param, args ...interface{}) error {
	_, err := s.mutate(&Operation{Kind: OpModify, Context: ctx, Param: param, Args: args}, nil)
	return err
}

/*
Remove removes a construct. Dependents of a topic are removed as well if the
cascade flag is set. Removing the topic map clears it.
*/
func (s *MemoryStore) Remove(ctx data.ID, cascade bool) error {
	_, err := s.mutate(&Operation{Kind: OpRemove, Context: ctx, Cascade: cascade}, nil)
	return err
}

/*
RemoveParam removes a single property value from a construct.
*/
func (s *MemoryStore) RemoveParam(ctx data.ID, param Param, args ...interface{}) error {
	_, err := s.mutate(&Operation{Kind: OpRemoveParam, Context: ctx, Param: param, Args: args}, nil)
	return err
}

/*
RemoveDuplicates removes all duplicate constructs from the topic map.
*/
func (s *MemoryStore) RemoveDuplicates() error {
	_, err := s.mutate(&Operation{Kind: OpRemoveDuplicates, Context: TopicMapID}, nil)
	return err
}

/*
Clear removes all topics and associations from the topic map.
*/
func (s *MemoryStore) Clear() error {
	return s.Remove(TopicMapID, true)
}

/*
Apply applies a single operation.
*/
func (s *MemoryStore) Apply(op *Operation) (data.ID, error) {
	return s.mutate(op, nil)
}

/*
mutate applies an operation as one atomic batch.
*/
func (s *MemoryStore) mutate(op *Operation, meta map[string]string) (data.ID, error) {
	var ret data.ID

	s.lock.Lock()

	if s.closed {
		s.lock.Unlock()
		return data.NoID, util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	changes, err := s.eng.batch(func() error {
		var err error
		ret, err = s.eng.apply(op)
		return err
	})

	mutationTotal.WithLabelValues(op.Kind.String(), resultLabel(err)).Inc()

	if err != nil {
		s.lock.Unlock()
		return data.NoID, err
	}

	ret = s.eng.resolve(ret)

	s.finish(changes, meta)

	return ret, nil
}

/*
finish records and dispatches the changes of a successful batch. Must be
called with the write lock held; the lock is released.
*/
func (s *MemoryStore) finish(changes []*pendingChange, meta map[string]string) {
	var recorded []*data.Change

	mergeTotal.Add(float64(s.eng.merges))
	duplicateTotal.Add(float64(s.eng.duplicates))

	if len(changes) > 0 {
		if s.revisions {
			recorded = s.journal.append(changes, meta).changes
		} else {
			for _, c := range changes {
				recorded = append(recorded, data.NewChange(0, c.kind, c.notifier, c.newValue, c.oldValue))
			}
		}

		// Internal caches are updated before the write lock is released

		for _, c := range recorded {
			s.labels.OnChange(c.Revision(), c.Kind(), c.Notifier(), c.NewValue(), c.OldValue())
			s.indexes.OnChange(c.Revision(), c.Kind(), c.Notifier(), c.NewValue(), c.OldValue())
		}
	}

	s.notifyLock.Lock()
	s.lock.Unlock()

	defer s.notifyLock.Unlock()

	for _, c := range recorded {
		s.pump.PostEvent(c.Kind().String(), c)
	}
}

// Asynchronous writes
// ===================

/*
asyncTask is a submitted operation.
*/
type asyncTask struct {
	store *MemoryStore
	op    *Operation
}

var _ pools.Task = &asyncTask{}

/*
Run applies the operation.
*/
func (t *asyncTask) Run(tid uint64) error {
	_, err := t.store.mutate(t.op, map[string]string{MetaOperation: t.op.String()})
	return err
}

/*
HandleError records the error of a failed operation.
*/
func (t *asyncTask) HandleError(e error) {
	t.store.logger.LogError(fmt.Sprintf("Operation %v failed: %v", t.op, e))

	t.store.asyncLock.Lock()
	defer t.store.asyncLock.Unlock()

	t.store.asyncErrs = append(t.store.asyncErrs, e)
}

/*
Submit queues an operation. The operation is applied by a worker of the store.
Commit waits for all submitted operations.
*/
func (s *MemoryStore) Submit(op *Operation) error {
	s.submitLock.Lock()
	defer s.submitLock.Unlock()

	if s.closing {
		return util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	s.pool.AddTask(&asyncTask{s, op})

	return nil
}

/*
Commit blocks until all submitted operations have been applied. Returns the
errors of all operations which failed since the last commit.
*/
func (s *MemoryStore) Commit() error {
	s.pool.WaitAll()

	s.asyncLock.Lock()
	defer s.asyncLock.Unlock()

	if len(s.asyncErrs) == 0 {
		return nil
	}

	ce := errorutil.NewCompositeError()

	for _, err := range s.asyncErrs {
		ce.Add(err)
	}

	s.asyncErrs = nil

	return ce
}

/*
Close applies all submitted operations and closes the store. All further
operations fail with a StoreUnavailable error.
*/
func (s *MemoryStore) Close() error {
	s.submitLock.Lock()
	closing := s.closing
	s.closing = true
	s.submitLock.Unlock()

	if closing {
		return nil
	}

	s.pool.JoinAll()

	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()

	return s.Commit()
}

// Topic map merge
// ===============

/*
MergeIn merges all topics and associations of another store into this store.
Topics with equal identities are merged.
*/
func (s *MemoryStore) MergeIn(src *MemoryStore) error {
	if src == s {
		return util.NewError(util.ErrInvalidData, "Cannot merge a store into itself")
	}

	src.lock.RLock()
	defer src.lock.RUnlock()

	if src.closed {
		return util.NewError(util.ErrStoreUnavailable, "Source store is closed")
	}

	s.lock.Lock()

	if s.closed {
		s.lock.Unlock()
		return util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	changes, err := s.eng.batch(func() error {
		return newMerger(s.eng, src.base).run()
	})

	mutationTotal.WithLabelValues("mergein", resultLabel(err)).Inc()

	if err != nil {
		s.lock.Unlock()
		return err
	}

	s.finish(changes, map[string]string{MetaOperation: "mergein"})

	return nil
}

// Transactions
// ============

/*
Begin opens a new transaction.
*/
func (s *MemoryStore) Begin() (*Trans, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil, util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	s.transCount++

	return newTrans(s, s.transCount), nil
}

/*
Index returns an index of this store.
*/
func (s *MemoryStore) Index(kind IndexKind) (Index, error) {
	return s.indexes.get(kind)
}
