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

	"devt.de/krotik/common/stringutil"
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
)

/*
TransState is the state of a transaction.
*/
type TransState int

/*
Known transaction states
*/
const (
	TransOpen TransState = iota
	TransCommitted
	TransRolledBack
)

/*
String returns a string representation of this transaction state.
*/
func (s TransState) String() string {
	switch s {
	case TransOpen:
		return "Open"
	case TransCommitted:
		return "Committed"
	case TransRolledBack:
		return "RolledBack"
	}
	return fmt.Sprintf("TransState(%d)", int(s))
}

/*
transOp is a buffered operation of a transaction.
*/
type transOp struct {
	op        *Operation     // Operation
	allocated []data.ID      // IDs which were allocated by the operation
	generated []data.Locator // Item identifiers which were generated by the operation
}

/*
Trans is an isolated view on a store. All changes are kept in the
transaction until it is committed.
*/
type Trans struct {
	id    uint64        // Transaction id
	store *MemoryStore  // Store of the transaction
	st    *overlayState // Overlay state
	eng   *engine       // Engine which operates on the overlay
	ops   []*transOp    // Buffered operations
	state TransState    // Transaction state

	baseVersion uint64 // Batch version of the store when the transaction was opened
	regVersion  uint64 // Identity registry version of the store when the transaction was opened

	lock *sync.Mutex // Lock for the transaction
}

/*
newTrans creates a new transaction. Must be called with the store lock held.
*/
func newTrans(s *MemoryStore, id uint64) *Trans {
	st := newOverlayState(s.base)

	return &Trans{
		id:          id,
		store:       s,
		st:          st,
		eng:         newEngine(st, s.opts.TypeInstance, s.logger),
		state:       TransOpen,
		baseVersion: s.base.version,
		regVersion:  s.base.reg.Version(),
		lock:        &sync.Mutex{},
	}
}

/*
ID returns the id of this transaction.
*/
func (t *Trans) ID() uint64 {
	return t.id
}

/*
State returns the state of this transaction.
*/
func (t *Trans) State() TransState {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.state
}

/*
Len returns the number of buffered operations.
*/
func (t *Trans) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.ops)
}

/*
String returns a string representation of this transaction.
*/
func (t *Trans) String() string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return fmt.Sprintf("Transaction %v (%v, %v operation%v)", t.id, t.state,
		len(t.ops), stringutil.Plural(len(t.ops)))
}

/*
Create creates a new construct in the transaction.
*/
func (t *Trans) Create(ctx data.ID, param Param, args ...interface{}) (data.ID, error) {
	return t.apply(&Operation{Kind: OpCreate, Context: ctx, Param: param, Args: args})
}

/*
Read reads a property of a construct as seen by the transaction.
*/
func (t *Trans) Read(ctx data.ID, param Param, args ...interface{}) (interface{}, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	t.store.lock.RLock()
	defer t.store.lock.RUnlock()

	return t.eng.read(ctx, param, args)
}

/*
Modify modifies a property of a construct in the transaction.
*/
func (t *Trans) Modify(ctx data.ID, param Param, args ...interface{}) error {
	_, err := t.apply(&Operation{Kind: OpModify, Context: ctx, Param: param, Args: args})
	return err
}

/*
Remove removes a construct in the transaction.
*/
func (t *Trans) Remove(ctx data.ID, cascade bool) error {
	_, err := t.apply(&Operation{Kind: OpRemove, Context: ctx, Cascade: cascade})
	return err
}

/*
RemoveParam removes a single property value in the transaction.
*/
func (t *Trans) RemoveParam(ctx data.ID, param Param, args ...interface{}) error {
	_, err := t.apply(&Operation{Kind: OpRemoveParam, Context: ctx, Param: param, Args: args})
	return err
}

/*
RemoveDuplicates removes all duplicates in the transaction.
*/
func (t *Trans) RemoveDuplicates() error {
	_, err := t.apply(&Operation{Kind: OpRemoveDuplicates, Context: TopicMapID})
	return err
}

/*
Index is not supported by transactions.
*/
func (t *Trans) Index(kind IndexKind) (Index, error) {
	return nil, util.NewError(util.ErrUnsupportedOperation, "Transactions have no indexes")
}

/*
apply applies an operation on the overlay and buffers it.
*/
func (t *Trans) apply(op *Operation) (data.ID, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.checkOpen(); err != nil {
		return data.NoID, err
	}

	t.store.lock.RLock()
	defer t.store.lock.RUnlock()

	if t.store.closed {
		return data.NoID, util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	var ret data.ID

	_, err := t.eng.batch(func() error {
		var err error
		ret, err = t.eng.apply(op)
		return err
	})

	if err != nil {
		return data.NoID, err
	}

	t.ops = append(t.ops, &transOp{op, cloneIDs(t.eng.allocated),
		append([]data.Locator(nil), t.eng.generated...)})

	return t.eng.resolve(ret), nil
}

func (t *Trans) checkOpen() error {
	if t.state != TransOpen {
		return util.NewError(util.ErrTransactionClosed, "Transaction %v is %v", t.id, t.state)
	}
	return nil
}

/*
Commit replays all buffered operations on the store as one atomic batch. The
commit fails if the store changed identities which the transaction changed or
removed constructs which the transaction used. A failed transaction is rolled
back.
*/
func (t *Trans) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	s := t.store

	s.lock.Lock()

	if s.closed {
		s.lock.Unlock()
		t.state = TransRolledBack
		return util.NewError(util.ErrStoreUnavailable, "Store is closed")
	}

	if err := t.checkConflicts(); err != nil {
		s.lock.Unlock()

		t.state = TransRolledBack
		transactionTotal.WithLabelValues("conflict").Inc()
		s.logger.LogInfo(fmt.Sprintf("Transaction %v conflicts with the store: %v", t.id, err))

		return err
	}

	changes, err := s.eng.batch(func() error {
		for _, top := range t.ops {
			s.eng.preassigned = top.allocated
			s.eng.preassignedIIs = top.generated

			_, err := s.eng.apply(top.op)

			s.eng.preassigned = nil
			s.eng.preassignedIIs = nil

			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		s.lock.Unlock()

		t.state = TransRolledBack
		transactionTotal.WithLabelValues("failed").Inc()
		s.logger.LogInfo(fmt.Sprintf("Transaction %v failed: %v", t.id, err))

		return err
	}

	t.state = TransCommitted
	transactionTotal.WithLabelValues("committed").Inc()
	s.logger.LogInfo(fmt.Sprintf("Committed transaction %v (%v operation%v)",
		t.id, len(t.ops), stringutil.Plural(len(t.ops))))

	s.finish(changes, map[string]string{MetaTransaction: fmt.Sprint(t.id)})

	return nil
}

/*
checkConflicts checks if the store changed anything the transaction depends
on since the transaction was opened.
*/
func (t *Trans) checkConflicts() error {
	base := t.store.base

	for _, key := range t.st.reg.Touched() {
		if base.reg.Stamp(key) > t.regVersion {
			return util.NewError(util.ErrTransactionConflict,
				"Identity %v was changed in the store", key)
		}
	}

	for _, id := range t.st.touched() {
		if base.removedSince(id, t.baseVersion) {
			return util.NewError(util.ErrTransactionConflict,
				"Construct %v was removed from the store", id)
		}
	}

	return nil
}

/*
Rollback discards all buffered operations.
*/
func (t *Trans) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.state == TransOpen {
		t.state = TransRolledBack
		t.ops = nil
		transactionTotal.WithLabelValues("rolledback").Inc()
	}

	return nil
}
