/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package util contains utility classes for the topic map store.

TMError

Models a topic map related error. Errors of the store are always returned as
TMError so clients can check the error type with errors.Is.

IdentityRegistry

Maps item identifiers, subject identifiers and subject locators to constructs
and back. The registry detects identity collisions which require two topics to
be merged. A registry can be layered on top of a parent registry. A layered
registry records its changes locally and never modifies its parent.
*/
package util

import (
	"errors"
	"fmt"
)

/*
TMError is a topic map related error
*/
type TMError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (te *TMError) Error() string {
	if te.Detail != "" {
		return fmt.Sprintf("TMError: %v (%v)", te.Type, te.Detail)
	}

	return fmt.Sprintf("TMError: %v", te.Type)
}

/*
Unwrap returns the type of this error.
*/
func (te *TMError) Unwrap() error {
	return te.Type
}

/*
NewError creates a new topic map error.
*/
func NewError(errType error, detail string, args ...interface{}) *TMError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &TMError{errType, detail}
}

/*
Topic map related error types
*/
var (
	ErrIdentityConflict     = errors.New("Identity conflict")
	ErrHasDependents        = errors.New("Construct has dependents")
	ErrTransactionConflict  = errors.New("Transaction conflict")
	ErrUnsupportedOperation = errors.New("Unsupported operation")
	ErrStoreUnavailable     = errors.New("Store unavailable")
	ErrInvalidData          = errors.New("Invalid data")
	ErrModelConstraint      = errors.New("Model constraint violation")
	ErrTransactionClosed    = errors.New("Transaction closed")
	ErrUnknownConstruct     = errors.New("Unknown construct")
	ErrIndexError           = errors.New("Index error")
)
