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
Package data contains the value types which are shared by all parts of the
topic map store.

Constructs

Every construct in a topic map is identified by a numeric ID which is assigned
once and never reused. Constructs reference each other only by ID.

Locators

A locator is an immutable identity reference. Locators are normalized on
creation so two locators are equal if their normalized references are equal.

Scopes

A scope is an immutable set of theme topics. A ScopeCache makes sure that
equal theme sets are represented by a single Scope object.

Changes and snapshots

A change records a single mutation of the topic map. Old and new values which
reference constructs are stored as frozen snapshots which stay valid after the
live construct has been removed or merged away.
*/
package data

import (
	"fmt"
	"net/url"
	"strings"
)

/*
Locator is an immutable identity reference.
*/
type Locator struct {
	reference string // Normalized reference
	display   string // Human-readable form of the reference
}

/*
NewLocator creates a new normalized locator from a given reference.
*/
func NewLocator(reference string) (Locator, error) {
	ref := strings.TrimSpace(reference)

	if ref == "" {
		return Locator{}, fmt.Errorf("Locator reference must not be empty")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return Locator{}, fmt.Errorf("Invalid locator reference %v: %v", ref, err)
	}

	if u.IsAbs() {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)

		// Drop default ports

		if (u.Scheme == "http" && u.Port() == "80") ||
			(u.Scheme == "https" && u.Port() == "443") {
			u.Host = u.Hostname()
		}

		// Remove dot segments

		if u.Opaque == "" {
			u = u.ResolveReference(&url.URL{})
		}
	}

	normalized := u.String()

	display, err := url.PathUnescape(normalized)
	if err != nil {
		display = normalized
	}

	return Locator{normalized, display}, nil
}

/*
MustLocator creates a new locator and panics if the reference is invalid.
*/
func MustLocator(reference string) Locator {
	l, err := NewLocator(reference)
	if err != nil {
		panic(err.Error())
	}
	return l
}

/*
Resolve resolves a relative reference against this locator.
*/
func (l Locator) Resolve(reference string) (Locator, error) {
	base, err := url.Parse(l.reference)
	if err != nil {
		return Locator{}, err
	}

	rel, err := url.Parse(strings.TrimSpace(reference))
	if err != nil {
		return Locator{}, fmt.Errorf("Invalid locator reference %v: %v", reference, err)
	}

	return NewLocator(base.ResolveReference(rel).String())
}

/*
Reference returns the normalized reference of this locator.
*/
func (l Locator) Reference() string {
	return l.reference
}

/*
Display returns the human-readable form of this locator.
*/
func (l Locator) Display() string {
	return l.display
}

/*
IsZero returns if this locator is the zero value.
*/
func (l Locator) IsZero() bool {
	return l.reference == ""
}

/*
String returns a string representation of this locator.
*/
func (l Locator) String() string {
	return l.reference
}

/*
LocatorStrings returns the references of a list of locators.
*/
func LocatorStrings(locs []Locator) []string {
	ret := make([]string, 0, len(locs))
	for _, l := range locs {
		ret = append(ret, l.reference)
	}
	return ret
}

// Well-known locators
// ===================

/*
PSI locators defined by the topic maps data model
*/
var (
	PSITopicName    = MustLocator("http://psi.topicmaps.org/iso13250/model/topic-name")
	PSITypeInstance = MustLocator("http://psi.topicmaps.org/iso13250/model/type-instance")
	PSIType         = MustLocator("http://psi.topicmaps.org/iso13250/model/type")
	PSIInstance     = MustLocator("http://psi.topicmaps.org/iso13250/model/instance")
	XSDString       = MustLocator("http://www.w3.org/2001/XMLSchema#string")
	XSDAnyURI       = MustLocator("http://www.w3.org/2001/XMLSchema#anyURI")
)
