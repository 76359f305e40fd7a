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
	"errors"
	"fmt"
	"testing"

	"github.com/geovaly/majortom-sub000/tm/data"
)

func TestTMError(t *testing.T) {

	err := NewError(ErrHasDependents, "Topic #%v is used as type", 5)

	if res := err.Error(); res != "TMError: Construct has dependents (Topic #5 is used as type)" {
		t.Error("Unexpected result:", res)
		return
	}

	if !errors.Is(err, ErrHasDependents) || errors.Is(err, ErrInvalidData) {
		t.Error("Unexpected error type check")
		return
	}

	err = &TMError{ErrStoreUnavailable, ""}

	if res := err.Error(); res != "TMError: Store unavailable" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := NewError(ErrInvalidData, "100%").Detail; res != "100%" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestIdentityRegistry(t *testing.T) {

	ir := NewIdentityRegistry()

	a := data.MustLocator("http://example.org/a")
	b := data.MustLocator("http://example.org/b")

	if other, err := ir.Register(data.SubjectIdentifier, a, 2, data.KindTopic); other != data.NoID || err != nil {
		t.Error("Unexpected result:", other, err)
		return
	}

	if res := ir.Resolve(data.SubjectIdentifier, a); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	// Registering twice is a no-op

	v := ir.Version()

	if other, err := ir.Register(data.SubjectIdentifier, a, 2, data.KindTopic); other != data.NoID || err != nil || ir.Version() != v {
		t.Error("Unexpected result:", other, err)
		return
	}

	// Another topic claiming the same subject identifier must be merged

	if other, err := ir.Register(data.SubjectIdentifier, a, 3, data.KindTopic); other != 2 || err != nil {
		t.Error("Unexpected result:", other, err)
		return
	}

	// Cross space rule between item identifiers and subject identifiers

	if other, err := ir.Register(data.ItemIdentifier, a, 3, data.KindTopic); other != 2 || err != nil {
		t.Error("Unexpected result:", other, err)
		return
	}

	// Non-topics may hold an item identifier equal to a subject identifier

	if other, err := ir.Register(data.ItemIdentifier, a, 7, data.KindName); other != data.NoID || err != nil {
		t.Error("Unexpected result:", other, err)
		return
	}

	// Incompatible kinds

	if _, err := ir.Register(data.ItemIdentifier, a, 8, data.KindAssociation); !errors.Is(err, ErrIdentityConflict) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ir.Register(data.ItemIdentifier, a, 3, data.KindTopic); !errors.Is(err, ErrIdentityConflict) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ir.Register(data.SubjectLocator, b, 7, data.KindName); !errors.Is(err, ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ir.Register(data.SubjectLocator, data.Locator{}, 2, data.KindTopic); !errors.Is(err, ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	ir.Register(data.SubjectLocator, b, 2, data.KindTopic)
	ir.Register(data.ItemIdentifier, b, 2, data.KindTopic)

	ids := ir.Identities(2)

	if res := fmt.Sprint(ids.Kind, ids.ItemIdentifiers, ids.SubjectIdentifiers, ids.SubjectLocators, ids.Len()); res !=
		"Topic [http://example.org/b] [http://example.org/a] [http://example.org/b] 3" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ids.Get(data.SubjectLocator); len(res) != 1 || res[0] != b {
		t.Error("Unexpected result:", res)
		return
	}

	if ir.Unregister(data.SubjectLocator, b, 3) {
		t.Error("Identity should not be bound to construct 3")
		return
	}

	if !ir.Unregister(data.SubjectLocator, b, 2) || ir.Resolve(data.SubjectLocator, b) != data.NoID {
		t.Error("Unexpected unregister result")
		return
	}

	if res := ir.Identities(2).Len(); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ir.Stamp(IdentityKey{data.SubjectLocator, b.Reference()}); res != ir.Version() {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(ir.Locators(data.ItemIdentifier)); res != "[http://example.org/a http://example.org/b]" {
		t.Error("Unexpected result:", res)
		return
	}

	ir.Clear()

	if res := ir.Identities(2); res.Len() != 0 || res.Kind != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if len(ir.Locators(data.ItemIdentifier)) != 0 || len(ir.reverse) != 0 {
		t.Error("Registry should be empty")
		return
	}
}

func TestLayeredIdentityRegistry(t *testing.T) {

	base := NewIdentityRegistry()

	a := data.MustLocator("http://example.org/a")
	b := data.MustLocator("http://example.org/b")
	c := data.MustLocator("http://example.org/c")

	base.Register(data.SubjectIdentifier, a, 2, data.KindTopic)
	base.Register(data.SubjectIdentifier, b, 2, data.KindTopic)

	baseVersion := base.Version()

	layer := NewLayeredIdentityRegistry(base)

	if res := layer.Resolve(data.SubjectIdentifier, a); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	layer.Unregister(data.SubjectIdentifier, a, 2)
	layer.Register(data.SubjectIdentifier, c, 2, data.KindTopic)
	layer.Register(data.ItemIdentifier, c, 5, data.KindOccurrence)

	if res := layer.Resolve(data.SubjectIdentifier, a); res != data.NoID {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(layer.Identities(2).SubjectIdentifiers); res != "[http://example.org/b http://example.org/c]" {
		t.Error("Unexpected result:", res)
		return
	}

	// The base is untouched

	if res := fmt.Sprint(base.Identities(2).SubjectIdentifiers); res != "[http://example.org/a http://example.org/b]" {
		t.Error("Unexpected result:", res)
		return
	}

	if base.Version() != baseVersion || base.Resolve(data.ItemIdentifier, c) != data.NoID {
		t.Error("Base registry should not be modified")
		return
	}

	if res := fmt.Sprint(layer.Touched()); res != "[ItemIdentifier:http://example.org/c SubjectIdentifier:http://example.org/a SubjectIdentifier:http://example.org/c]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(layer.Locators(data.SubjectIdentifier)); res != "[http://example.org/b http://example.org/c]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Removing all identities of a construct in a layer

	layer.Unregister(data.SubjectIdentifier, b, 2)
	layer.Unregister(data.SubjectIdentifier, c, 2)

	if res := layer.Identities(2); res.Len() != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := base.Identities(2); res.Len() != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	// Merge detection sees the base bindings

	if other, _ := layer.Register(data.SubjectIdentifier, b, 9, data.KindTopic); other != data.NoID {
		t.Error("Unexpected result:", other)
		return
	}

	base.Register(data.SubjectLocator, c, 4, data.KindTopic)

	if other, _ := layer.Register(data.SubjectLocator, c, 9, data.KindTopic); other != 4 {
		t.Error("Unexpected result:", other)
		return
	}
}
