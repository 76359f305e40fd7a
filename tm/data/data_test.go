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
	"testing"
)

func TestLocator(t *testing.T) {

	l1 := MustLocator("HTTP://Example.ORG:80/a/b/../c")
	l2 := MustLocator("http://example.org/a/c")

	if l1 != l2 {
		t.Error("Unexpected result:", l1, l2)
		return
	}

	if res := l1.Reference(); res != "http://example.org/a/c" {
		t.Error("Unexpected result:", res)
		return
	}

	l3 := MustLocator("https://example.org:443/x%20y")

	if res := l3.Reference(); res != "https://example.org/x%20y" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := l3.Display(); res != "https://example.org/x y" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := NewLocator("   "); err == nil {
		t.Error("Empty locator should not be accepted")
		return
	}

	if _, err := NewLocator("http://[::1"); err == nil {
		t.Error("Invalid locator should not be accepted")
		return
	}

	l4, err := l2.Resolve("d#frag")
	if err != nil {
		t.Error(err)
		return
	}

	if res := l4.String(); res != "http://example.org/a/d#frag" {
		t.Error("Unexpected result:", res)
		return
	}

	if !(Locator{}).IsZero() || l4.IsZero() {
		t.Error("Unexpected zero locator check")
		return
	}

	if res := fmt.Sprint(LocatorStrings([]Locator{l1, l3})); res != "[http://example.org/a/c https://example.org/x%20y]" {
		t.Error("Unexpected result:", res)
		return
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Invalid locator should panic")
			}
		}()

		MustLocator("")
	}()
}

func TestKinds(t *testing.T) {

	if res := KindVariant.String(); res != "Variant" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ConstructKind(99).String(); res != "ConstructKind(99)" {
		t.Error("Unexpected result:", res)
		return
	}

	if !KindRole.IsTyped() || KindTopic.IsTyped() || KindVariant.IsTyped() {
		t.Error("Unexpected typed check")
		return
	}

	if !KindVariant.IsScoped() || KindRole.IsScoped() {
		t.Error("Unexpected scoped check")
		return
	}

	if KindTopic.IsReifiable() || !KindTopicMap.IsReifiable() {
		t.Error("Unexpected reifiable check")
		return
	}

	if res := SubjectLocator.String(); res != "SubjectLocator" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := EventMerge.String(); res != "MERGE" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := EventKind(0).String(); res != "EventKind(0)" {
		t.Error("Unexpected result:", res)
		return
	}

	if !EventTopicRemoved.IsRemoval() || EventMerge.IsRemoval() {
		t.Error("Unexpected removal check")
		return
	}
}

func TestScopeCache(t *testing.T) {

	sc := NewScopeCache(nil)

	s1 := sc.Get([]ID{5, 3, 3, NoID})
	s2 := sc.Get([]ID{3, 5})

	if s1 != s2 {
		t.Error("Equal theme sets should be represented once")
		return
	}

	if res := s1.Key(); res != "3,5" {
		t.Error("Unexpected result:", res)
		return
	}

	if !s1.Contains(5) || s1.Contains(4) {
		t.Error("Unexpected contains check")
		return
	}

	if res := sc.Get(nil); !res.IsUnconstrained() || res.Key() != "" {
		t.Error("Unexpected result:", res)
		return
	}

	if !s1.ContainsAll(sc.Get([]ID{3})) || sc.Get([]ID{3}).ContainsAll(s1) {
		t.Error("Unexpected contains all check")
		return
	}

	child := NewScopeCache(sc)

	if res := child.Get([]ID{5, 3}); res != s1 {
		t.Error("Child cache should return parent scope")
		return
	}

	s3 := child.Get([]ID{7})

	if sc.Size() != 3 || child.Size() != 1 {
		t.Error("Unexpected cache sizes:", sc.Size(), child.Size())
		return
	}

	// A scope of the child stays canonical if the parent learns it later

	if res := sc.Get([]ID{7}); res == s3 || res.Key() != s3.Key() {
		t.Error("Unexpected parent scope:", res)
		return
	}

	if res := child.Get([]ID{7}); res != s3 {
		t.Error("Child cache should keep its own scope:", res)
		return
	}

	if res := s3.String(); res != "Scope[7]" {
		t.Error("Unexpected result:", res)
		return
	}

	themes := s1.Themes()
	themes[0] = 99

	if res := s1.Key(); res != "3,5" || s1.Contains(99) {
		t.Error("Scope should be immutable:", res)
		return
	}

	var nilScope *Scope

	if nilScope.Len() != 0 || nilScope.Contains(1) || nilScope.Themes() != nil {
		t.Error("Unexpected nil scope behaviour")
		return
	}
}

func TestSnapshotAndChange(t *testing.T) {

	d := &SnapshotData{
		ID:                 5,
		Kind:               KindTopic,
		Parent:             1,
		SubjectIdentifiers: []string{"http://example.org/a"},
		Types:              []ID{7},
		Roles:              []ID{9, 10},
		Associations:       []ID{8},
	}

	s := NewSnapshot(d)

	// Changing the source must not change the snapshot

	d.Types[0] = 99
	d.Roles = append(d.Roles, 11)

	if res := fmt.Sprint(s.Types(), s.Roles(), s.Associations()); res != "[7] [9 10] [8]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Changing returned values must not change the snapshot

	s.Roles()[0] = 42
	s.Data().Associations[0] = 42

	if res := fmt.Sprint(s.Roles(), s.Associations()); res != "[9 10] [8]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := s.SubjectIdentifiers(); len(res) != 1 || res[0] != MustLocator("http://example.org/a") {
		t.Error("Unexpected result:", res)
		return
	}

	if res := s.String(); res != "Topic#5" {
		t.Error("Unexpected result:", res)
		return
	}

	if s.ID() != 5 || s.Kind() != KindTopic || s.Parent() != 1 || s.Names() != nil {
		t.Error("Unexpected snapshot state")
		return
	}

	c := NewChange(3, EventTopicRemoved, 1, nil, s)

	if c.Revision() != 3 || c.Kind() != EventTopicRemoved || c.Notifier() != 1 ||
		c.NewValue() != nil || c.OldValue() != s {
		t.Error("Unexpected change state")
		return
	}

	if !c.References(5) || !c.References(1) || c.References(7) {
		t.Error("Unexpected reference check")
		return
	}

	if res := c.String(); res != "Change TOPIC_REMOVED #1 3 (new: <nil> old: Topic#5)" {
		t.Error("Unexpected result:", res)
		return
	}
}
