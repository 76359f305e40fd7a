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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/common/errorutil"
	ecalutil "devt.de/krotik/ecal/util"
	"github.com/geovaly/majortom-sub000/tm/data"
	"github.com/geovaly/majortom-sub000/tm/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func createTopic(t *testing.T, s *MemoryStore, si string) data.ID {
	id, err := s.Create(TopicMapID, ParamSubjectIdentifier, si)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func readIDs(t *testing.T, s *MemoryStore, ctx data.ID, param Param, args ...interface{}) []data.ID {
	res, err := s.Read(ctx, param, args...)
	if err != nil {
		t.Fatal(err)
	}
	return res.([]data.ID)
}

func TestStoreCreation(t *testing.T) {
	s := NewMemoryStore(nil)

	if res := s.Journal().Len(); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	cs := s.Journal().First().Changeset()

	if cs.Len() != 1 || cs.Get(0).Kind() != data.EventTopicMapCreated || cs.Get(0).Notifier() != TopicMapID {
		t.Error("Unexpected first revision:", s.Journal().First())
		return
	}

	res, err := s.Read(TopicMapID, ParamItemIdentifier)
	if err != nil {
		t.Error(err)
		return
	}

	if locs := res.([]data.Locator); len(locs) != 1 || locs[0].Reference() != "http://majortom.local/tm/" {
		t.Error("Unexpected result:", locs)
		return
	}

	if res, _ := s.Read(TopicMapID, ParamKind); res != data.KindTopicMap {
		t.Error("Unexpected result:", res)
		return
	}

	if res, err := s.Read(42, ParamKind); res != nil || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := s.Create(TopicMapID, ParamValue, "foo"); !errors.Is(err, util.ErrUnsupportedOperation) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := s.Create(TopicMapID, ParamSubjectIdentifier, 5); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := s.Journal().Len(); res != 1 {
		t.Error("Failed operations should not be recorded:", res)
		return
	}
}

func TestMerge(t *testing.T) {
	s := NewMemoryStore(nil)

	mergesBefore := testutil.ToFloat64(mergeTotal)

	a := createTopic(t, s, "http://example.org/A")
	b := createTopic(t, s, "http://example.org/B")

	if a == b {
		t.Error("Topics should be different")
		return
	}

	if err := s.Modify(a, ParamSubjectIdentifier, "http://example.org/B"); err != nil {
		t.Error(err)
		return
	}

	// The merge is recorded as a single change

	cs := s.Journal().Last().Changeset()

	if cs.Len() != 1 || cs.Get(0).Kind() != data.EventMerge || cs.Get(0).Notifier() != a {
		t.Error("Unexpected revision:", s.Journal().Last())
		return
	}

	if snap := cs.Get(0).OldValue().(*data.Snapshot); snap.ID() != b ||
		fmt.Sprint(data.LocatorStrings(snap.SubjectIdentifiers())) != "[http://example.org/B]" {
		t.Error("Unexpected absorbed snapshot:", snap)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 1 || res[0] != a {
		t.Error("Unexpected result:", res)
		return
	}

	// The absorbed id refers to the surviving topic

	res, _ := s.Read(b, ParamSubjectIdentifier)

	if locs := fmt.Sprint(data.LocatorStrings(res.([]data.Locator))); locs != "[http://example.org/A http://example.org/B]" {
		t.Error("Unexpected result:", locs)
		return
	}

	if res, _ := s.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/B"); res != a {
		t.Error("Unexpected result:", res)
		return
	}

	if res := testutil.ToFloat64(mergeTotal) - mergesBefore; res != 1 {
		t.Error("Unexpected merge count:", res)
		return
	}

	// Merging again changes nothing

	revs := s.Journal().Len()

	if err := s.Modify(b, ParamSubjectIdentifier, "http://example.org/A"); err != nil {
		t.Error(err)
		return
	}

	if res := s.Journal().Len(); res != revs {
		t.Error("Unexpected revision count:", res)
		return
	}

	// Subject identifiers and item identifiers of topics share one space

	c := createTopic(t, s, "http://example.org/C")

	if err := s.Modify(c, ParamItemIdentifier, "http://example.org/A"); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 1 || res[0] != c {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(a, ParamSubjectIdentifier); len(res.([]data.Locator)) != 3 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestMergeCharacteristics(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	b := createTopic(t, s, "http://example.org/B")
	typ := createTopic(t, s, "http://example.org/Type")

	if _, err := s.Create(a, ParamName, "Foo"); err != nil {
		t.Error(err)
		return
	}
	if _, err := s.Create(b, ParamName, "Foo"); err != nil {
		t.Error(err)
		return
	}
	if _, err := s.Create(b, ParamName, "Bar"); err != nil {
		t.Error(err)
		return
	}
	if _, err := s.Create(b, ParamOccurrence, typ, "42"); err != nil {
		t.Error(err)
		return
	}

	dupsBefore := testutil.ToFloat64(duplicateTotal)

	if err := s.Modify(a, ParamItemIdentifier, "http://example.org/B"); err != nil {
		t.Error(err)
		return
	}

	// Equal names are merged

	names := readIDs(t, s, a, ParamName)

	if len(names) != 2 {
		t.Error("Unexpected names:", names)
		return
	}

	var values []string
	for _, n := range names {
		v, _ := s.Read(n, ParamValue)
		values = append(values, v.(string))
	}

	if res := fmt.Sprint(values); res != "[Foo Bar]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := readIDs(t, s, a, ParamOccurrence, typ); len(res) != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := testutil.ToFloat64(duplicateTotal) - dupsBefore; res != 1 {
		t.Error("Unexpected duplicate count:", res)
		return
	}

	var kinds []string
	for _, c := range s.Journal().Last().Changeset().Changes() {
		kinds = append(kinds, c.Kind().String())
	}

	if res := fmt.Sprint(kinds); res != "[REMOVE_DUPLICATES MERGE ITEM_IDENTIFIER_ADDED]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestTransitiveMerge(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	b := createTopic(t, s, "http://example.org/B")
	c := createTopic(t, s, "http://example.org/C")

	if err := s.Modify(b, ParamSubjectLocator, "http://example.org/doc"); err != nil {
		t.Error(err)
		return
	}
	if err := s.Modify(c, ParamItemIdentifier, "http://example.org/ii"); err != nil {
		t.Error(err)
		return
	}

	// Absorb b into a and then c into a using the absorbed id of b

	if err := s.Modify(a, ParamSubjectLocator, "http://example.org/doc"); err != nil {
		t.Error(err)
		return
	}
	if err := s.Modify(b, ParamSubjectIdentifier, "http://example.org/ii"); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 1 || res[0] != a {
		t.Error("Unexpected result:", res)
		return
	}

	for _, loc := range []string{"http://example.org/A", "http://example.org/B", "http://example.org/C"} {
		if res, _ := s.Read(TopicMapID, ParamSubjectIdentifier, loc); res != a {
			t.Error("Unexpected result:", loc, res)
			return
		}
	}

	if res, _ := s.Read(c, ParamBestIdentifier, true); res != "si:http://example.org/A" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestCascadingMerge(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	b := createTopic(t, s, "http://example.org/B")
	ra := createTopic(t, s, "http://example.org/RA")
	rb := createTopic(t, s, "http://example.org/RB")

	na, _ := s.Create(a, ParamName, "Foo")
	nb, _ := s.Create(b, ParamName, "Foo")

	if err := s.Modify(na, ParamReification, ra); err != nil {
		t.Error(err)
		return
	}
	if err := s.Modify(nb, ParamReification, rb); err != nil {
		t.Error(err)
		return
	}

	// Merging a and b makes their names equal which in turn merges the reifiers

	if err := s.Modify(a, ParamSubjectIdentifier, "http://example.org/B"); err != nil {
		t.Error(err)
		return
	}

	var kinds []string
	for _, c := range s.Journal().Last().Changeset().Changes() {
		kinds = append(kinds, c.Kind().String())
	}

	if res := fmt.Sprint(kinds); res != "[REMOVE_DUPLICATES MERGE MERGE]" {
		t.Error("Unexpected result:", res)
		return
	}

	r1, _ := s.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/RA")
	r2, _ := s.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/RB")

	if r1 == data.NoID || r1 != r2 {
		t.Error("Reifiers should be merged:", r1, r2)
		return
	}

	names := readIDs(t, s, a, ParamName)

	if len(names) != 1 {
		t.Error("Unexpected names:", names)
		return
	}

	if res, _ := s.Read(names[0], ParamReification); res != r1 {
		t.Error("Unexpected reifier:", res)
		return
	}

	if res, _ := s.Read(r1.(data.ID), ParamReified); res != names[0] {
		t.Error("Unexpected reified construct:", res)
		return
	}

	// Topics: a, the merged reifier and the default name type

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 3 {
		t.Error("Unexpected topics:", res)
		return
	}
}

func TestRemove(t *testing.T) {
	s := NewMemoryStore(nil)

	typ := createTopic(t, s, "http://example.org/T")
	inst := createTopic(t, s, "http://example.org/I")

	if err := s.Modify(inst, ParamType, typ); err != nil {
		t.Error(err)
		return
	}

	created := s.Journal().Revision(2).Changeset().Get(0).NewValue().(*data.Snapshot)

	if created.ID() != typ {
		t.Error("Unexpected snapshot:", created)
		return
	}

	if err := s.Remove(typ, false); !errors.Is(err, util.ErrHasDependents) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s.Remove(typ, true); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, inst, ParamType); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, err := s.Read(typ, ParamKind); res != nil || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	if res, _ := s.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/T"); res != data.NoID {
		t.Error("Identity should be unbound:", res)
		return
	}

	var kinds []string
	for _, c := range s.Journal().Last().Changeset().Changes() {
		kinds = append(kinds, c.Kind().String())
	}

	if res := fmt.Sprint(kinds); res != "[TYPE_REMOVED TOPIC_REMOVED]" {
		t.Error("Unexpected result:", res)
		return
	}

	removed := s.Journal().Last().Changeset().Get(1).OldValue().(*data.Snapshot)

	if removed.ID() != typ || fmt.Sprint(data.LocatorStrings(removed.SubjectIdentifiers())) != "[http://example.org/T]" {
		t.Error("Unexpected snapshot:", removed)
		return
	}

	// Snapshots of older revisions are unaffected

	if res := fmt.Sprint(data.LocatorStrings(created.SubjectIdentifiers())); res != "[]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Owned characteristics are no dependents

	n, err := s.Create(inst, ParamName, "Foo")
	if err != nil {
		t.Error(err)
		return
	}

	if err := s.Remove(n, false); err != nil {
		t.Error(err)
		return
	}

	if _, err := s.Create(inst, ParamName, "Foo"); err != nil {
		t.Error(err)
		return
	}

	if err := s.Remove(inst, false); err != nil {
		t.Error(err)
		return
	}

	if err := s.Remove(inst, false); !errors.Is(err, util.ErrUnknownConstruct) {
		t.Error("Unexpected result:", err)
		return
	}

	// The default name type is still used by nothing and can be removed

	nameType, _ := s.Read(TopicMapID, ParamSubjectIdentifier, data.PSITopicName)

	if err := s.Remove(nameType.(data.ID), false); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestAssociations(t *testing.T) {
	s := NewMemoryStore(nil)

	atype := createTopic(t, s, "http://example.org/member-of")
	rtype := createTopic(t, s, "http://example.org/member")
	p1 := createTopic(t, s, "http://example.org/p1")
	p2 := createTopic(t, s, "http://example.org/p2")

	a, err := s.Create(TopicMapID, ParamAssociation, atype)
	if err != nil {
		t.Error(err)
		return
	}

	r, err := s.Create(a, ParamRole, rtype, p1)
	if err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, p1, ParamAssociation); len(res) != 1 || res[0] != a {
		t.Error("Unexpected result:", res)
		return
	}

	if res := readIDs(t, s, p1, ParamRole, rtype, atype); len(res) != 1 || res[0] != r {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.Modify(r, ParamPlayer, p2); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, p1, ParamRole); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(r, ParamPlayer); res != p2 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := readIDs(t, s, a, ParamRoleType); len(res) != 1 || res[0] != rtype {
		t.Error("Unexpected result:", res)
		return
	}

	// A second equal association is a duplicate

	a2, _ := s.Create(TopicMapID, ParamAssociation, atype)

	if _, err := s.Create(a2, ParamRole, rtype, p2); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamAssociation, atype); len(res) != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.RemoveDuplicates(); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamAssociation); len(res) != 1 || res[0] != a {
		t.Error("Unexpected result:", res)
		return
	}

	// Topics which play roles can only be removed with cascade

	if err := s.Remove(p2, false); !errors.Is(err, util.ErrHasDependents) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s.Remove(p2, true); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamAssociation); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestReification(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	reifier := createTopic(t, s, "http://example.org/R")

	n, _ := s.Create(a, ParamName, "Foo")

	if err := s.Modify(n, ParamReification, reifier); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(reifier, ParamReified); res != n {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.Modify(TopicMapID, ParamReification, reifier); !errors.Is(err, util.ErrModelConstraint) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s.Modify(n, ParamReification); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(n, ParamReification); res != data.NoID {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.Modify(TopicMapID, ParamReification, reifier); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(TopicMapID, ParamReification); res != reifier {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestVariantsAndScope(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	de := createTopic(t, s, "http://example.org/de")
	sort := createTopic(t, s, "http://example.org/sort")

	n, _ := s.Create(a, ParamName, "Foo", []data.ID{de})

	if _, err := s.Create(n, ParamVariant, "foo", []data.ID{de}); !errors.Is(err, util.ErrModelConstraint) {
		t.Error("Unexpected result:", err)
		return
	}

	v, err := s.Create(n, ParamVariant, "foo", []data.ID{sort})
	if err != nil {
		t.Error(err)
		return
	}

	res, _ := s.Read(v, ParamScope)

	if scope := res.(*data.Scope); scope.Len() != 1 || !scope.Contains(sort) {
		t.Error("Unexpected result:", scope)
		return
	}

	if res, _ := s.Read(v, ParamDatatype); res != data.XSDString {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.Modify(v, ParamValue, "http://example.org/foo", data.XSDAnyURI); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(v, ParamDatatype); res != data.XSDAnyURI {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(v, ParamParent); res != n {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.RemoveParam(n, ParamTheme, de); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(n, ParamTheme); len(res.([]data.ID)) != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := s.Read(v, ParamPlayer); !errors.Is(err, util.ErrUnsupportedOperation) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestBestLabel(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	de := createTopic(t, s, "http://example.org/de")
	en := createTopic(t, s, "http://example.org/en")

	if res, _ := s.Read(a, ParamBestLabel); res != "http://example.org/A" {
		t.Error("Unexpected result:", res)
		return
	}

	s.Create(a, ParamName, "Zeta")
	alpha, _ := s.Create(a, ParamName, "Alpha")

	hits := testutil.ToFloat64(labelCacheHits)

	if res, _ := s.Read(a, ParamBestLabel); res != "Alpha" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(a, ParamBestLabel); res != "Alpha" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := testutil.ToFloat64(labelCacheHits) - hits; res != 1 {
		t.Error("Unexpected cache hits:", res)
		return
	}

	// Cached labels are invalidated by changes

	if err := s.Modify(alpha, ParamValue, "Omega"); err != nil {
		t.Error(err)
		return
	}

	if res, _ := s.Read(a, ParamBestLabel); res != "Omega" {
		t.Error("Unexpected result:", res)
		return
	}

	s.Create(a, ParamName, "Deutsch", []data.ID{de})

	if res, _ := s.Read(a, ParamBestLabel, de); res != "Deutsch" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(a, ParamBestLabel, en, true); res != "" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(a, ParamBestLabel, en); res != "Omega" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(en, ParamBestIdentifier); res != "http://example.org/en" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(en, ParamBestIdentifier, true); res != "si:http://example.org/en" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestTypeInstanceAssociations(t *testing.T) {
	opts := DefaultOptions()
	opts.TypeInstance = true

	s := NewMemoryStore(opts)

	typ := createTopic(t, s, "http://example.org/T")
	inst := createTopic(t, s, "http://example.org/I")

	if err := s.Modify(inst, ParamType, typ); err != nil {
		t.Error(err)
		return
	}

	assocs := readIDs(t, s, TopicMapID, ParamAssociation)

	if len(assocs) != 1 {
		t.Error("Unexpected result:", assocs)
		return
	}

	atype, _ := s.Read(assocs[0], ParamType)

	if res, _ := s.Read(TopicMapID, ParamSubjectIdentifier, data.PSITypeInstance); res != atype {
		t.Error("Unexpected association type:", res, atype)
		return
	}

	if res := readIDs(t, s, assocs[0], ParamRole); len(res) != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := readIDs(t, s, inst, ParamType); len(res) != 1 || res[0] != typ {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.RemoveParam(inst, ParamType, typ); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamAssociation); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestClear(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")
	s.Create(a, ParamName, "Foo")

	if err := s.Clear(); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := s.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/A"); res != data.NoID {
		t.Error("Unexpected result:", res)
		return
	}

	if res := s.Journal().Last().Changeset(); res.Len() != 1 || res.Get(0).Kind() != data.EventTopicMapCleared {
		t.Error("Unexpected result:", s.Journal().Last())
		return
	}

	// The topic map can be filled again

	if b := createTopic(t, s, "http://example.org/A"); b == a {
		t.Error("New topic should get a new id")
		return
	}
}

func TestRevisions(t *testing.T) {
	s := NewMemoryStore(nil)

	a := createTopic(t, s, "http://example.org/A")

	j := s.Journal()

	if j.Len() != 2 || j.First().Future() != j.Last() || j.Last().Previous() != j.First() {
		t.Error("Unexpected revision chain")
		return
	}

	if j.Last().Future() != nil || j.First().Previous() != nil {
		t.Error("Unexpected revision chain ends")
		return
	}

	if res := j.Revision(2); res != j.Last() || j.Revision(0) != nil || j.Revision(3) != nil {
		t.Error("Unexpected revision lookup")
		return
	}

	cs := j.Last().Changeset()

	if cs.Len() != 2 || cs.Get(0).Kind() != data.EventTopicAdded ||
		cs.Get(1).Kind() != data.EventSubjectIdentifierAdded || cs.Get(1).Revision() != 2 {
		t.Error("Unexpected changeset:", j.Last())
		return
	}

	if !cs.Get(0).References(a) || cs.Get(0).References(TopicMapID+100) {
		t.Error("Unexpected references")
		return
	}

	j.Last().SetMetadata("user", "tester")

	if v, ok := j.Last().Metadata("user"); !ok || v != "tester" {
		t.Error("Unexpected metadata:", v, ok)
		return
	}

	if res := fmt.Sprint(j.Last().MetadataKeys()); res != "[user]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Without revision management nothing is recorded

	var revisions []uint64

	s.AddListener(ChangeListenerFunc(func(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
		revisions = append(revisions, revision)
	}))

	s.EnableRevisionManagement(false)

	if s.IsRevisionManagementEnabled() {
		t.Error("Revision management should be disabled")
		return
	}

	s.Create(a, ParamName, "Foo")

	if j.Len() != 2 {
		t.Error("Unexpected revision count:", j.Len())
		return
	}

	s.EnableRevisionManagement(true)

	s.Create(a, ParamName, "Bar")

	if j.Len() != 3 || !j.Last().SegmentStart() || j.Revision(2).SegmentStart() {
		t.Error("Unexpected segment start")
		return
	}

	if res := fmt.Sprint(revisions); res != "[0 0 0 3]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestListeners(t *testing.T) {
	s := NewMemoryStore(nil)

	var events []string

	s.AddListener(ChangeListenerFunc(func(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
		events = append(events, fmt.Sprint("1:", event))
	}))
	s.AddListener(ChangeListenerFunc(func(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
		events = append(events, fmt.Sprint("2:", event))
	}))

	createTopic(t, s, "http://example.org/A")

	if res := strings.Join(events, " "); res != "1:TOPIC_ADDED 2:TOPIC_ADDED 1:SUBJECT_IDENTIFIER_ADDED 2:SUBJECT_IDENTIFIER_ADDED" {
		t.Error("Unexpected result:", res)
		return
	}

	events = nil

	s.Create(TopicMapID, ParamValue, "foo")

	if len(events) != 0 {
		t.Error("Failed operations should not notify:", events)
		return
	}
}

func TestAsyncOperations(t *testing.T) {
	opts := DefaultOptions()
	opts.CommitWorkerCount = 4

	logger := ecalutil.NewMemoryLogger(10)
	opts.Logger = logger

	s := NewMemoryStore(opts)

	for i := 0; i < 20; i++ {
		if err := s.Submit(&Operation{
			Kind:    OpCreate,
			Context: TopicMapID,
			Param:   ParamSubjectIdentifier,
			Args:    []interface{}{fmt.Sprintf("http://example.org/t%v", i)},
		}); err != nil {
			t.Error(err)
			return
		}
	}

	if err := s.Commit(); err != nil {
		t.Error(err)
		return
	}

	if res := readIDs(t, s, TopicMapID, ParamTopic); len(res) != 20 {
		t.Error("Unexpected result:", len(res))
		return
	}

	if v, _ := s.Journal().Last().Metadata(MetaOperation); !strings.HasPrefix(v, "create #1 SubjectIdentifier") {
		t.Error("Unexpected metadata:", v)
		return
	}

	s.Submit(&Operation{Kind: OpModify, Context: 999, Param: ParamValue, Args: []interface{}{"x"}})

	err := s.Commit()

	if ce, ok := err.(*errorutil.CompositeError); !ok || len(ce.Errors) != 1 {
		t.Error("Unexpected result:", err)
		return
	}

	if !strings.Contains(logger.String(), "Operation modify #999") {
		t.Error("Unexpected log:", logger.String())
		return
	}

	if err := s.Commit(); err != nil {
		t.Error("Errors should be reported only once:", err)
		return
	}

	// Closed stores are not available

	if err := s.Close(); err != nil {
		t.Error(err)
		return
	}

	if _, err := s.Read(TopicMapID, ParamTopic); !errors.Is(err, util.ErrStoreUnavailable) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := s.Create(TopicMapID, ParamTopic); !errors.Is(err, util.ErrStoreUnavailable) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s.Submit(&Operation{Kind: OpRemoveDuplicates}); !errors.Is(err, util.ErrStoreUnavailable) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := s.Begin(); !errors.Is(err, util.ErrStoreUnavailable) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s.Close(); err != nil {
		t.Error(err)
		return
	}
}

func TestSubmitWhileClosing(t *testing.T) {
	s := NewMemoryStore(nil)

	var submitErr error
	var once bool

	isClosing := func() bool {
		s.submitLock.Lock()
		defer s.submitLock.Unlock()
		return s.closing
	}

	// The listener runs in a worker while the store is closing

	s.AddListener(ChangeListenerFunc(func(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
		if event != data.EventTopicAdded || once {
			return
		}
		once = true

		for !isClosing() {
			time.Sleep(time.Millisecond)
		}

		submitErr = s.Submit(&Operation{Kind: OpCreate, Context: TopicMapID,
			Param: ParamSubjectIdentifier, Args: []interface{}{"http://example.org/late"}})
	}))

	if err := s.Submit(&Operation{Kind: OpCreate, Context: TopicMapID,
		Param: ParamSubjectIdentifier, Args: []interface{}{"http://example.org/A"}}); err != nil {
		t.Error(err)
		return
	}

	if err := s.Close(); err != nil {
		t.Error(err)
		return
	}

	if !errors.Is(submitErr, util.ErrStoreUnavailable) {
		t.Error("Unexpected result:", submitErr)
		return
	}

	if !once {
		t.Error("Submitted operation should have been applied")
		return
	}

	if err := s.Close(); err != nil {
		t.Error("Closing twice should not fail:", err)
		return
	}
}

func TestMergeIn(t *testing.T) {
	s1 := NewMemoryStore(nil)
	s2 := NewMemoryStore(nil)

	a := createTopic(t, s1, "http://example.org/A")
	s1.Create(a, ParamName, "Foo")

	b := createTopic(t, s2, "http://example.org/A")
	typ := createTopic(t, s2, "http://example.org/T")
	s2.Create(b, ParamName, "Foo")
	s2.Create(b, ParamName, "Bar")
	s2.Modify(b, ParamType, typ)

	if err := s1.MergeIn(s1); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := s1.MergeIn(s2); err != nil {
		t.Error(err)
		return
	}

	// A, T and the default name type

	if res := readIDs(t, s1, TopicMapID, ParamTopic); len(res) != 3 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := readIDs(t, s1, a, ParamName); len(res) != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	types := readIDs(t, s1, a, ParamType)
	ttyp, _ := s1.Read(TopicMapID, ParamSubjectIdentifier, "http://example.org/T")

	if len(types) != 1 || types[0] != ttyp {
		t.Error("Unexpected result:", types, ttyp)
		return
	}

	if v, _ := s1.Journal().Last().Metadata(MetaOperation); v != "mergein" {
		t.Error("Unexpected metadata:", v)
		return
	}

	// The source store is unchanged

	if res := readIDs(t, s2, TopicMapID, ParamTopic); len(res) != 3 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig()
	if err != nil {
		t.Error(err)
		return
	}

	if !opts.RevisionManagement || opts.TypeInstance || opts.CommitWorkerCount != 1 ||
		opts.BaseLocator != "http://majortom.local/tm/" {
		t.Error("Unexpected options:", opts)
		return
	}
}
