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
Package ecal forwards topic map changes to an event processor of the event
condition action language (ECAL).
*/
package ecal

import (
	"fmt"
	"strings"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/ecal/engine"
	"devt.de/krotik/ecal/scope"
	"devt.de/krotik/ecal/util"
	"github.com/geovaly/majortom-sub000/tm"
	"github.com/geovaly/majortom-sub000/tm/data"
)

/*
EventMapping is a mapping between topic map event kinds and event kinds in ECAL.
*/
var EventMapping = map[data.EventKind]string{
	data.EventTopicMapCreated:          "tm.topicmap.created",
	data.EventTopicMapCleared:          "tm.topicmap.cleared",
	data.EventTopicAdded:               "tm.topic.added",
	data.EventTopicRemoved:             "tm.topic.removed",
	data.EventAssociationAdded:         "tm.association.added",
	data.EventAssociationRemoved:       "tm.association.removed",
	data.EventRoleAdded:                "tm.role.added",
	data.EventRoleRemoved:              "tm.role.removed",
	data.EventNameAdded:                "tm.name.added",
	data.EventNameRemoved:              "tm.name.removed",
	data.EventOccurrenceAdded:          "tm.occurrence.added",
	data.EventOccurrenceRemoved:        "tm.occurrence.removed",
	data.EventVariantAdded:             "tm.variant.added",
	data.EventVariantRemoved:           "tm.variant.removed",
	data.EventItemIdentifierAdded:      "tm.itemidentifier.added",
	data.EventItemIdentifierRemoved:    "tm.itemidentifier.removed",
	data.EventSubjectIdentifierAdded:   "tm.subjectidentifier.added",
	data.EventSubjectIdentifierRemoved: "tm.subjectidentifier.removed",
	data.EventSubjectLocatorAdded:      "tm.subjectlocator.added",
	data.EventSubjectLocatorRemoved:    "tm.subjectlocator.removed",
	data.EventTypeAdded:                "tm.type.added",
	data.EventTypeRemoved:              "tm.type.removed",
	data.EventSupertypeAdded:           "tm.supertype.added",
	data.EventSupertypeRemoved:         "tm.supertype.removed",
	data.EventTypeSet:                  "tm.type.set",
	data.EventScopeModified:            "tm.scope.modified",
	data.EventValueModified:            "tm.value.modified",
	data.EventDatatypeSet:              "tm.datatype.set",
	data.EventPlayerModified:           "tm.player.modified",
	data.EventReifierSet:               "tm.reifier.set",
	data.EventMerge:                    "tm.topic.merged",
	data.EventRemoveDuplicates:         "tm.duplicate.removed",
}

/*
EventBridge is a change listener for a topic map store which forwards all
changes to ECAL.
*/
type EventBridge struct {
	Processor engine.Processor
	Logger    util.Logger
}

/*
NewEventBridge creates a new event bridge and registers it as a change
listener of a given store.
*/
func NewEventBridge(s tm.Store, proc engine.Processor, logger util.Logger) *EventBridge {
	eb := &EventBridge{proc, logger}

	s.AddListener(eb)

	return eb
}

/*
OnChange is called by the store for every change.
*/
func (eb *EventBridge) OnChange(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) {
	if err := eb.Handle(revision, event, notifier, newValue, oldValue); err != nil && eb.Logger != nil {
		eb.Logger.LogError(fmt.Sprintf("Topic map event %v was handled by ECAL and returned: %v",
			EventMapping[event], err))
	}
}

/*
Handle injects a change into the event processor and waits until all
triggered rules have finished.
*/
func (eb *EventBridge) Handle(revision uint64, event data.EventKind, notifier data.ID, newValue, oldValue interface{}) error {
	var err error

	name, ok := EventMapping[event]
	if !ok {
		return nil
	}

	eventName := fmt.Sprintf("MajorTom: %v", name)
	eventKind := strings.Split(name, ".")

	// Avoid the state construction below for events which would not
	// trigger any rules

	if !eb.Processor.IsTriggering(engine.NewEvent(eventName, eventKind, nil)) {
		return nil
	}

	state := map[interface{}]interface{}{
		"revision": float64(revision),
		"event":    event.String(),
		"notifier": float64(notifier),
		"new":      convertValue(newValue),
		"old":      convertValue(oldValue),
	}

	var m engine.Monitor

	m, err = eb.Processor.AddEventAndWait(engine.NewEvent(eventName, eventKind, state), nil)

	if err == nil && m != nil {

		// Check if an error was raised in a sink

		if errs := m.(*engine.RootMonitor).AllErrors(); len(errs) > 0 {
			ce := errorutil.NewCompositeError()

			for _, e := range errs {
				ce.Add(e)
			}

			err = ce
		}
	}

	return err
}

/*
convertValue converts a change value into an ECAL value.
*/
func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *data.Snapshot:
		return convertSnapshot(val)
	case data.Locator:
		return val.Reference()
	case *data.Scope:
		return convertIDs(val.Themes())
	case nil:
		return nil
	}

	return fmt.Sprint(v)
}

/*
convertSnapshot converts a construct snapshot into an ECAL map.
*/
func convertSnapshot(s *data.Snapshot) interface{} {
	d := s.Data()

	obj := map[string]interface{}{
		"id":                 float64(d.ID),
		"kind":               d.Kind.String(),
		"parent":             float64(d.Parent),
		"itemIdentifiers":    convertStrings(d.ItemIdentifiers),
		"subjectIdentifiers": convertStrings(d.SubjectIdentifiers),
		"subjectLocators":    convertStrings(d.SubjectLocators),
		"reifier":            float64(d.Reifier),
	}

	switch d.Kind {
	case data.KindTopic:
		obj["types"] = convertIDs(d.Types)
		obj["supertypes"] = convertIDs(d.Supertypes)
		obj["names"] = convertIDs(d.Names)
		obj["occurrences"] = convertIDs(d.Occurrences)
		obj["roles"] = convertIDs(d.Roles)
		obj["associations"] = convertIDs(d.Associations)
		obj["reified"] = float64(d.Reified)

	case data.KindAssociation:
		obj["type"] = float64(d.Type)
		obj["scope"] = convertIDs(d.Themes)
		obj["roles"] = convertIDs(d.Roles)

	case data.KindRole:
		obj["type"] = float64(d.Type)
		obj["player"] = float64(d.Player)

	case data.KindName:
		obj["type"] = float64(d.Type)
		obj["scope"] = convertIDs(d.Themes)
		obj["value"] = d.Value
		obj["variants"] = convertIDs(d.Variants)

	case data.KindOccurrence, data.KindVariant:
		if d.Kind == data.KindOccurrence {
			obj["type"] = float64(d.Type)
		}
		obj["scope"] = convertIDs(d.Themes)
		obj["value"] = d.Value
		obj["datatype"] = d.Datatype
	}

	return scope.ConvertJSONToECALObject(obj)
}

func convertIDs(ids []data.ID) []interface{} {
	ret := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, float64(id))
	}
	return ret
}

func convertStrings(strs []string) []interface{} {
	ret := make([]interface{}, 0, len(strs))
	for _, s := range strs {
		ret = append(ret, s)
	}
	return ret
}
