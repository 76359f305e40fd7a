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

import "fmt"

/*
EventKind is the kind of a topic map change.
*/
type EventKind int

/*
Topic map events

Parameters are given as notifier, new value and old value. Construct values
are frozen snapshots.
*/
const (
	EventTopicMapCreated          EventKind = iota + 1 // topic map, topic map snapshot, nil
	EventTopicMapCleared                               // topic map, nil, topic map snapshot
	EventTopicAdded                                    // topic map, topic snapshot, nil
	EventTopicRemoved                                  // topic map, nil, topic snapshot
	EventAssociationAdded                              // topic map, association snapshot, nil
	EventAssociationRemoved                            // topic map, nil, association snapshot
	EventRoleAdded                                     // association, role snapshot, nil
	EventRoleRemoved                                   // association, nil, role snapshot
	EventNameAdded                                     // topic, name snapshot, nil
	EventNameRemoved                                   // topic, nil, name snapshot
	EventOccurrenceAdded                               // topic, occurrence snapshot, nil
	EventOccurrenceRemoved                             // topic, nil, occurrence snapshot
	EventVariantAdded                                  // name, variant snapshot, nil
	EventVariantRemoved                                // name, nil, variant snapshot
	EventItemIdentifierAdded                           // construct, locator, nil
	EventItemIdentifierRemoved                         // construct, nil, locator
	EventSubjectIdentifierAdded                        // topic, locator, nil
	EventSubjectIdentifierRemoved                      // topic, nil, locator
	EventSubjectLocatorAdded                           // topic, locator, nil
	EventSubjectLocatorRemoved                         // topic, nil, locator
	EventTypeAdded                                     // topic, type snapshot, nil
	EventTypeRemoved                                   // topic, nil, type snapshot
	EventSupertypeAdded                                // topic, supertype snapshot, nil
	EventSupertypeRemoved                              // topic, nil, supertype snapshot
	EventTypeSet                                       // typed construct, new type snapshot, old type snapshot
	EventScopeModified                                 // scoped construct, new scope, old scope
	EventValueModified                                 // characteristic, new value, old value
	EventDatatypeSet                                   // characteristic, new datatype, old datatype
	EventPlayerModified                                // role, new player snapshot, old player snapshot
	EventReifierSet                                    // reified construct, new reifier snapshot, old reifier snapshot
	EventMerge                                         // surviving topic, surviving topic snapshot, absorbed topic snapshot
	EventRemoveDuplicates                              // owner, surviving construct snapshot, removed duplicate snapshot
)

var eventKindNames = map[EventKind]string{
	EventTopicMapCreated:          "TOPIC_MAP_CREATED",
	EventTopicMapCleared:          "TOPIC_MAP_CLEARED",
	EventTopicAdded:               "TOPIC_ADDED",
	EventTopicRemoved:             "TOPIC_REMOVED",
	EventAssociationAdded:         "ASSOCIATION_ADDED",
	EventAssociationRemoved:       "ASSOCIATION_REMOVED",
	EventRoleAdded:                "ROLE_ADDED",
	EventRoleRemoved:              "ROLE_REMOVED",
	EventNameAdded:                "NAME_ADDED",
	EventNameRemoved:              "NAME_REMOVED",
	EventOccurrenceAdded:          "OCCURRENCE_ADDED",
	EventOccurrenceRemoved:        "OCCURRENCE_REMOVED",
	EventVariantAdded:             "VARIANT_ADDED",
	EventVariantRemoved:           "VARIANT_REMOVED",
	EventItemIdentifierAdded:      "ITEM_IDENTIFIER_ADDED",
	EventItemIdentifierRemoved:    "ITEM_IDENTIFIER_REMOVED",
	EventSubjectIdentifierAdded:   "SUBJECT_IDENTIFIER_ADDED",
	EventSubjectIdentifierRemoved: "SUBJECT_IDENTIFIER_REMOVED",
	EventSubjectLocatorAdded:      "SUBJECT_LOCATOR_ADDED",
	EventSubjectLocatorRemoved:    "SUBJECT_LOCATOR_REMOVED",
	EventTypeAdded:                "TYPE_ADDED",
	EventTypeRemoved:              "TYPE_REMOVED",
	EventSupertypeAdded:           "SUPERTYPE_ADDED",
	EventSupertypeRemoved:         "SUPERTYPE_REMOVED",
	EventTypeSet:                  "TYPE_SET",
	EventScopeModified:            "SCOPE_MODIFIED",
	EventValueModified:            "VALUE_MODIFIED",
	EventDatatypeSet:              "DATATYPE_SET",
	EventPlayerModified:           "PLAYER_MODIFIED",
	EventReifierSet:               "REIFIER_SET",
	EventMerge:                    "MERGE",
	EventRemoveDuplicates:         "REMOVE_DUPLICATES",
}

/*
String returns a string representation of this event kind.
*/
func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

/*
IsRemoval returns if this event destroys a construct.
*/
func (k EventKind) IsRemoval() bool {
	switch k {
	case EventTopicRemoved, EventAssociationRemoved, EventRoleRemoved, EventNameRemoved,
		EventOccurrenceRemoved, EventVariantRemoved:
		return true
	}
	return false
}

/*
Change is a single recorded change of a topic map. Changes are immutable.
*/
type Change struct {
	revision uint64      // Revision which holds this change (0 if not journaled)
	kind     EventKind   // Kind of the change
	notifier ID          // Construct which notified the change
	newValue interface{} // New value
	oldValue interface{} // Old value
}

/*
NewChange creates a new change record.
*/
func NewChange(revision uint64, kind EventKind, notifier ID, newValue, oldValue interface{}) *Change {
	return &Change{revision, kind, notifier, newValue, oldValue}
}

/*
Revision returns the id of the revision which holds this change.
*/
func (c *Change) Revision() uint64 {
	return c.revision
}

/*
Kind returns the kind of this change.
*/
func (c *Change) Kind() EventKind {
	return c.kind
}

/*
Notifier returns the construct which notified this change.
*/
func (c *Change) Notifier() ID {
	return c.notifier
}

/*
NewValue returns the new value of this change.
*/
func (c *Change) NewValue() interface{} {
	return c.newValue
}

/*
OldValue returns the old value of this change.
*/
func (c *Change) OldValue() interface{} {
	return c.oldValue
}

/*
References returns if this change references a given construct either as
notifier or through one of its snapshot values.
*/
func (c *Change) References(id ID) bool {
	if c.notifier == id {
		return true
	}
	if s, ok := c.newValue.(*Snapshot); ok && s.ID() == id {
		return true
	}
	if s, ok := c.oldValue.(*Snapshot); ok && s.ID() == id {
		return true
	}
	return false
}

/*
String returns a string representation of this change.
*/
func (c *Change) String() string {
	return fmt.Sprintf("Change %v #%v %v (new: %v old: %v)",
		c.kind, c.notifier, c.revision, c.newValue, c.oldValue)
}
