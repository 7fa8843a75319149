// Package events defines the instance and catalog lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "demodeck.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InstanceCreatedEvent      EventType = "instance.created"
	InstanceStateChangedEvent EventType = "instance.state_changed"
	InstanceDeletedEvent      EventType = "instance.deleted"
	CatalogSyncedEvent        EventType = "catalog.synced"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	InstanceID string         `json:"instance_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type InstanceCreated struct {
	BaseEvent

	DemoID     string          `json:"demo_id"`
	DemoName   string          `json:"demo_name"`
	DemoKind   models.DemoKind `json:"demo_kind"`
	RunTarget  string          `json:"run_target"`
	Parameters map[string]any  `json:"parameters,omitempty"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

// InstanceStateChanged is published on every persisted state transition.
type InstanceStateChanged struct {
	BaseEvent

	From    models.InstanceState `json:"from,omitempty"`
	To      models.InstanceState `json:"to"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func (e InstanceStateChanged) GetType() EventType {
	return InstanceStateChangedEvent
}

type InstanceDeleted struct {
	BaseEvent
}

func (e InstanceDeleted) GetType() EventType {
	return InstanceDeletedEvent
}

type CatalogSynced struct {
	BaseEvent

	Mode           string `json:"mode"`
	Namespace      string `json:"namespace"`
	CollectionName string `json:"collection_name"`
	CollectionPath string `json:"collection_path"`
	Provenance     string `json:"provenance"`
	Degraded       bool   `json:"degraded"`
}

func (e CatalogSynced) GetType() EventType {
	return CatalogSyncedEvent
}

func NewBaseEvent(eventType EventType, instanceID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
		Metadata:   make(map[string]any),
	}
}
