package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_GetType(t *testing.T) {
	assert.Equal(t, InstanceCreatedEvent, InstanceCreated{}.GetType())
	assert.Equal(t, InstanceStateChangedEvent, InstanceStateChanged{}.GetType())
	assert.Equal(t, InstanceDeletedEvent, InstanceDeleted{}.GetType())
	assert.Equal(t, CatalogSyncedEvent, CatalogSynced{}.GetType())
}

func TestInstanceStateChanged_JSONSerialization(t *testing.T) {
	original := &InstanceStateChanged{
		BaseEvent: NewBaseEvent(InstanceStateChangedEvent, "web-1a2b3c4d"),
		From:      models.InstanceStateRunning,
		To:        models.InstanceStateFailed,
		Error:     "Process exited with code 2",
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"instance.state_changed"`)
	assert.Contains(t, string(jsonData), `"instance_id":"web-1a2b3c4d"`)
	assert.Contains(t, string(jsonData), `"to":"failed"`)

	var deserialized InstanceStateChanged

	err = json.Unmarshal(jsonData, &deserialized)
	require.NoError(t, err)
	assert.Equal(t, original.ID, deserialized.ID)
	assert.Equal(t, models.InstanceStateFailed, deserialized.To)
	assert.Equal(t, "Process exited with code 2", deserialized.Error)
}

func TestNewBaseEvent(t *testing.T) {
	a := NewBaseEvent(CatalogSyncedEvent, "")
	b := NewBaseEvent(CatalogSyncedEvent, "")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, CatalogSyncedEvent, a.Type)
	assert.False(t, a.Timestamp.IsZero())
	assert.NotContains(t, mustJSON(t, a), "instance_id")
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return string(data)
}
