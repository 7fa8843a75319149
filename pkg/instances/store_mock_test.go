package instances

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/demodeck/pkg/events"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/mocks"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateFailsWhenStatusCannotBeSaved(t *testing.T) {
	p := &mocks.MockPersistence{}
	p.On("SaveSpec", mock.Anything, mock.AnythingOfType("*models.InstanceSpec")).Return(nil)
	p.On("SaveStatus", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(errors.New("disk full"))

	store := NewStore(p, layout.New("/data"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := store.Create(context.Background(), webDemo(), map[string]any{"port": 80.0}, testConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	p.AssertExpectations(t)
}

func TestStore_PublishFailureDoesNotFailCreate(t *testing.T) {
	p := &mocks.MockPersistence{}
	p.On("SaveSpec", mock.Anything, mock.Anything).Return(nil)
	p.On("SaveStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("*events.InstanceCreated")).
		Return(errors.New("broker down"))

	store := NewStore(p, layout.New("/data"), slog.New(slog.NewTextHandler(io.Discard, nil)), WithPublisher(bus))

	instance, err := store.Create(context.Background(), webDemo(), map[string]any{"port": 80.0}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatePending, instance.Status.State)

	bus.AssertNumberOfCalls(t, "Publish", 1)

	event, ok := bus.Calls[0].Arguments.Get(2).(*events.InstanceCreated)
	require.True(t, ok)
	assert.Equal(t, instance.ID, event.InstanceID)
}
