package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/demodeck/pkg/channels/gochannel"
	"github.com/dukex/demodeck/pkg/eventbus"
	"github.com/dukex/demodeck/pkg/events"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	defer bus.Close()

	received := make(chan *events.InstanceStateChanged, 1)

	require.NoError(t, bus.Handle(events.InstanceStateChangedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.InstanceStateChanged)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "web-1", &events.InstanceDeleted{
		BaseEvent: events.NewBaseEvent(events.InstanceDeletedEvent, "web-1"),
	}))
	require.NoError(t, bus.Publish(ctx, "web-1", &events.InstanceStateChanged{
		BaseEvent: events.NewBaseEvent(events.InstanceStateChangedEvent, "web-1"),
		From:      models.InstanceStatePending,
		To:        models.InstanceStateRunning,
	}))

	select {
	case event := <-received:
		assert.Equal(t, "web-1", event.InstanceID)
		assert.Equal(t, models.InstanceStateRunning, event.To)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
	assert.Len(t, eventbus.EventTypes(), 4)
}
