package sqlbase

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMigrator(migrations ...Migration) *Migrator {
	return NewMigrator(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, migrations)
}

func TestMigrator_PendingIsOrdered(t *testing.T) {
	m := newMigrator(
		Migration{Version: 3, Description: "third"},
		Migration{Version: 1, Description: "first"},
		Migration{Version: 2, Description: "second"},
	)

	assert.Equal(t, 3, m.Latest())
	assert.Len(t, m.Pending(0), 3)
	assert.Equal(t, "first", m.Pending(0)[0].Description)

	pending := m.Pending(1)
	assert.Equal(t, []int{2, 3}, []int{pending[0].Version, pending[1].Version})

	assert.Empty(t, m.Pending(3))
	assert.Empty(t, m.Pending(7))
}

func TestMigrator_Validate(t *testing.T) {
	assert.NoError(t, newMigrator(Migration{Version: 1}, Migration{Version: 2}).Validate())
	assert.Error(t, newMigrator(Migration{Version: 0}).Validate())
	assert.Error(t, newMigrator(Migration{Version: 2}, Migration{Version: 2}).Validate())
	assert.Equal(t, 0, newMigrator().Latest())
}
