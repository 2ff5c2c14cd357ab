package audit

import (
	"io"
	"testing"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) EmitAudit(entry models.AuditLogEntry) {
	m.Called(entry)
}

func TestRecord_DefaultsAndSink(t *testing.T) {
	sink := new(MockSink)
	sink.On("EmitAudit", mock.MatchedBy(func(e models.AuditLogEntry) bool {
		return e.User == models.SystemActor && e.Severity == models.SeverityInfo
	})).Return().Once()

	log := NewLog(logger.NewWithWriter(io.Discard), sink)
	fixed := time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	entry := log.Record("", models.ActionConfiguration, "settings updated", "")

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, fixed, entry.Timestamp)
	assert.Equal(t, models.SystemActor, entry.User)
	sink.AssertExpectations(t)
}

func TestEntries_NewestFirstAndCopied(t *testing.T) {
	log := NewLog(logger.NewWithWriter(io.Discard), nil)

	log.Record("Jean Dupont", models.ActionOrder, "first", models.SeverityInfo)
	log.Record("Jean Dupont", models.ActionOrder, "second", models.SeverityWarning)
	log.Record("Admin", models.ActionInventory, "third", models.SeverityCritical)

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Details)
	assert.Equal(t, "first", entries[2].Details)

	entries[0].Details = "tampered"
	assert.Equal(t, "third", log.Entries()[0].Details)
	assert.Equal(t, 3, log.Len())
}

func TestRecord_IDsAreUnique(t *testing.T) {
	log := NewLog(logger.NewWithWriter(io.Discard), nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		e := log.Record("x", models.ActionOrder, "y", models.SeverityInfo)
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}
