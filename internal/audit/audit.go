// Package audit keeps the append-only record of operator-visible mutations.
package audit

import (
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
)

// Sink receives every entry after it has been appended.
type Sink interface {
	EmitAudit(entry models.AuditLogEntry)
}

type Log struct {
	mu      sync.RWMutex
	entries []models.AuditLogEntry
	logger  *logger.Logger
	sink    Sink
	now     func() time.Time
}

func NewLog(l *logger.Logger, sink Sink) *Log {
	return &Log{logger: l, sink: sink, now: time.Now}
}

// Record appends an entry. An empty actor is recorded as the system
// placeholder and an empty severity as INFO.
func (a *Log) Record(actor, action, details string, severity models.Severity) models.AuditLogEntry {
	if actor == "" {
		actor = models.SystemActor
	}
	if severity == "" {
		severity = models.SeverityInfo
	}

	entry := models.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		User:      actor,
		Action:    action,
		Details:   details,
		Severity:  severity,
	}

	a.mu.Lock()
	a.entries = append(a.entries, entry)
	a.mu.Unlock()

	msg := fmt.Sprintf("[%s] %s: %s", action, actor, details)
	switch severity {
	case models.SeverityCritical:
		a.logger.Error("AUDIT", msg)
	case models.SeverityWarning:
		a.logger.Warn("AUDIT", msg)
	default:
		a.logger.Info("AUDIT", msg)
	}

	if a.sink != nil {
		a.sink.EmitAudit(entry)
	}
	return entry
}

// Entries returns a copy of the log, newest first.
func (a *Log) Entries() []models.AuditLogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.AuditLogEntry, len(a.entries))
	for i, e := range a.entries {
		out[len(a.entries)-1-i] = e
	}
	return out
}

func (a *Log) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}
