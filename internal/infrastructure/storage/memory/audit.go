package memory

import (
	"context"
	"slices"
	"sync"

	"retailpos/internal/domain/audit"
)

// AuditLog implements audit.Sink in memory.
type AuditLog struct {
	mu      sync.Mutex
	records []audit.Record
}

var (
	_ audit.Sink    = (*AuditLog)(nil)
	_ audit.History = (*AuditLog)(nil)
)

// NewAuditLog creates an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record implements audit.Sink.
func (l *AuditLog) Record(_ context.Context, rec audit.Record) error {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return nil
}

// Records returns a copy of everything recorded so far.
func (l *AuditLog) Records() []audit.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// History implements audit.History.
func (l *AuditLog) History(_ context.Context, entityType, entityID string, limit int) ([]audit.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []audit.Record
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.EntityType != entityType || rec.EntityID != entityID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
