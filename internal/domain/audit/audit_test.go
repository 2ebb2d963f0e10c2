package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureSink struct {
	records []Record
	err     error
}

func (s *captureSink) Record(_ context.Context, rec Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func TestEmit_FillsDefaults(t *testing.T) {
	sink := &captureSink{}

	Emit(context.Background(), sink, Record{Action: ActionSaleCreated, EntityType: "sale", EntityID: "1"})

	if assert.Len(t, sink.records, 1) {
		assert.Equal(t, SeverityInfo, sink.records[0].Severity)
		assert.False(t, sink.records[0].CreatedAt.IsZero())
	}
}

func TestEmit_SwallowsSinkFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}

	assert.NotPanics(t, func() {
		Emit(context.Background(), sink, Record{Action: ActionSaleRefunded, Severity: SeverityWarning})
	})
}

func TestEmit_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, Record{Action: ActionSaleVoided})
	})
}
