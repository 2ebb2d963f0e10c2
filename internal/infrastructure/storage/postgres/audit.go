// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"retailpos/internal/core/id"
	"retailpos/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry represents a single sys_audit row.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            string          `db:"action"`
	Severity          audit.Severity  `db:"severity"`
	ActorID           string          `db:"actor_id"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes the activity log to sys_audit.
// Large detail payloads (refund breakdowns of long receipts) are zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

var (
	_ audit.Sink    = (*AuditService)(nil)
	_ audit.History = (*AuditService)(nil)
)

// Record implements audit.Sink.
func (s *AuditService) Record(ctx context.Context, rec audit.Record) error {
	entry := AuditEntry{
		ID:              id.New(),
		EntityType:      rec.EntityType,
		EntityID:        rec.EntityID,
		Action:          rec.Action,
		Severity:        rec.Severity,
		ActorID:         rec.ActorID,
		CompressionAlgo: CompressionNone,
		CreatedAt:       rec.CreatedAt,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if len(rec.Details) > 0 {
		details, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		entry.Details = details
	}
	s.compress(&entry)

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, severity, actor_id,
			details, details_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.Severity, entry.ActorID,
		entry.Details, entry.DetailsCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditService) compress(entry *AuditEntry) {
	if len(entry.Details) <= s.compressThreshold {
		return
	}
	entry.DetailsCompressed = s.encoder.EncodeAll(entry.Details, nil)
	entry.Details = nil
	entry.CompressionAlgo = CompressionZstd
}

func (s *AuditService) decompress(entry *AuditEntry) error {
	if entry.CompressionAlgo != CompressionZstd || len(entry.DetailsCompressed) == 0 {
		return nil
	}
	decompressed, err := s.decoder.DecodeAll(entry.DetailsCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress details: %w", err)
	}
	entry.Details = decompressed
	entry.DetailsCompressed = nil
	return nil
}

// History implements audit.History. Compressed details are inflated transparently.
func (s *AuditService) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.Record, error) {
	var entries []AuditEntry
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, `
		SELECT id, entity_type, entity_id, action, severity, actor_id,
		       details, details_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	records := make([]audit.Record, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if err := s.decompress(entry); err != nil {
			return nil, err
		}
		rec := audit.Record{
			ActorID:    entry.ActorID,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Severity:   entry.Severity,
			CreatedAt:  entry.CreatedAt,
		}
		if len(entry.Details) > 0 {
			if err := json.Unmarshal(entry.Details, &rec.Details); err != nil {
				return nil, fmt.Errorf("decode audit details %s: %w", entry.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
