package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"metakit/internal/core/id"
	"metakit/internal/core/security"
	"metakit/internal/core/tenant"
	"metakit/internal/domain"
)

// Compile-time check that AuditStore implements domain.Auditor.
var _ domain.Auditor = (*AuditStore)(nil)

// CompressionAlgo specifies the compression algorithm used for a row.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is one persisted change-log entry.
type AuditRow struct {
	ID                id.ID           `db:"id" json:"id"`
	TenantID          string          `db:"tenant_id" json:"tenantId"`
	ObjectType        string          `db:"object_type" json:"objectType"`
	ObjectID          string          `db:"object_id" json:"objectId"`
	Action            string          `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"userId,omitempty"`
	Payload           json.RawMessage `db:"payload" json:"payload,omitempty"`
	PayloadCompressed []byte          `db:"payload_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditStore records metadata changes to the metadata_audit table.
// Large payloads are zstd-compressed before insert.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates an audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements domain.Auditor.
func (s *AuditStore) Record(ctx context.Context, rec domain.AuditRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	row := AuditRow{
		ID:              id.New(),
		TenantID:        tenant.GetTenantID(ctx),
		ObjectType:      rec.ObjectType,
		ObjectID:        rec.ObjectID,
		Action:          string(rec.Action),
		UserID:          security.GetUserID(ctx),
		Payload:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(row.Payload) > s.compressThreshold {
		row.PayloadCompressed = s.encoder.EncodeAll(row.Payload, nil)
		row.Payload = nil
		row.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO metadata_audit (
			id, tenant_id, object_type, object_id, action, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		row.ID, row.TenantID, row.ObjectType, row.ObjectID, row.Action,
		row.UserID, row.Payload, row.PayloadCompressed, row.CompressionAlgo,
		row.CreatedAt,
	)
	return err
}

// History retrieves the change log of one object, newest first.
// Compressed payloads are transparently decompressed.
func (s *AuditStore) History(ctx context.Context, objectType, objectID string, limit int) ([]AuditRow, error) {
	sql := `
		SELECT id, tenant_id, object_type, object_id, action, user_id,
		       payload, payload_compressed, compression_algo, created_at
		FROM metadata_audit
		WHERE tenant_id = $1 AND object_type = $2 AND object_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql,
		tenant.GetTenantID(ctx), objectType, objectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditRow
	for rows.Next() {
		var r AuditRow
		err := rows.Scan(
			&r.ID, &r.TenantID, &r.ObjectType, &r.ObjectID, &r.Action,
			&r.UserID, &r.Payload, &r.PayloadCompressed, &r.CompressionAlgo,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		if r.CompressionAlgo == CompressionZstd && len(r.PayloadCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(r.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			r.Payload = decompressed
			r.PayloadCompressed = nil
		}
		entries = append(entries, r)
	}
	return entries, rows.Err()
}
