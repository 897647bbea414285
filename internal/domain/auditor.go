// Package domain holds contracts shared by the domain services.
package domain

import "context"

// AuditAction classifies a recorded change.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditReorder AuditAction = "reorder"
)

// AuditRecord is one change-log entry. Payload carries the changed data
// and is serialized (and compressed) by the store.
type AuditRecord struct {
	Action     AuditAction
	ObjectType string
	ObjectID   string
	Payload    any
}

// Auditor persists change-log entries. Recording is best effort: services
// log a failure and carry on, the business operation is never rolled back
// because of it.
type Auditor interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// NopAuditor discards all records.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, AuditRecord) error { return nil }
