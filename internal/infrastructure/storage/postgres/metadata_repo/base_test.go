package metadata_repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"metakit/internal/core/id"
	"metakit/internal/domain/fields"
)

func TestRowMap_Insert(t *testing.T) {
	repo := NewFieldDefinitionRepo()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	def := &fields.FieldDefinition{
		ID:       id.New(),
		TenantID: "t1",
		FieldKey: "budget",
	}
	data, err := repo.rowMap(def, now, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data["tenant_id"] != "t1" || data["field_key"] != "budget" {
		t.Errorf("columns missing: %v", data)
	}
	if data["created_at"] != now || data["updated_at"] != now {
		t.Error("timestamps not stamped")
	}
}

func TestRowMap_UpdateExcludesImmutableColumns(t *testing.T) {
	repo := NewFieldDefinitionRepo()

	def := &fields.FieldDefinition{ID: id.New(), TenantID: "t1", FieldKey: "budget"}
	data, err := repo.rowMap(def, time.Now().UTC(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, col := range []string{"id", "tenant_id", "created_at"} {
		if _, ok := data[col]; ok {
			t.Errorf("column %q must not be updatable", col)
		}
	}
	if _, ok := data["updated_at"]; !ok {
		t.Error("updated_at must be stamped")
	}
}

func TestBaseSelect_UsesDollarPlaceholders(t *testing.T) {
	repo := NewFieldDefinitionRepo()

	sql, args, err := repo.baseSelect().
		Where(map[string]any{"tenant_id": "t1"}).
		ToSql()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "$1") {
		t.Errorf("expected dollar placeholders, got %q", sql)
	}
	if len(args) != 1 || args[0] != "t1" {
		t.Errorf("unexpected args: %v", args)
	}
	if !strings.Contains(sql, "FROM field_definition") {
		t.Errorf("unexpected table in %q", sql)
	}
}

func TestListByTarget_EmptyDefinitionsSkipsQuery(t *testing.T) {
	repo := NewEntityRelationRepo()

	// No TxManager in context: the call must return before touching it.
	got, err := repo.ListByTarget(context.Background(), "t1", nil, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
