package postgres

import (
	"reflect"
	"testing"

	"metakit/internal/domain/fields"
	"metakit/internal/domain/relations"
)

func TestStructToMap(t *testing.T) {
	type row struct {
		ID       string `db:"id"`
		Name     string `db:"name"`
		Ignored  string `db:"-"`
		Untagged string
	}

	got := StructToMap(row{ID: "1", Name: "n", Ignored: "x", Untagged: "y"})
	want := map[string]any{"id": "1", "name": "n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StructToMap() = %v, want %v", got, want)
	}
}

func TestStructToMap_Pointer(t *testing.T) {
	type row struct {
		ID string `db:"id"`
	}

	got := StructToMap(&row{ID: "1"})
	if got["id"] != "1" {
		t.Errorf("pointer input not handled: %v", got)
	}
}

func TestStructToMap_NonStruct(t *testing.T) {
	if got := StructToMap(42); got != nil {
		t.Errorf("expected nil for non-struct, got %v", got)
	}
}

func TestExtractDBColumns_SkipsComputedFields(t *testing.T) {
	cols := ExtractDBColumns[relations.EntityRelation]()
	for _, c := range cols {
		if c == "-" {
			t.Fatal("ignored tag leaked into columns")
		}
	}

	found := map[string]bool{}
	for _, c := range cols {
		found[c] = true
	}
	for _, want := range []string{"id", "tenant_id", "relation_def_id", "source_entity_id", "target_entity_id", "sort_order"} {
		if !found[want] {
			t.Errorf("column %q missing from %v", want, cols)
		}
	}
}

func TestExtractDBColumns_FieldDefinition(t *testing.T) {
	cols := ExtractDBColumns[fields.FieldDefinition]()
	found := map[string]bool{}
	for _, c := range cols {
		found[c] = true
	}
	for _, want := range []string{"id", "tenant_id", "entity_type", "field_key", "field_type", "options", "validation", "sort_order", "is_active"} {
		if !found[want] {
			t.Errorf("column %q missing from %v", want, cols)
		}
	}
}
