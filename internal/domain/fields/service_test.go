package fields

import (
	"context"
	"testing"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/core/tenant"
)

// fakeTxManager runs the callback directly, no transaction semantics.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDefRepo struct {
	defs []*FieldDefinition
}

func (r *fakeDefRepo) Create(_ context.Context, def *FieldDefinition) error {
	for _, d := range r.defs {
		if d.TenantID == def.TenantID && d.EntityType == def.EntityType && d.FieldKey == def.FieldKey {
			return apperror.NewDuplicate("field definition", "fieldKey", def.FieldKey)
		}
	}
	cp := *def
	r.defs = append(r.defs, &cp)
	return nil
}

func (r *fakeDefRepo) Update(_ context.Context, def *FieldDefinition) error {
	for i, d := range r.defs {
		if d.ID == def.ID && d.TenantID == def.TenantID {
			cp := *def
			r.defs[i] = &cp
			return nil
		}
	}
	return apperror.NewNotFound("field definition", def.ID)
}

func (r *fakeDefRepo) Delete(_ context.Context, tenantID string, defID id.ID) error {
	for i, d := range r.defs {
		if d.ID == defID && d.TenantID == tenantID {
			r.defs = append(r.defs[:i], r.defs[i+1:]...)
			return nil
		}
	}
	return apperror.NewNotFound("field definition", defID)
}

func (r *fakeDefRepo) GetByID(_ context.Context, tenantID string, defID id.ID) (*FieldDefinition, error) {
	for _, d := range r.defs {
		if d.ID == defID && d.TenantID == tenantID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("field definition", defID)
}

func (r *fakeDefRepo) List(_ context.Context, tenantID, entityType string, activeOnly bool) ([]*FieldDefinition, error) {
	var out []*FieldDefinition
	for _, d := range r.defs {
		if d.TenantID != tenantID || d.EntityType != entityType {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].SortOrder > out[j].SortOrder; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (r *fakeDefRepo) MaxSortOrder(_ context.Context, tenantID, entityType string) (int, error) {
	max := -1
	for _, d := range r.defs {
		if d.TenantID == tenantID && d.EntityType == entityType && d.SortOrder > max {
			max = d.SortOrder
		}
	}
	return max, nil
}

func (r *fakeDefRepo) SetSortOrders(_ context.Context, tenantID string, orderedIDs []id.ID) error {
	for pos, defID := range orderedIDs {
		for _, d := range r.defs {
			if d.ID == defID && d.TenantID == tenantID {
				d.SortOrder = pos
			}
		}
	}
	return nil
}

type fakeValueRepo struct {
	values  []*FieldValue
	queries int
}

func (r *fakeValueRepo) ListByEntity(_ context.Context, tenantID, entityType, entityID string) ([]*FieldValue, error) {
	r.queries++
	var out []*FieldValue
	for _, v := range r.values {
		if v.TenantID == tenantID && v.EntityType == entityType && v.EntityID == entityID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeValueRepo) ListByEntities(_ context.Context, tenantID, entityType string, entityIDs []string) ([]*FieldValue, error) {
	r.queries++
	want := make(map[string]bool, len(entityIDs))
	for _, eid := range entityIDs {
		want[eid] = true
	}
	var out []*FieldValue
	for _, v := range r.values {
		if v.TenantID == tenantID && v.EntityType == entityType && want[v.EntityID] {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeValueRepo) UpsertBatch(_ context.Context, values []*FieldValue) error {
	r.queries++
	for _, nv := range values {
		replaced := false
		for i, ov := range r.values {
			if ov.TenantID == nv.TenantID && ov.FieldID == nv.FieldID && ov.EntityID == nv.EntityID {
				cp := *nv
				cp.ID = ov.ID
				r.values[i] = &cp
				replaced = true
				break
			}
		}
		if !replaced {
			cp := *nv
			r.values = append(r.values, &cp)
		}
	}
	return nil
}

func (r *fakeValueRepo) DeleteByField(_ context.Context, tenantID string, fieldID id.ID) error {
	kept := r.values[:0]
	for _, v := range r.values {
		if !(v.TenantID == tenantID && v.FieldID == fieldID) {
			kept = append(kept, v)
		}
	}
	r.values = kept
	return nil
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = tenant.WithTenant(ctx, &tenant.Tenant{ID: "t1", Status: tenant.StatusActive})
	return tenant.WithTxManager(ctx, fakeTxManager{})
}

func newTestService() (*Service, *fakeDefRepo, *fakeValueRepo) {
	defs := &fakeDefRepo{}
	vals := &fakeValueRepo{}
	return NewService(defs, vals, nil), defs, vals
}

func strptr(s string) *string { return &s }

func TestCreateDefinition_AppendsOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	first, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "budget", Name: "Budget", FieldType: TypeCurrency,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.SortOrder != 0 {
		t.Errorf("first definition order = %d, want 0", first.SortOrder)
	}

	second, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "segment", Name: "Segment", FieldType: TypeSelect,
		Options: OptionList{{Value: "smb", Label: "SMB"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.SortOrder != 1 {
		t.Errorf("second definition order = %d, want 1", second.SortOrder)
	}
}

func TestCreateDefinition_ExplicitOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "a", Name: "A", FieldType: TypeText,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	explicit, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "b", Name: "B", FieldType: TypeText,
		SortOrder: intptr(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explicit.SortOrder != 5 {
		t.Errorf("explicit order = %d, want 5", explicit.SortOrder)
	}

	appended, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "c", Name: "C", FieldType: TypeText,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appended.SortOrder != 6 {
		t.Errorf("appended order = %d, want 6", appended.SortOrder)
	}
}

func TestCreateDefinition_DuplicateKeyConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	in := CreateDefinitionInput{EntityType: "client", FieldKey: "budget", Name: "Budget", FieldType: TypeNumber}
	if _, err := svc.CreateDefinition(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.CreateDefinition(ctx, in)
	if !apperror.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCreateDefinition_Invalid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	tests := []struct {
		name string
		in   CreateDefinitionInput
	}{
		{"bad key", CreateDefinitionInput{EntityType: "client", FieldKey: "Bad Key", Name: "X", FieldType: TypeText}},
		{"bad type", CreateDefinitionInput{EntityType: "client", FieldKey: "ok", Name: "X", FieldType: "enum"}},
		{"select without options", CreateDefinitionInput{EntityType: "client", FieldKey: "ok", Name: "X", FieldType: TypeSelect}},
		{"bad entity type", CreateDefinitionInput{EntityType: "Client!", FieldKey: "ok", Name: "X", FieldType: TypeText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateDefinition(ctx, tt.in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDeleteDefinition_CascadesValues(t *testing.T) {
	svc, defs, vals := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "project", FieldKey: "budget", Name: "Budget", FieldType: TypeNumber,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetValues(ctx, "project", "p1", map[string]any{"budget": 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals.values) != 1 {
		t.Fatalf("expected one stored value, got %d", len(vals.values))
	}

	if err := svc.DeleteDefinition(ctx, def.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals.values) != 0 {
		t.Errorf("values not cascaded, %d left", len(vals.values))
	}
	if len(defs.defs) != 0 {
		t.Errorf("definition not deleted")
	}
}

func TestReorderDefinitions_SkipsUnknownIDs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	a, _ := svc.CreateDefinition(ctx, CreateDefinitionInput{EntityType: "task", FieldKey: "a", Name: "A", FieldType: TypeText})
	b, _ := svc.CreateDefinition(ctx, CreateDefinitionInput{EntityType: "task", FieldKey: "b", Name: "B", FieldType: TypeText})

	if err := svc.ReorderDefinitions(ctx, "task", []id.ID{b.ID, id.New(), a.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := svc.ListDefinitions(ctx, "task", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list[0].FieldKey != "b" || list[1].FieldKey != "a" {
		t.Errorf("unexpected ordering: %s, %s", list[0].FieldKey, list[1].FieldKey)
	}
	if list[0].SortOrder != 0 || list[1].SortOrder != 2 {
		t.Errorf("unexpected positions: %d, %d", list[0].SortOrder, list[1].SortOrder)
	}
}

func TestSetValues_DropsUnknownKeys(t *testing.T) {
	svc, _, vals := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "budget", Name: "Budget", FieldType: TypeNumber,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.SetValues(ctx, "client", "c1", map[string]any{
		"budget":  1500.5,
		"unknown": "ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals.values) != 1 {
		t.Fatalf("expected 1 stored value, got %d", len(vals.values))
	}
	if vals.values[0].Value != "1500.5" {
		t.Errorf("stored value = %q, want %q", vals.values[0].Value, "1500.5")
	}
}

func TestSetValues_UpsertsExisting(t *testing.T) {
	svc, _, vals := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "segment", Name: "Segment", FieldType: TypeText,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.SetValues(ctx, "client", "c1", map[string]any{"segment": "smb"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetValues(ctx, "client", "c1", map[string]any{"segment": "enterprise"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vals.values) != 1 {
		t.Fatalf("expected a single row after upsert, got %d", len(vals.values))
	}
	if vals.values[0].Value != "enterprise" {
		t.Errorf("stored value = %q, want %q", vals.values[0].Value, "enterprise")
	}
}

func TestGetValues_FallsBackToDefault(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "tier", Name: "Tier", FieldType: TypeText,
		DefaultValue: strptr("bronze"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "notes", Name: "Notes", FieldType: TypeText,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetValues(ctx, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(got))
	}
	if got[0].Value == nil || *got[0].Value != "bronze" {
		t.Errorf("default not applied: %v", got[0].Value)
	}
	if got[1].Value != nil {
		t.Errorf("expected nil for unset field without default, got %q", *got[1].Value)
	}
}

func TestGetValuesMap_Coercion(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	mk := func(key string, ft FieldType, opts OptionList) {
		t.Helper()
		if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
			EntityType: "client", FieldKey: key, Name: key, FieldType: ft, Options: opts,
		}); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}
	mk("budget", TypeNumber, nil)
	mk("active", TypeBoolean, nil)
	mk("tags", TypeMultiSelect, OptionList{{Value: "a", Label: "A"}})
	mk("due", TypeDate, nil)

	err := svc.SetValues(ctx, "client", "c1", map[string]any{
		"budget": 99.5,
		"active": true,
		"tags":   []string{"a", "b"},
		"due":    "2026-03-14",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetValuesMap(ctx, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["budget"] != 99.5 {
		t.Errorf("budget = %#v, want 99.5", got["budget"])
	}
	if got["active"] != true {
		t.Errorf("active = %#v, want true", got["active"])
	}
	tags, ok := got["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %#v, want [a b]", got["tags"])
	}
	if got["due"] != "2026-03-14" {
		t.Errorf("due = %#v, want verbatim date string", got["due"])
	}
}

func TestGetValuesMap_ClearedDefaultStaysNull(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "budget", Name: "Budget", FieldType: TypeNumber,
		DefaultValue: strptr("42"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetValuesMap(ctx, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["budget"] != float64(42) {
		t.Errorf("unset budget = %#v, want default 42", got["budget"])
	}

	// Clearing stores an empty string; it must read back as null and not
	// fall through to the default again.
	if err := svc.SetValues(ctx, "client", "c1", map[string]any{"budget": nil}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err = svc.GetValuesMap(ctx, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["budget"] != nil {
		t.Errorf("cleared budget = %#v, want nil", got["budget"])
	}

	raw, err := svc.GetValues(ctx, "client", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw[0].Value != nil {
		t.Errorf("cleared raw value = %q, want nil", *raw[0].Value)
	}
}

func TestGetValuesBulk(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "task", FieldKey: "estimate", Name: "Estimate", FieldType: TypeNumber,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetValues(ctx, "task", "t-1", map[string]any{"estimate": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetValuesBulk(ctx, "task", []string{"t-1", "t-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected maps for both entities, got %d", len(got))
	}
	if got["t-1"]["estimate"] != float64(3) {
		t.Errorf("t-1 estimate = %#v, want 3", got["t-1"]["estimate"])
	}
	if got["t-2"]["estimate"] != nil {
		t.Errorf("t-2 estimate = %#v, want nil", got["t-2"]["estimate"])
	}
}

func TestGetValuesBulk_EmptyInputSkipsQueries(t *testing.T) {
	svc, _, vals := newTestService()
	ctx := testContext()

	got, err := svc.GetValuesBulk(ctx, "task", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d entries", len(got))
	}
	if vals.queries != 0 {
		t.Errorf("expected no value queries, got %d", vals.queries)
	}
}

func TestUpdateDefinition_PartialAndClear(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		EntityType: "client", FieldKey: "segment", Name: "Segment", FieldType: TypeText,
		Validation: ValidationRules{MaxLength: intptr(50)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name := "Customer segment"
	updated, err := svc.UpdateDefinition(ctx, def.ID, UpdateDefinitionInput{
		Name:       &name,
		Validation: &ValidationRules{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != name {
		t.Errorf("name not updated: %q", updated.Name)
	}
	if !updated.Validation.IsZero() {
		t.Errorf("validation not cleared: %+v", updated.Validation)
	}
	if updated.FieldKey != "segment" {
		t.Errorf("fieldKey must not change, got %q", updated.FieldKey)
	}
}

func intptr(i int) *int { return &i }
