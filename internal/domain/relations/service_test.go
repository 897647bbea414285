package relations

import (
	"context"
	"testing"

	"metakit/internal/core/apperror"
	"metakit/internal/core/id"
	"metakit/internal/core/security"
	"metakit/internal/core/tenant"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDefRepo struct {
	defs []*RelationDefinition
}

func (r *fakeDefRepo) Create(_ context.Context, def *RelationDefinition) error {
	for _, d := range r.defs {
		if d.TenantID == def.TenantID && d.SourceEntityType == def.SourceEntityType && d.FieldKey == def.FieldKey {
			return apperror.NewDuplicate("relation definition", "fieldKey", def.FieldKey)
		}
	}
	cp := *def
	r.defs = append(r.defs, &cp)
	return nil
}

func (r *fakeDefRepo) Update(_ context.Context, def *RelationDefinition) error {
	for i, d := range r.defs {
		if d.ID == def.ID && d.TenantID == def.TenantID {
			cp := *def
			r.defs[i] = &cp
			return nil
		}
	}
	return apperror.NewNotFound("relation definition", def.ID)
}

func (r *fakeDefRepo) Delete(_ context.Context, tenantID string, defID id.ID) error {
	for i, d := range r.defs {
		if d.ID == defID && d.TenantID == tenantID {
			r.defs = append(r.defs[:i], r.defs[i+1:]...)
			return nil
		}
	}
	return apperror.NewNotFound("relation definition", defID)
}

func (r *fakeDefRepo) GetByID(_ context.Context, tenantID string, defID id.ID) (*RelationDefinition, error) {
	for _, d := range r.defs {
		if d.ID == defID && d.TenantID == tenantID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("relation definition", defID)
}

func (r *fakeDefRepo) ListBySource(_ context.Context, tenantID, source string, activeOnly bool) ([]*RelationDefinition, error) {
	var out []*RelationDefinition
	for _, d := range r.defs {
		if d.TenantID != tenantID || d.SourceEntityType != source {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeDefRepo) ListAll(_ context.Context, tenantID string, activeOnly bool) ([]*RelationDefinition, error) {
	var out []*RelationDefinition
	for _, d := range r.defs {
		if d.TenantID != tenantID {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

type fakeEdgeRepo struct {
	edges []*EntityRelation
}

func (r *fakeEdgeRepo) Create(_ context.Context, rel *EntityRelation) error {
	for _, e := range r.edges {
		if e.RelationDefID == rel.RelationDefID && e.SourceEntityID == rel.SourceEntityID && e.TargetEntityID == rel.TargetEntityID {
			return apperror.NewDuplicate("entity relation", "target", rel.TargetEntityID)
		}
	}
	cp := *rel
	r.edges = append(r.edges, &cp)
	return nil
}

func (r *fakeEdgeRepo) Delete(_ context.Context, tenantID string, relID id.ID) error {
	for i, e := range r.edges {
		if e.ID == relID && e.TenantID == tenantID {
			r.edges = append(r.edges[:i], r.edges[i+1:]...)
			return nil
		}
	}
	return apperror.NewNotFound("entity relation", relID)
}

func (r *fakeEdgeRepo) GetByID(_ context.Context, tenantID string, relID id.ID) (*EntityRelation, error) {
	for _, e := range r.edges {
		if e.ID == relID && e.TenantID == tenantID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("entity relation", relID)
}

func (r *fakeEdgeRepo) GetByTriple(_ context.Context, tenantID string, defID id.ID, sourceID, targetID string) (*EntityRelation, error) {
	for _, e := range r.edges {
		if e.TenantID == tenantID && e.RelationDefID == defID && e.SourceEntityID == sourceID && e.TargetEntityID == targetID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("entity relation", targetID)
}

func (r *fakeEdgeRepo) ListBySource(_ context.Context, tenantID, sourceType, sourceID string, defID *id.ID) ([]*EntityRelation, error) {
	var out []*EntityRelation
	for _, e := range r.edges {
		if e.TenantID != tenantID || e.SourceEntityType != sourceType || e.SourceEntityID != sourceID {
			continue
		}
		if defID != nil && e.RelationDefID != *defID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeEdgeRepo) ListByTarget(_ context.Context, tenantID string, defIDs []id.ID, targetType, targetID string) ([]*EntityRelation, error) {
	want := make(map[id.ID]bool, len(defIDs))
	for _, d := range defIDs {
		want[d] = true
	}
	var out []*EntityRelation
	for _, e := range r.edges {
		if e.TenantID != tenantID || !want[e.RelationDefID] {
			continue
		}
		if e.TargetEntityType != targetType || e.TargetEntityID != targetID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeEdgeRepo) DeleteByDefinition(_ context.Context, tenantID string, defID id.ID) error {
	kept := r.edges[:0]
	for _, e := range r.edges {
		if !(e.TenantID == tenantID && e.RelationDefID == defID) {
			kept = append(kept, e)
		}
	}
	r.edges = kept
	return nil
}

func (r *fakeEdgeRepo) MaxSortOrder(_ context.Context, tenantID string, defID id.ID, sourceID string) (int, error) {
	max := -1
	for _, e := range r.edges {
		if e.TenantID == tenantID && e.RelationDefID == defID && e.SourceEntityID == sourceID && e.SortOrder > max {
			max = e.SortOrder
		}
	}
	return max, nil
}

func (r *fakeEdgeRepo) SetSortOrders(_ context.Context, tenantID string, orderedIDs []id.ID) error {
	for pos, relID := range orderedIDs {
		for _, e := range r.edges {
			if e.ID == relID && e.TenantID == tenantID {
				e.SortOrder = pos
			}
		}
	}
	return nil
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = tenant.WithTenant(ctx, &tenant.Tenant{ID: "t1", Status: tenant.StatusActive})
	ctx = security.WithUserID(ctx, "u1")
	return tenant.WithTxManager(ctx, fakeTxManager{})
}

func newTestService() (*Service, *fakeDefRepo, *fakeEdgeRepo) {
	defs := &fakeDefRepo{}
	edges := &fakeEdgeRepo{}
	return NewService(defs, edges, nil), defs, edges
}

func TestCreateDefinition_RequiresTargets(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	_, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
	})
	if err == nil {
		t.Fatal("expected validation error for empty targets")
	}
}

func TestCreateDefinition_RelationType(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "tasks", Name: "Tasks",
		RelationType:      OneToMany,
		TargetEntityTypes: []string{"task"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.RelationType != OneToMany {
		t.Errorf("relation type = %q, want %q", def.RelationType, OneToMany)
	}

	got, err := svc.GetDefinition(ctx, def.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RelationType != OneToMany {
		t.Errorf("stored relation type = %q, want %q", got.RelationType, OneToMany)
	}

	defaulted, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "members", Name: "Members",
		TargetEntityTypes: []string{"user"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if defaulted.RelationType != ManyToMany {
		t.Errorf("defaulted relation type = %q, want %q", defaulted.RelationType, ManyToMany)
	}

	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "owner", Name: "Owner",
		RelationType:      "belongs_to",
		TargetEntityTypes: []string{"user"},
	}); err == nil {
		t.Error("expected validation error for unknown relation type")
	}
}

func TestCreateDefinition_DuplicateKeyConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	in := CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	}
	if _, err := svc.CreateDefinition(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateDefinition(ctx, in); !apperror.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestDeleteDefinition_CascadesEdges(t *testing.T) {
	svc, defs, edges := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteDefinition(ctx, def.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges.edges) != 0 {
		t.Errorf("edges not cascaded, %d left", len(edges.edges))
	}
	if len(defs.defs) != 0 {
		t.Errorf("definition not deleted")
	}
}

func TestListDefinitions_VirtualInverseEntries(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	inverse := "Projects"
	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"}, IsBidirectional: true, InverseName: &inverse,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "supplier", FieldKey: "contracts", Name: "Contracts",
		TargetEntityTypes: []string{"client"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ListDefinitions(ctx, ListDefinitionsQuery{SourceEntityType: "supplier"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected direct + inverse, got %d", len(got))
	}
	if got[0].IsInverse {
		t.Error("direct definitions must come first")
	}
	if !got[1].IsInverse || got[1].Name != "Projects" {
		t.Errorf("inverse entry wrong: inverse=%v name=%q", got[1].IsInverse, got[1].Name)
	}
}

func TestAddRelation_Idempotent(t *testing.T) {
	svc, _, edges := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	}
	first, err := svc.AddRelation(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.AddRelation(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the stored edge back, got a new one")
	}
	if len(edges.edges) != 1 {
		t.Errorf("expected exactly one stored edge, got %d", len(edges.edges))
	}
}

func TestAddRelation_UndeclaredTargetForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "client", TargetEntityID: "c1",
	})
	if !apperror.IsForbidden(err) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestListEntityRelations_BidirectionalInverse(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"}, IsBidirectional: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// From the supplier side the edge is visible as an inverse entry even
	// though it was never written with supplier as source.
	got, err := svc.ListEntityRelations(ctx, "supplier", "s1", &def.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one inferred edge, got %d", len(got))
	}
	inv := got[0]
	if !inv.IsInverse {
		t.Error("edge not flagged inverse")
	}
	if inv.SourceEntityID != "s1" || inv.TargetEntityID != "p1" {
		t.Errorf("orientation not swapped: %s -> %s", inv.SourceEntityID, inv.TargetEntityID)
	}
}

func TestListEntityRelations_NoDefinitionMeansDirectOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"}, IsBidirectional: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ListEntityRelations(ctx, "supplier", "s1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no inference without a definition, got %d edges", len(got))
	}
}

func TestListEntityRelations_DedupPrefersDirect(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := testContext()

	forward, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backward, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "supplier", FieldKey: "projects", Name: "Projects",
		TargetEntityTypes: []string{"project"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The same real-world link recorded from both sides.
	if _, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: forward.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: backward.ID, SourceEntityID: "s1",
		TargetEntityType: "project", TargetEntityID: "p1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ListEntityRelations(ctx, "project", "p1", &forward.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the duplicate collapsed, got %d edges", len(got))
	}
	if got[0].IsInverse {
		t.Error("direct edge must win over the inferred one")
	}
}

func TestRemoveRelation_HidesBothSides(t *testing.T) {
	svc, _, edges := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"}, IsBidirectional: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rel, err := svc.AddRelation(ctx, AddRelationInput{
		RelationDefID: def.ID, SourceEntityID: "p1",
		TargetEntityType: "supplier", TargetEntityID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.RemoveRelation(ctx, rel.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges.edges) != 0 {
		t.Fatalf("edge not removed")
	}

	got, err := svc.ListEntityRelations(ctx, "supplier", "s1", &def.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("removed edge still visible from the other side")
	}
}

func TestReorderRelations(t *testing.T) {
	svc, _, edges := newTestService()
	ctx := testContext()

	def, err := svc.CreateDefinition(ctx, CreateDefinitionInput{
		SourceEntityType: "project", FieldKey: "suppliers", Name: "Suppliers",
		TargetEntityTypes: []string{"supplier"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []id.ID
	for _, target := range []string{"s1", "s2", "s3"} {
		rel, err := svc.AddRelation(ctx, AddRelationInput{
			RelationDefID: def.ID, SourceEntityID: "p1",
			TargetEntityType: "supplier", TargetEntityID: target,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, rel.ID)
	}

	reordered := []id.ID{ids[2], ids[0], ids[1]}
	if err := svc.ReorderRelations(ctx, reordered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[id.ID]int)
	for _, e := range edges.edges {
		byID[e.ID] = e.SortOrder
	}
	for pos, relID := range reordered {
		if byID[relID] != pos {
			t.Errorf("edge %s order = %d, want %d", relID, byID[relID], pos)
		}
	}
}
