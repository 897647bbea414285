package relations

import (
	"context"

	"metakit/internal/core/apperror"
	"metakit/internal/core/entitykey"
	"metakit/internal/core/id"
	"metakit/internal/core/security"
	"metakit/internal/core/tenant"
	"metakit/internal/domain"
	"metakit/pkg/logger"
)

// Service implements relation definitions and the entity relation graph.
type Service struct {
	defs    DefinitionRepository
	edges   EdgeRepository
	auditor domain.Auditor
}

// NewService creates the relations service. A nil auditor disables auditing.
func NewService(defs DefinitionRepository, edges EdgeRepository, auditor domain.Auditor) *Service {
	if auditor == nil {
		auditor = domain.NopAuditor{}
	}
	return &Service{defs: defs, edges: edges, auditor: auditor}
}

// CreateDefinitionInput carries the client-supplied part of a definition.
// An empty RelationType defaults to many_to_many.
type CreateDefinitionInput struct {
	SourceEntityType  string
	FieldKey          string
	Name              string
	RelationType      RelationType
	TargetEntityTypes []string
	IsBidirectional   bool
	InverseName       *string
	DisplayFields     []string
}

// UpdateDefinitionInput is a partial update: nil fields stay unchanged.
// FieldKey and source entity type are immutable after creation.
type UpdateDefinitionInput struct {
	Name              *string
	RelationType      *RelationType
	TargetEntityTypes *[]string
	IsBidirectional   *bool
	InverseName       *string
	DisplayFields     *[]string
	IsActive          *bool
}

// ListDefinitionsQuery narrows a definition listing. With a source entity
// type, inferred inverse entries from other types' bidirectional
// definitions are appended after the direct ones.
type ListDefinitionsQuery struct {
	SourceEntityType string
	TargetEntityType string
	IncludeInactive  bool
}

// CreateDefinition registers a new relation type. Every entity type named
// in it is validated; a duplicate fieldKey within
// (tenant, sourceEntityType) yields a conflict.
func (s *Service) CreateDefinition(ctx context.Context, in CreateDefinitionInput) (*RelationDefinition, error) {
	source, err := entitykey.Parse(in.SourceEntityType)
	if err != nil {
		return nil, err
	}
	targets := make(StringList, 0, len(in.TargetEntityTypes))
	for _, t := range in.TargetEntityTypes {
		key, err := entitykey.Parse(t)
		if err != nil {
			return nil, err
		}
		targets = append(targets, key.String())
	}

	relType := in.RelationType
	if relType == "" {
		relType = ManyToMany
	}

	def := &RelationDefinition{
		ID:                id.New(),
		TenantID:          tenant.GetTenantID(ctx),
		SourceEntityType:  source.String(),
		FieldKey:          in.FieldKey,
		Name:              in.Name,
		RelationType:      relType,
		TargetEntityTypes: targets,
		IsBidirectional:   in.IsBidirectional,
		InverseName:       in.InverseName,
		DisplayFields:     in.DisplayFields,
		IsActive:          true,
	}
	if err := def.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.defs.Create(ctx, def); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditCreate, def.ID.String(), def)
	logger.Info(ctx, "relation definition created",
		"source_entity_type", def.SourceEntityType, "field_key", def.FieldKey, "definition_id", def.ID)
	return def, nil
}

// GetDefinition returns one definition by id.
func (s *Service) GetDefinition(ctx context.Context, defID id.ID) (*RelationDefinition, error) {
	return s.defs.GetByID(ctx, tenant.GetTenantID(ctx), defID)
}

// UpdateDefinition applies a partial update to a definition.
func (s *Service) UpdateDefinition(ctx context.Context, defID id.ID, in UpdateDefinitionInput) (*RelationDefinition, error) {
	tenantID := tenant.GetTenantID(ctx)

	def, err := s.defs.GetByID(ctx, tenantID, defID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		def.Name = *in.Name
	}
	if in.RelationType != nil {
		def.RelationType = *in.RelationType
	}
	if in.TargetEntityTypes != nil {
		targets := make(StringList, 0, len(*in.TargetEntityTypes))
		for _, t := range *in.TargetEntityTypes {
			key, err := entitykey.Parse(t)
			if err != nil {
				return nil, err
			}
			targets = append(targets, key.String())
		}
		def.TargetEntityTypes = targets
	}
	if in.IsBidirectional != nil {
		def.IsBidirectional = *in.IsBidirectional
	}
	if in.InverseName != nil {
		def.InverseName = in.InverseName
	}
	if in.DisplayFields != nil {
		def.DisplayFields = *in.DisplayFields
	}
	if in.IsActive != nil {
		def.IsActive = *in.IsActive
	}

	if err := def.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.defs.Update(ctx, def); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditUpdate, def.ID.String(), def)
	return def, nil
}

// DeleteDefinition removes a definition together with every edge stored
// under it, in one transaction.
func (s *Service) DeleteDefinition(ctx context.Context, defID id.ID) error {
	tenantID := tenant.GetTenantID(ctx)

	def, err := s.defs.GetByID(ctx, tenantID, defID)
	if err != nil {
		return err
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.edges.DeleteByDefinition(ctx, tenantID, defID); err != nil {
			return err
		}
		return s.defs.Delete(ctx, tenantID, defID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, domain.AuditDelete, defID.String(), def)
	logger.Info(ctx, "relation definition deleted",
		"source_entity_type", def.SourceEntityType, "field_key", def.FieldKey, "definition_id", defID)
	return nil
}

// ListDefinitions returns matching definitions. With a source entity type
// the result also carries inferred inverse entries: bidirectional
// definitions of other types that target it, presented from this side.
// Direct definitions always come first.
func (s *Service) ListDefinitions(ctx context.Context, q ListDefinitionsQuery) ([]*RelationDefinition, error) {
	tenantID := tenant.GetTenantID(ctx)
	activeOnly := !q.IncludeInactive

	if q.SourceEntityType == "" {
		all, err := s.defs.ListAll(ctx, tenantID, activeOnly)
		if err != nil {
			return nil, err
		}
		return filterByTarget(all, q.TargetEntityType), nil
	}

	source, err := entitykey.Parse(q.SourceEntityType)
	if err != nil {
		return nil, err
	}

	direct, err := s.defs.ListBySource(ctx, tenantID, source.String(), activeOnly)
	if err != nil {
		return nil, err
	}
	all, err := s.defs.ListAll(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	out := filterByTarget(direct, q.TargetEntityType)
	for _, inv := range inverseDefinitionsFor(all, source.String()) {
		if q.TargetEntityType != "" && !inv.TargetEntityTypes.Contains(q.TargetEntityType) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

// AddRelationInput identifies the edge to create.
type AddRelationInput struct {
	RelationDefID    id.ID
	SourceEntityID   string
	TargetEntityType string
	TargetEntityID   string
}

// AddRelation stores one edge under a definition. The target entity type
// must be declared in the definition. Adding an existing
// (definition, source, target) triple again returns the stored edge
// unchanged, so clients may retry freely.
func (s *Service) AddRelation(ctx context.Context, in AddRelationInput) (*EntityRelation, error) {
	if in.SourceEntityID == "" || in.TargetEntityID == "" {
		return nil, apperror.NewInvalidInput("source and target entity ids are required")
	}
	targetKey, err := entitykey.Parse(in.TargetEntityType)
	if err != nil {
		return nil, err
	}
	tenantID := tenant.GetTenantID(ctx)

	def, err := s.defs.GetByID(ctx, tenantID, in.RelationDefID)
	if err != nil {
		return nil, err
	}
	if !def.TargetEntityTypes.Contains(targetKey.String()) {
		return nil, apperror.NewForbidden("target entity type is not declared in the relation definition").
			WithDetail("targetEntityType", targetKey.String()).
			WithDetail("declared", []string(def.TargetEntityTypes))
	}

	if existing, err := s.edges.GetByTriple(ctx, tenantID, def.ID, in.SourceEntityID, in.TargetEntityID); err == nil {
		return existing, nil
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	rel := &EntityRelation{
		ID:               id.New(),
		TenantID:         tenantID,
		RelationDefID:    def.ID,
		SourceEntityType: def.SourceEntityType,
		SourceEntityID:   in.SourceEntityID,
		TargetEntityType: targetKey.String(),
		TargetEntityID:   in.TargetEntityID,
	}
	if uid := security.GetUserID(ctx); uid != "" {
		rel.CreatedBy = &uid
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		maxOrder, err := s.edges.MaxSortOrder(ctx, tenantID, def.ID, in.SourceEntityID)
		if err != nil {
			return err
		}
		rel.SortOrder = maxOrder + 1
		return s.edges.Create(ctx, rel)
	})
	if apperror.IsConflict(err) {
		// Lost a race against a concurrent insert of the same triple.
		return s.edges.GetByTriple(ctx, tenantID, def.ID, in.SourceEntityID, in.TargetEntityID)
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditCreate, rel.ID.String(), rel)
	return rel, nil
}

// ListEntityRelations returns the relations of one entity: stored edges
// where it is the source, and, when a definition is given, inferred
// inverse edges pointing at it from candidate definitions. Inverse entries
// are presented source-swapped and deduplicated against the direct set by
// target entity id, direct winning. Direct edges always come first.
func (s *Service) ListEntityRelations(ctx context.Context, sourceEntityType, sourceEntityID string, defID *id.ID) ([]*EntityRelation, error) {
	source, err := entitykey.Parse(sourceEntityType)
	if err != nil {
		return nil, err
	}
	if sourceEntityID == "" {
		return nil, apperror.NewInvalidInput("entity id is required").WithDetail("field", "sourceEntityId")
	}
	tenantID := tenant.GetTenantID(ctx)

	direct, err := s.edges.ListBySource(ctx, tenantID, source.String(), sourceEntityID, defID)
	if err != nil {
		return nil, err
	}
	if defID == nil {
		return direct, nil
	}

	current, err := s.defs.GetByID(ctx, tenantID, *defID)
	if err != nil {
		return nil, err
	}
	all, err := s.defs.ListAll(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	candidates := inverseCandidatesFor(all, current, source.String())
	if len(candidates) == 0 {
		return direct, nil
	}

	candidateIDs := make([]id.ID, 0, len(candidates))
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.ID)
	}
	incoming, err := s.edges.ListByTarget(ctx, tenantID, candidateIDs, source.String(), sourceEntityID)
	if err != nil {
		return nil, err
	}

	directTargets := make(map[string]bool, len(direct))
	for _, d := range direct {
		directTargets[d.TargetEntityID] = true
	}

	out := direct
	for _, edge := range incoming {
		sw := edge.Swapped()
		if directTargets[sw.TargetEntityID] {
			continue
		}
		directTargets[sw.TargetEntityID] = true
		out = append(out, sw)
	}
	return out, nil
}

// RemoveRelation deletes one stored edge. Only the direct representation
// is addressable: removing an edge makes it disappear from both sides.
func (s *Service) RemoveRelation(ctx context.Context, relID id.ID) error {
	tenantID := tenant.GetTenantID(ctx)

	rel, err := s.edges.GetByID(ctx, tenantID, relID)
	if err != nil {
		return err
	}
	if err := s.edges.Delete(ctx, tenantID, relID); err != nil {
		return err
	}

	s.audit(ctx, domain.AuditDelete, relID.String(), rel)
	return nil
}

// ReorderRelations assigns each listed edge the position it holds in
// orderedIDs. Unknown ids are skipped.
func (s *Service) ReorderRelations(ctx context.Context, orderedIDs []id.ID) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	tenantID := tenant.GetTenantID(ctx)

	txm := tenant.MustGetTxManager(ctx)
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.edges.SetSortOrders(ctx, tenantID, orderedIDs)
	}); err != nil {
		return err
	}

	s.audit(ctx, domain.AuditReorder, "", orderedIDs)
	return nil
}

func filterByTarget(defs []*RelationDefinition, target string) []*RelationDefinition {
	if target == "" {
		return defs
	}
	out := make([]*RelationDefinition, 0, len(defs))
	for _, d := range defs {
		if d.TargetEntityTypes.Contains(target) {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) audit(ctx context.Context, action domain.AuditAction, objectID string, payload any) {
	rec := domain.AuditRecord{
		Action:     action,
		ObjectType: "relation",
		ObjectID:   objectID,
		Payload:    payload,
	}
	if err := s.auditor.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "audit record failed", "action", action, "error", err)
	}
}
