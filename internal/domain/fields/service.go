package fields

import (
	"context"

	"metakit/internal/core/apperror"
	"metakit/internal/core/entitykey"
	"metakit/internal/core/id"
	"metakit/internal/core/tenant"
	"metakit/internal/domain"
	"metakit/pkg/logger"
)

// Service implements the custom-field operations: definition lifecycle and
// the string-backed value store with typed reads.
type Service struct {
	defs    DefinitionRepository
	values  ValueRepository
	auditor domain.Auditor
}

// NewService creates the fields service. A nil auditor disables auditing.
func NewService(defs DefinitionRepository, values ValueRepository, auditor domain.Auditor) *Service {
	if auditor == nil {
		auditor = domain.NopAuditor{}
	}
	return &Service{defs: defs, values: values, auditor: auditor}
}

// CreateDefinitionInput carries the client-supplied part of a new definition.
// A nil SortOrder appends the field after the current last position.
type CreateDefinitionInput struct {
	EntityType   string
	FieldKey     string
	Name         string
	FieldType    FieldType
	Options      OptionList
	IsRequired   bool
	Validation   ValidationRules
	DefaultValue *string
	SortOrder    *int
}

// UpdateDefinitionInput is a partial update: nil fields stay unchanged.
// A non-nil empty Options or zero Validation clears the stored JSON.
// FieldKey, entity type and field type are immutable after creation.
type UpdateDefinitionInput struct {
	Name         *string
	Options      *OptionList
	IsRequired   *bool
	Validation   *ValidationRules
	DefaultValue *string
	SortOrder    *int
	IsActive     *bool
}

// CreateDefinition registers a new custom field for an entity type.
// Without an explicit order the field is appended to the end of the
// current ordering. A duplicate fieldKey within (tenant, entityType)
// yields a conflict.
func (s *Service) CreateDefinition(ctx context.Context, in CreateDefinitionInput) (*FieldDefinition, error) {
	key, err := entitykey.Parse(in.EntityType)
	if err != nil {
		return nil, err
	}
	tenantID := tenant.GetTenantID(ctx)

	def := &FieldDefinition{
		ID:           id.New(),
		TenantID:     tenantID,
		EntityType:   key.String(),
		FieldKey:     in.FieldKey,
		Name:         in.Name,
		FieldType:    in.FieldType,
		Options:      in.Options,
		IsRequired:   in.IsRequired,
		Validation:   in.Validation,
		DefaultValue: in.DefaultValue,
		IsActive:     true,
	}
	if err := def.Validate(ctx); err != nil {
		return nil, err
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.SortOrder != nil {
			def.SortOrder = *in.SortOrder
		} else {
			maxOrder, err := s.defs.MaxSortOrder(ctx, tenantID, def.EntityType)
			if err != nil {
				return err
			}
			def.SortOrder = maxOrder + 1
		}
		return s.defs.Create(ctx, def)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditCreate, def.EntityType, def.ID.String(), def)
	logger.Info(ctx, "field definition created",
		"entity_type", def.EntityType, "field_key", def.FieldKey, "field_id", def.ID)
	return def, nil
}

// GetDefinition returns one definition by id.
func (s *Service) GetDefinition(ctx context.Context, defID id.ID) (*FieldDefinition, error) {
	return s.defs.GetByID(ctx, tenant.GetTenantID(ctx), defID)
}

// ListDefinitions returns the definitions of one entity type ordered by
// their configured position. Inactive fields are excluded unless asked for.
func (s *Service) ListDefinitions(ctx context.Context, entityType string, includeInactive bool) ([]*FieldDefinition, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	return s.defs.List(ctx, tenant.GetTenantID(ctx), key.String(), !includeInactive)
}

// UpdateDefinition applies a partial update to a definition.
func (s *Service) UpdateDefinition(ctx context.Context, defID id.ID, in UpdateDefinitionInput) (*FieldDefinition, error) {
	tenantID := tenant.GetTenantID(ctx)

	def, err := s.defs.GetByID(ctx, tenantID, defID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		def.Name = *in.Name
	}
	if in.Options != nil {
		def.Options = *in.Options
	}
	if in.IsRequired != nil {
		def.IsRequired = *in.IsRequired
	}
	if in.Validation != nil {
		def.Validation = *in.Validation
	}
	if in.DefaultValue != nil {
		def.DefaultValue = in.DefaultValue
	}
	if in.SortOrder != nil {
		def.SortOrder = *in.SortOrder
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

	s.audit(ctx, domain.AuditUpdate, def.EntityType, def.ID.String(), def)
	return def, nil
}

// DeleteDefinition removes a definition together with every value stored
// under it. Values and definition go in one transaction so a failure leaves
// both in place.
func (s *Service) DeleteDefinition(ctx context.Context, defID id.ID) error {
	tenantID := tenant.GetTenantID(ctx)

	def, err := s.defs.GetByID(ctx, tenantID, defID)
	if err != nil {
		return err
	}

	txm := tenant.MustGetTxManager(ctx)
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.values.DeleteByField(ctx, tenantID, defID); err != nil {
			return err
		}
		return s.defs.Delete(ctx, tenantID, defID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, domain.AuditDelete, def.EntityType, defID.String(), def)
	logger.Info(ctx, "field definition deleted",
		"entity_type", def.EntityType, "field_key", def.FieldKey, "field_id", defID)
	return nil
}

// ReorderDefinitions assigns each listed definition the position it holds in
// orderedIDs. Ids that do not belong to the tenant or entity type are
// skipped, so a stale client list cannot corrupt another tenant's ordering.
func (s *Service) ReorderDefinitions(ctx context.Context, entityType string, orderedIDs []id.ID) error {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return nil
	}
	tenantID := tenant.GetTenantID(ctx)

	txm := tenant.MustGetTxManager(ctx)
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.defs.SetSortOrders(ctx, tenantID, orderedIDs)
	}); err != nil {
		return err
	}

	s.audit(ctx, domain.AuditReorder, key.String(), "", orderedIDs)
	return nil
}

// GetValues returns every active definition of the entity type paired with
// the entity's resolved raw value: the stored value when a row exists (an
// empty stored string reads as nil), else the definition default, else nil.
func (s *Service) GetValues(ctx context.Context, entityType, entityID string) ([]FieldWithValue, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	if entityID == "" {
		return nil, apperror.NewInvalidInput("entity id is required").WithDetail("field", "entityId")
	}
	tenantID := tenant.GetTenantID(ctx)

	defs, err := s.defs.List(ctx, tenantID, key.String(), true)
	if err != nil {
		return nil, err
	}
	stored, err := s.values.ListByEntity(ctx, tenantID, key.String(), entityID)
	if err != nil {
		return nil, err
	}

	byField := make(map[id.ID]*FieldValue, len(stored))
	for _, v := range stored {
		byField[v.FieldID] = v
	}

	out := make([]FieldWithValue, 0, len(defs))
	for _, def := range defs {
		out = append(out, FieldWithValue{
			Definition: def,
			Value:      resolveRaw(def, byField[def.ID]),
		})
	}
	return out, nil
}

// SetValues stores a batch of values for one entity in a single
// transaction. Keys without a matching active definition are dropped.
// Values are serialized to their storage string form; nil clears.
func (s *Service) SetValues(ctx context.Context, entityType, entityID string, values map[string]any) error {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return err
	}
	if entityID == "" {
		return apperror.NewInvalidInput("entity id is required").WithDetail("field", "entityId")
	}
	if len(values) == 0 {
		return nil
	}
	tenantID := tenant.GetTenantID(ctx)

	defs, err := s.defs.List(ctx, tenantID, key.String(), true)
	if err != nil {
		return err
	}
	byKey := make(map[string]*FieldDefinition, len(defs))
	for _, def := range defs {
		byKey[def.FieldKey] = def
	}

	rows := make([]*FieldValue, 0, len(values))
	for fieldKey, raw := range values {
		def, ok := byKey[fieldKey]
		if !ok {
			logger.Debug(ctx, "dropping value for unknown field",
				"entity_type", key.String(), "field_key", fieldKey)
			continue
		}
		encoded, err := EncodeValue(raw)
		if err != nil {
			return apperror.NewInvalidInput("value is not serializable").
				WithDetail("field", fieldKey).
				WithCause(err)
		}
		rows = append(rows, &FieldValue{
			ID:         id.New(),
			TenantID:   tenantID,
			FieldID:    def.ID,
			EntityType: key.String(),
			EntityID:   entityID,
			Value:      encoded,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	txm := tenant.MustGetTxManager(ctx)
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.values.UpsertBatch(ctx, rows)
	}); err != nil {
		return err
	}

	s.audit(ctx, domain.AuditUpdate, key.String(), entityID, values)
	return nil
}

// GetValuesMap returns the entity's values keyed by fieldKey, decoded
// according to each field's type. Every active field appears in the map;
// fields with no value and no default map to nil.
func (s *Service) GetValuesMap(ctx context.Context, entityType, entityID string) (map[string]any, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	if entityID == "" {
		return nil, apperror.NewInvalidInput("entity id is required").WithDetail("field", "entityId")
	}
	tenantID := tenant.GetTenantID(ctx)

	defs, err := s.defs.List(ctx, tenantID, key.String(), true)
	if err != nil {
		return nil, err
	}
	stored, err := s.values.ListByEntity(ctx, tenantID, key.String(), entityID)
	if err != nil {
		return nil, err
	}

	byField := make(map[id.ID]*FieldValue, len(stored))
	for _, v := range stored {
		byField[v.FieldID] = v
	}
	return decodeEntity(ctx, defs, byField), nil
}

// GetValuesBulk returns decoded value maps for many entities of one type in
// two queries. Entities with no stored values still get a map built from
// defaults. An empty id list returns an empty result without touching the
// database.
func (s *Service) GetValuesBulk(ctx context.Context, entityType string, entityIDs []string) (map[string]map[string]any, error) {
	key, err := entitykey.Parse(entityType)
	if err != nil {
		return nil, err
	}
	if len(entityIDs) == 0 {
		return map[string]map[string]any{}, nil
	}
	tenantID := tenant.GetTenantID(ctx)

	defs, err := s.defs.List(ctx, tenantID, key.String(), true)
	if err != nil {
		return nil, err
	}
	stored, err := s.values.ListByEntities(ctx, tenantID, key.String(), entityIDs)
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string]map[id.ID]*FieldValue, len(entityIDs))
	for _, v := range stored {
		m, ok := byEntity[v.EntityID]
		if !ok {
			m = make(map[id.ID]*FieldValue)
			byEntity[v.EntityID] = m
		}
		m[v.FieldID] = v
	}

	out := make(map[string]map[string]any, len(entityIDs))
	for _, entityID := range entityIDs {
		out[entityID] = decodeEntity(ctx, defs, byEntity[entityID])
	}
	return out, nil
}

// resolveRaw picks the effective raw string for one (definition, value)
// pair. A stored empty string is an explicit clear and stays null; only a
// missing row falls through to the default.
func resolveRaw(def *FieldDefinition, stored *FieldValue) *string {
	if stored != nil {
		if stored.Value == "" {
			return nil
		}
		v := stored.Value
		return &v
	}
	if def.DefaultValue != nil && *def.DefaultValue != "" {
		v := *def.DefaultValue
		return &v
	}
	return nil
}

func decodeEntity(ctx context.Context, defs []*FieldDefinition, byField map[id.ID]*FieldValue) map[string]any {
	out := make(map[string]any, len(defs))
	for _, def := range defs {
		raw := resolveRaw(def, byField[def.ID])
		if raw == nil {
			out[def.FieldKey] = nil
			continue
		}
		tv := ParseValue(*raw, def.FieldType)
		if tv.DecodeErr != nil {
			logger.Warn(ctx, "stored value does not decode for its field type",
				"field_key", def.FieldKey, "field_type", def.FieldType, "error", tv.DecodeErr)
		}
		out[def.FieldKey] = tv.Interface()
	}
	return out
}

func (s *Service) audit(ctx context.Context, action domain.AuditAction, objectType, objectID string, payload any) {
	rec := domain.AuditRecord{
		Action:     action,
		ObjectType: "field:" + objectType,
		ObjectID:   objectID,
		Payload:    payload,
	}
	if err := s.auditor.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "audit record failed", "action", action, "error", err)
	}
}
