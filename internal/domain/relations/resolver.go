package relations

// Inverse inference. A bidirectional definition owned by one side must be
// browsable from the other side without a mirror definition or edge row.
// Both the definition list and the per-entity relation list derive their
// inverse entries from the candidate rules below, so the two surfaces
// cannot drift apart.

// inverseDefinitionsFor returns the definitions that should appear as
// inferred inverse entries when listing definitions for sourceType: every
// active bidirectional definition owned by a different entity type that
// targets sourceType.
func inverseDefinitionsFor(all []*RelationDefinition, sourceType string) []*RelationDefinition {
	var out []*RelationDefinition
	for _, d := range all {
		if !d.IsBidirectional || !d.IsActive {
			continue
		}
		if d.SourceEntityType == sourceType {
			continue
		}
		if !d.TargetEntityTypes.Contains(sourceType) {
			continue
		}
		out = append(out, d.AsInverse(sourceType))
	}
	return out
}

// inverseCandidatesFor returns the definitions whose stored edges may imply
// inverse edges for an entity of callerSourceType queried through current.
// Three rules apply:
//
//   - far side of current: when the caller sits on the target side of a
//     bidirectional current (callerSourceType is one of its targets but not
//     its source), current's own edges point at the caller and current is
//     itself a candidate. This is what makes a single stored edge visible
//     from both ends.
//
//   - matching pair: another definition declaring the return trip, i.e.
//     its source is one of current's targets and its targets include
//     current's source.
//
//   - bidirectional: when current itself is not bidirectional, any other
//     bidirectional definition targeting callerSourceType whose source is
//     one of current's targets still implies edges toward the caller.
func inverseCandidatesFor(all []*RelationDefinition, current *RelationDefinition, callerSourceType string) []*RelationDefinition {
	var out []*RelationDefinition
	seen := make(map[string]bool)

	add := func(d *RelationDefinition) {
		if seen[d.ID.String()] {
			return
		}
		seen[d.ID.String()] = true
		out = append(out, d)
	}

	if current.IsBidirectional &&
		current.SourceEntityType != callerSourceType &&
		current.TargetEntityTypes.Contains(callerSourceType) {
		add(current)
	}

	for _, d := range all {
		if !d.IsActive || d.ID == current.ID {
			continue
		}
		if current.TargetEntityTypes.Contains(d.SourceEntityType) &&
			d.TargetEntityTypes.Contains(current.SourceEntityType) {
			add(d)
			continue
		}
		if !current.IsBidirectional && d.IsBidirectional &&
			d.TargetEntityTypes.Contains(callerSourceType) &&
			current.TargetEntityTypes.Contains(d.SourceEntityType) {
			add(d)
		}
	}
	return out
}
