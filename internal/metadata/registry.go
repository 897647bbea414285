// Package metadata holds the catalog of fixed entity types the platform
// attaches custom fields, relations and views to. The catalog is
// informational: entity type strings are accepted anywhere, fixed or not,
// and tenant-invented "generic:<slug>" types never appear here.
package metadata

import "sort"

// EntityDef describes one fixed collaborator entity type.
type EntityDef struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	PluralLabel string `json:"pluralLabel,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Registry stores entity definitions.
type Registry struct {
	entities map[string]EntityDef
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]EntityDef),
	}
}

func (r *Registry) Register(def EntityDef) {
	r.entities[def.Name] = def
}

func (r *Registry) Get(name string) (EntityDef, bool) {
	d, ok := r.entities[name]
	return d, ok
}

// List returns all registered definitions sorted by name.
func (r *Registry) List() []EntityDef {
	list := make([]EntityDef, 0, len(r.entities))
	for _, def := range r.entities {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// DefaultRegistry returns the catalog of entity types served by the
// fixed business routers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []EntityDef{
		{Name: "client", Label: "Client", PluralLabel: "Clients", Icon: "users"},
		{Name: "project", Label: "Project", PluralLabel: "Projects", Icon: "folder"},
		{Name: "task", Label: "Task", PluralLabel: "Tasks", Icon: "check-square"},
		{Name: "proposal", Label: "Proposal", PluralLabel: "Proposals", Icon: "file-text"},
		{Name: "purchase_order", Label: "Purchase Order", PluralLabel: "Purchase Orders", Icon: "shopping-cart"},
		{Name: "payment", Label: "Payment", PluralLabel: "Payments", Icon: "credit-card"},
		{Name: "supplier", Label: "Supplier", PluralLabel: "Suppliers", Icon: "truck"},
		{Name: "user", Label: "User", PluralLabel: "Users", Icon: "user"},
	} {
		r.Register(def)
	}
	return r
}
