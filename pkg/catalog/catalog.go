package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Source provides the raw catalog definition.
type Source interface {
	Load(ctx context.Context) (Definition, error)
}

// Catalog is the validated, immutable permission and plan configuration.
// It is built once at startup and shared by every component; all methods are
// safe for concurrent use because nothing mutates it after New returns.
type Catalog struct {
	permissions  map[string]Permission
	groups       []string
	adminGroups  []string
	defaultGroup string
	plans        map[string]Plan
	planOrder    []string
}

// New loads a definition from source and validates it.
func New(ctx context.Context, source Source) (*Catalog, error) {
	def, err := source.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrSourceRead, err)
	}
	return FromDefinition(def)
}

// FromDefinition validates def and builds a Catalog from a private copy of it.
func FromDefinition(def Definition) (*Catalog, error) {
	c := &Catalog{
		permissions: make(map[string]Permission, len(def.Permissions)),
		plans:       make(map[string]Plan, len(def.Plans)),
	}

	for name, p := range def.Permissions {
		if err := validateGroupName(name); err != nil {
			return nil, err
		}
		if p.Default {
			if c.defaultGroup != "" {
				return nil, fmt.Errorf("%w: %q and %q", ErrMultipleDefaultGroups, c.defaultGroup, name)
			}
			c.defaultGroup = name
		}
		c.permissions[name] = p
		c.groups = append(c.groups, name)
		if p.Admin {
			c.adminGroups = append(c.adminGroups, name)
		}
	}
	if c.defaultGroup == "" {
		return nil, ErrNoDefaultGroup
	}
	slices.Sort(c.groups)
	slices.Sort(c.adminGroups)

	for _, p := range def.Plans {
		if p.ID == "" || len(p.PriceIDs) == 0 {
			return nil, fmt.Errorf("%w: plan %q must have an id and at least one price", ErrInvalidPlan, p.ID)
		}
		if _, ok := c.plans[p.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlan, p.ID)
		}
		p.PriceIDs = slices.Clone(p.PriceIDs)
		c.plans[p.ID] = p
		c.planOrder = append(c.planOrder, p.ID)
	}

	return c, nil
}

// Group names become document field paths, so dots and a leading '$' are refused.
func validateGroupName(name string) error {
	if name == "" || strings.Contains(name, ".") || strings.HasPrefix(name, "$") {
		return fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
	}
	return nil
}

// DefaultGroup returns the name of the baseline group every member belongs to.
func (c *Catalog) DefaultGroup() string { return c.defaultGroup }

// Groups returns all group names in sorted order.
func (c *Catalog) Groups() []string { return slices.Clone(c.groups) }

// AdminGroups returns the names of groups that grant management rights.
func (c *Catalog) AdminGroups() []string { return slices.Clone(c.adminGroups) }

// Permission returns the definition of the named group.
func (c *Catalog) Permission(name string) (Permission, bool) {
	p, ok := c.permissions[name]
	return p, ok
}

// HasGroup reports whether name is a catalog group.
func (c *Catalog) HasGroup(name string) bool {
	_, ok := c.permissions[name]
	return ok
}

// IsAdminGroup reports whether name is a catalog group flagged admin.
func (c *Catalog) IsAdminGroup(name string) bool {
	return c.permissions[name].Admin
}

// InitialGroups returns the groups a subscription creator is placed in:
// every group flagged default or admin.
func (c *Catalog) InitialGroups() []string {
	out := make([]string, 0, len(c.adminGroups)+1)
	for _, g := range c.groups {
		p := c.permissions[g]
		if p.Default || p.Admin {
			out = append(out, g)
		}
	}
	return out
}

// ValidateGroups rejects any name that is not a catalog group.
func (c *Catalog) ValidateGroups(names []string) error {
	for _, n := range names {
		if !c.HasGroup(n) {
			return ErrUnknownPermission.With(fmt.Errorf("unknown permission group %q", n))
		}
	}
	return nil
}

// Plan resolves a plan by id.
func (c *Catalog) Plan(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrUnknownPlan.With(fmt.Errorf("unknown plan %q", id))
	}
	p.PriceIDs = slices.Clone(p.PriceIDs)
	return p, nil
}

// Plans returns every plan in definition order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.planOrder))
	for _, id := range c.planOrder {
		p, _ := c.Plan(id)
		out = append(out, p)
	}
	return out
}
