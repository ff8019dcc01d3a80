package access

import (
	"slices"

	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/model"
)

// Policy evaluates and mutates a subscription's permission groups against
// the catalog. It holds no mutable state.
//
// Mutators change sub.Permissions in place and return the MembershipChange
// they applied, so a store can replay the same delta with field-level set
// operations instead of overwriting the whole map.
type Policy struct {
	catalog *catalog.Catalog
}

// NewPolicy panics if cat is nil.
func NewPolicy(cat *catalog.Catalog) *Policy {
	if cat == nil {
		panic("access: catalog is required")
	}
	return &Policy{catalog: cat}
}

// Catalog returns the catalog the policy evaluates against.
func (p *Policy) Catalog() *catalog.Catalog { return p.catalog }

func (p *Policy) IsOwner(sub *model.Subscription, uid string) bool {
	return uid != "" && sub.OwnerID == uid
}

// IsAdmin is true for the owner and for members of any admin group.
func (p *Policy) IsAdmin(sub *model.Subscription, uid string) bool {
	if uid == "" {
		return false
	}
	if p.IsOwner(sub, uid) {
		return true
	}
	for _, g := range p.catalog.AdminGroups() {
		if slices.Contains(sub.Permissions[g], uid) {
			return true
		}
	}
	return false
}

func (p *Policy) HasDefaultAccess(sub *model.Subscription, uid string) bool {
	return uid != "" && slices.Contains(sub.Permissions[p.catalog.DefaultGroup()], uid)
}

// IsMember reports whether uid appears in any permission group.
func (p *Policy) IsMember(sub *model.Subscription, uid string) bool {
	for _, uids := range sub.Permissions {
		if slices.Contains(uids, uid) {
			return true
		}
	}
	return false
}

func (p *Policy) RequireOwner(sub *model.Subscription, uid string) error {
	if !p.IsOwner(sub, uid) {
		return ErrNotOwner
	}
	return nil
}

func (p *Policy) RequireAdmin(sub *model.Subscription, uid string) error {
	if !p.IsAdmin(sub, uid) {
		return ErrNotAdmin
	}
	return nil
}

// RequireDefaultAccess also admits the owner.
func (p *Policy) RequireDefaultAccess(sub *model.Subscription, uid string) error {
	if !p.HasDefaultAccess(sub, uid) && !p.IsOwner(sub, uid) {
		return ErrNoAccess
	}
	return nil
}

// ValidateGroups rejects names that are not catalog groups.
func (p *Policy) ValidateGroups(groups []string) error {
	return p.catalog.ValidateGroups(groups)
}

// InitialPermissions returns the permission map of a new subscription: the
// creator in every default or admin group.
func (p *Policy) InitialPermissions(uid string) map[string][]string {
	perms := map[string][]string{}
	for _, g := range p.catalog.InitialGroups() {
		perms[g] = []string{uid}
	}
	return perms
}

// Grant adds uid to groups and to the default group. Groups uid already
// belongs to are skipped.
func (p *Policy) Grant(sub *model.Subscription, uid string, groups []string) (model.MembershipChange, error) {
	if err := p.ValidateGroups(groups); err != nil {
		return model.MembershipChange{}, err
	}
	change := model.MembershipChange{UserID: uid}
	for _, g := range p.withDefault(groups) {
		if !slices.Contains(sub.Permissions[g], uid) {
			change.Add = append(change.Add, g)
		}
	}
	sub.ApplyMembership(change)
	return change, nil
}

// RevokeAll removes uid from every group. The owner cannot be removed.
func (p *Policy) RevokeAll(sub *model.Subscription, uid string) (model.MembershipChange, error) {
	if p.IsOwner(sub, uid) {
		return model.MembershipChange{}, ErrOwnerNotRemovable
	}
	change := model.MembershipChange{UserID: uid, Remove: sub.GroupsOf(uid)}
	sub.ApplyMembership(change)
	return change, nil
}

// SetExact makes uid's membership across all catalog groups equal to
// groups plus the default group.
func (p *Policy) SetExact(sub *model.Subscription, uid string, groups []string) (model.MembershipChange, error) {
	if err := p.ValidateGroups(groups); err != nil {
		return model.MembershipChange{}, err
	}
	want := p.withDefault(groups)
	change := model.MembershipChange{UserID: uid}
	for _, g := range p.catalog.Groups() {
		has := slices.Contains(sub.Permissions[g], uid)
		wanted := slices.Contains(want, g)
		switch {
		case wanted && !has:
			change.Add = append(change.Add, g)
		case !wanted && has:
			change.Remove = append(change.Remove, g)
		}
	}
	sub.ApplyMembership(change)
	return change, nil
}

func (p *Policy) withDefault(groups []string) []string {
	out := make([]string, 0, len(groups)+1)
	out = append(out, p.catalog.DefaultGroup())
	for _, g := range groups {
		if !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}
