// Package policy maps the application's roles to capability sets and wires
// them into the authorization gate, together with the ownership rules a
// CLIENT principal is subject to.
package policy

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/internal/models"
)

var (
	adminProfile = gate.NewStaticProfile(models.RoleAdmin, gate.PermissionAll)

	// The boutiquier runs the shop: full control over inventory, clients and
	// the ledger, no user administration beyond viewing their own record and
	// removing client accounts (refined further in UserPolicy).
	boutiquierProfile = gate.NewStaticProfile(models.RoleBoutiquier,
		"article:*",
		"categorie:*",
		"promo:*",
		"client:*",
		"dette:*",
		"paiement:*",
		"user:view",
		"user:delete",
	)

	clientProfile = gate.NewStaticProfile(models.RoleClient,
		"article:view", "article:list",
		"dette:view", "dette:list",
		"paiement:view", "paiement:list",
		"paiement:create",
		"user:view",
	)
)

// ProfileForRole returns the capability set of a role, or nil for an
// unknown role.
func ProfileForRole(role string) gate.Profile {
	switch role {
	case models.RoleAdmin:
		return adminProfile
	case models.RoleBoutiquier:
		return boutiquierProfile
	case models.RoleClient:
		return clientProfile
	default:
		return nil
	}
}

// UserResolver resolves a user id to the profile of that user's current
// role. Blocked and deleted users resolve to no profile, which the gate
// treats as a denial.
type UserResolver struct {
	db *gorm.DB
}

func NewUserResolver(db *gorm.DB) *UserResolver { return &UserResolver{db: db} }

func (r *UserResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.Etat {
		return nil, nil
	}
	return ProfileForRole(user.Role), nil
}

// DettePolicy lets non-CLIENT principals through and restricts CLIENT
// principals to debts owed by their own linked client record. The same rule
// covers paiements, with the parent dette passed as the resource.
type DettePolicy struct {
	db *gorm.DB
}

func NewDettePolicy(db *gorm.DB) *DettePolicy { return &DettePolicy{db: db} }

func (p *DettePolicy) Can(ctx context.Context, userID uint, _ gate.Action, resource any) bool {
	dette, ok := resource.(*models.Dette)
	if !ok {
		return false
	}
	var user models.User
	if err := p.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false
	}
	if user.Role != models.RoleClient {
		return true
	}
	var count int64
	if err := p.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND user_id = ?", dette.ClientID, userID).
		Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// UserPolicy mirrors the account rules: everyone may view their own record,
// a boutiquier may delete client accounts only.
type UserPolicy struct {
	db *gorm.DB
}

func NewUserPolicy(db *gorm.DB) *UserPolicy { return &UserPolicy{db: db} }

func (p *UserPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	target, ok := resource.(*models.User)
	if !ok {
		return false
	}
	var actor models.User
	if err := p.db.WithContext(ctx).First(&actor, userID).Error; err != nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	switch action {
	case gate.ActionView, gate.ActionUpdate:
		return actor.ID == target.ID
	case gate.ActionDelete:
		return actor.Role == models.RoleBoutiquier && target.Role == models.RoleClient
	default:
		return false
	}
}

// NewGate assembles the application gate: role profiles resolved from the
// users table behind a short-lived cache, plus the ownership policies.
func NewGate(db *gorm.DB) *gate.Gate[uint] {
	g := gate.New[uint](gate.NewCachedResolver[uint](NewUserResolver(db), time.Minute))
	dettePolicy := NewDettePolicy(db)
	g.Register("dette", dettePolicy)
	g.Register("paiement", dettePolicy)
	g.Register("user", NewUserPolicy(db))
	return g
}
