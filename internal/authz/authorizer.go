// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package authz

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
	"github.com/tomtom215/plantingsites/internal/model"
)

// Roles understood by the embedded policy.
const (
	RoleViewer      = "viewer"
	RoleContributor = "contributor"
	RoleManager     = "manager"
	RoleAdmin       = "admin"
)

// Objects and actions checked by the Authorizer.
const (
	ObjectSite    = "site"
	ObjectSubzone = "subzone"

	ActionCreate   = "create"
	ActionRead     = "read"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionComplete = "complete"
	ActionPlant    = "plant"
)

// Authorizer is consulted by the site service before it reads or writes.
// Every check names the organization that owns the resource.
type Authorizer interface {
	CanCreateSite(ctx context.Context, org model.OrganizationID) bool
	CanReadSite(ctx context.Context, org model.OrganizationID) bool
	CanUpdateSite(ctx context.Context, org model.OrganizationID) bool
	CanDeleteSite(ctx context.Context, org model.OrganizationID) bool
	CanUpdateSubzoneCompleted(ctx context.Context, org model.OrganizationID) bool
	CanRecordPlanting(ctx context.Context, org model.OrganizationID) bool
}

// Principal identifies a caller and the roles they hold.
type Principal struct {
	Subject    string
	GlobalRole string                          // Applies in every organization when set
	Roles      map[model.OrganizationID]string // Role per organization
}

// RoleIn returns the principal's role in org, or "" for none.
func (p *Principal) RoleIn(org model.OrganizationID) string {
	if p == nil {
		return ""
	}
	if role, ok := p.Roles[org]; ok {
		return role
	}
	return p.GlobalRole
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal in ctx, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// CasbinAuthorizer answers capability checks with an Enforcer.
type CasbinAuthorizer struct {
	enforcer *Enforcer
	logger   zerolog.Logger
}

var _ Authorizer = (*CasbinAuthorizer)(nil)

// NewCasbinAuthorizer creates an authorizer backed by e.
func NewCasbinAuthorizer(e *Enforcer) *CasbinAuthorizer {
	return &CasbinAuthorizer{enforcer: e, logger: logging.WithComponent("authz")}
}

func (a *CasbinAuthorizer) CanCreateSite(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSite, ActionCreate)
}

func (a *CasbinAuthorizer) CanReadSite(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSite, ActionRead)
}

func (a *CasbinAuthorizer) CanUpdateSite(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSite, ActionUpdate)
}

func (a *CasbinAuthorizer) CanDeleteSite(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSite, ActionDelete)
}

func (a *CasbinAuthorizer) CanUpdateSubzoneCompleted(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSubzone, ActionComplete)
}

func (a *CasbinAuthorizer) CanRecordPlanting(ctx context.Context, org model.OrganizationID) bool {
	return a.check(ctx, org, ObjectSite, ActionPlant)
}

// check denies when the context has no principal, the principal has no role
// in org, or enforcement fails.
func (a *CasbinAuthorizer) check(ctx context.Context, org model.OrganizationID, object, action string) bool {
	p := PrincipalFromContext(ctx)
	role := p.RoleIn(org)
	allowed := false
	if role != "" {
		var err error
		allowed, err = a.enforcer.Enforce(role, object, action)
		if err != nil {
			logging.Ctx(logging.ContextWithLogger(ctx, a.logger)).Error().Err(err).
				Str("role", role).
				Str("object", object).
				Str("action", action).
				Msg("Authorization check failed")
			allowed = false
		}
	}
	metrics.RecordAuthzDecision(object+"."+action, allowed)

	if !allowed {
		subject := ""
		if p != nil {
			subject = p.Subject
		}
		logging.Ctx(logging.ContextWithLogger(ctx, a.logger)).Debug().
			Str("subject", subject).
			Int64("organization_id", int64(org)).
			Str("object", object).
			Str("action", action).
			Msg("Authorization denied")
	}
	return allowed
}

// AllowAll grants every request.
type AllowAll struct{}

var _ Authorizer = AllowAll{}

func (AllowAll) CanCreateSite(context.Context, model.OrganizationID) bool             { return true }
func (AllowAll) CanReadSite(context.Context, model.OrganizationID) bool               { return true }
func (AllowAll) CanUpdateSite(context.Context, model.OrganizationID) bool             { return true }
func (AllowAll) CanDeleteSite(context.Context, model.OrganizationID) bool             { return true }
func (AllowAll) CanUpdateSubzoneCompleted(context.Context, model.OrganizationID) bool { return true }
func (AllowAll) CanRecordPlanting(context.Context, model.OrganizationID) bool         { return true }
