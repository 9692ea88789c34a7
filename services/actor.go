package services

import (
	"context"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
	RoleParent     Role = "parent"
)

func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Actor is the authenticated user a request acts for.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	FamilyID *uuid.UUID
	Token    string
}

// CanViewHolder decides whether the actor may read a holder's credit ledger.
func (a Actor) CanViewHolder(h models.Holder) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleStudent:
		return h.Kind == models.HolderStudent && h.ID == a.ID
	case RoleParent:
		return h.Kind == models.HolderFamily && a.FamilyID != nil && *a.FamilyID == h.ID
	}
	return false
}

// CanPurchaseFor decides whether the actor may buy credits for a holder.
func (a Actor) CanPurchaseFor(h models.Holder) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleParent:
		return h.Kind == models.HolderFamily && a.FamilyID != nil && *a.FamilyID == h.ID
	}
	return false
}

type tokenKey struct{}

// ContextWithToken attaches the bearer token forwarded to the class backend.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
