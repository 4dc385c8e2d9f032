package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/directauth/backend"
)

// DefaultRole is assigned to every provisioned profile row.
const DefaultRole = "user"

// User is the application-level profile row backing an authenticated
// identity. Optional fields are pointers so that an absent value and an
// empty value stay distinguishable on update.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FirstName        *string   `json:"first_name,omitempty"`
	LastName         *string   `json:"last_name,omitempty"`
	DisplayName      *string   `json:"display_name,omitempty"`
	AvatarURL        *string   `json:"avatar_url,omitempty"`
	ThemeID          *string   `json:"theme_id,omitempty"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	Role             string    `json:"role"`
}

// UpdateParams carries the recognized mutable profile fields. Nil fields are
// left untouched.
type UpdateParams struct {
	FirstName        *string
	LastName         *string
	DisplayName      *string
	AvatarURL        *string
	ThemeID          *string
	StripeCustomerID *string
	Role             *string
}

// Empty reports whether the update carries no recognized field.
func (p UpdateParams) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DisplayName == nil &&
		p.AvatarURL == nil && p.ThemeID == nil && p.StripeCustomerID == nil && p.Role == nil
}

// Store persists profile rows. Implementations map their backend's "no such
// row" condition to ErrNotFound and permission denials to
// ErrPermissionDenied.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) error
}

// fromBackendUser derives a fresh profile row from the provider's identity
// and its sign-up metadata.
func fromBackendUser(bu *backend.User) (*User, error) {
	id, err := uuid.Parse(bu.ID)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:    id,
		Email: bu.Email,
		Role:  DefaultRole,
	}
	if v, ok := bu.Metadata["first_name"]; ok && v != "" {
		user.FirstName = &v
	}
	if v, ok := bu.Metadata["last_name"]; ok && v != "" {
		user.LastName = &v
	}
	if v, ok := bu.Metadata["display_name"]; ok && v != "" {
		user.DisplayName = &v
	}
	if v, ok := bu.Metadata["avatar_url"]; ok && v != "" {
		user.AvatarURL = &v
	}
	return user, nil
}
