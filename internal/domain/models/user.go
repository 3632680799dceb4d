package models

// RoleOrgAdmin may act across every store of an organization.
const RoleOrgAdmin = "org_admin"

// User is the authenticated identity as returned by the billing API.
type User struct {
	ID             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	Email          string `json:"email" bson:"email"`
	Role           string `json:"role" bson:"role"`
	OrganizationID string `json:"organization_id" bson:"organization_id"`
	// Store is the implicit store of non-admin users.
	Store *Store `json:"store,omitempty" bson:"store,omitempty"`
}

// IsOrgAdmin reports whether the user may switch between stores.
func (u User) IsOrgAdmin() bool {
	return u.Role == RoleOrgAdmin
}

// UserInput is the payload used to create or update a user.
type UserInput struct {
	Name                 string `json:"name" binding:"required"`
	Email                string `json:"email" binding:"required"`
	Role                 string `json:"role,omitempty"`
	StoreID              string `json:"store_id,omitempty"`
	Password             string `json:"password,omitempty" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation,omitempty" binding:"eqfield=Password"`
}
