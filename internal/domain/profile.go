package domain

import (
	"strings"
	"time"
)

// Role enumerates profile capabilities.
type Role string

const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// RoleLabels holds the Spanish display labels.
var RoleLabels = map[Role]string{
	RoleAdmin:      "Administrador",
	RoleTechnician: "Técnico",
	RoleUser:       "Usuario",
}

// IsValid reports whether the role is one of the enumerated values.
func (r Role) IsValid() bool {
	_, ok := RoleLabels[r]
	return ok
}

// Profile is the durable representation of an authenticated principal.
// The identifier is shared with the identity provider's principal id.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// CanManage reports whether the profile may change ticket status, priority
// and assignment, and view private notes.
func (p *Profile) CanManage() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleTechnician)
}

// NewProvisionedProfile builds the default profile created on a principal's
// first authenticated session.
func NewProvisionedProfile(id, email string) *Profile {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return &Profile{
		ID:         id,
		Email:      email,
		Name:       name,
		Role:       RoleUser,
		Department: "General",
	}
}

// ProfilePatch is a partial profile update applied by admins.
type ProfilePatch struct {
	Name       *string `json:"name,omitempty"`
	Role       *Role   `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
}

// ApplyTo merges the patch into a cached copy of the profile.
func (p ProfilePatch) ApplyTo(profile *Profile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Role != nil {
		profile.Role = *p.Role
	}
	if p.Department != nil {
		profile.Department = *p.Department
	}
}
