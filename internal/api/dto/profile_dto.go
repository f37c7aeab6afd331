package dto

import "github.com/push-hr/helpdesk/internal/domain"

// UpdateProfileRequest carries an admin profile patch.
type UpdateProfileRequest struct {
	Name       *string      `json:"name"`
	Role       *domain.Role `json:"role"`
	Department *string      `json:"department"`
}

// Patch converts the request into a domain patch.
func (r UpdateProfileRequest) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Name:       r.Name,
		Role:       r.Role,
		Department: r.Department,
	}
}
