package domain

// Principal is the authenticated user behind a request. Only the fields
// needed for tenant resolution are loaded.
type Principal struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	TenantID *int64 `json:"tenant_id,omitempty"`
	IsActive bool   `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

// HasTenant reports whether the principal is assigned to a workspace.
func (p Principal) HasTenant() bool {
	return p.TenantID != nil
}
