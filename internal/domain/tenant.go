package domain

import (
	"strings"
	"time"
)

// Tenant is a company workspace. Every employee and attendance row
// belongs to exactly one tenant.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTenant creates an active tenant with immutable pattern
func NewTenant(name, subdomain string) Tenant {
	now := time.Now()
	return Tenant{
		Name:      strings.TrimSpace(name),
		Subdomain: strings.ToLower(strings.TrimSpace(subdomain)),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Deactivated returns a copy of the tenant marked inactive
func (t Tenant) Deactivated() Tenant {
	t.IsActive = false
	t.UpdatedAt = time.Now()
	return t
}

// WithName returns a new tenant with updated name
func (t Tenant) WithName(name string) Tenant {
	t.Name = strings.TrimSpace(name)
	t.UpdatedAt = time.Now()
	return t
}
