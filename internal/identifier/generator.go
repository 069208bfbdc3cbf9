package identifier

import (
	"context"
	"fmt"
)

// ExistenceChecker answers whether an identifier is already stored for a tenant.
type ExistenceChecker interface {
	EmployeeIDExists(ctx context.Context, tenantID int64, employeeID string) (bool, error)
}

// Lister fetches every stored identifier for a tenant.
type Lister interface {
	ListEmployeeIDs(ctx context.Context, tenantID int64) ([]string, error)
}

// Store is the storage surface both policies need.
type Store interface {
	ExistenceChecker
	Lister
}

// Generator assigns identifiers against persisted state.
type Generator struct {
	store  Store
	random func() string
}

// NewGenerator constructs a Generator over the given store.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store, random: RandomID}
}

// Generate resolves one identifier with one existence lookup per candidate.
// If the base and every suffix are taken it falls back to a random
// identifier, which is checked the same way.
func (g *Generator) Generate(ctx context.Context, name string, tenantID int64, department string) (string, error) {
	if base, ok := BaseID(name, department, tenantID); ok {
		for _, candidate := range Candidates(base) {
			free, err := g.free(ctx, tenantID, candidate)
			if err != nil || free {
				return candidate, err
			}
		}
	}

	for {
		candidate := g.random()
		free, err := g.free(ctx, tenantID, candidate)
		if err != nil || free {
			return candidate, err
		}
	}
}

func (g *Generator) free(ctx context.Context, tenantID int64, candidate string) (bool, error) {
	exists, err := g.store.EmployeeIDExists(ctx, tenantID, candidate)
	if err != nil {
		return false, fmt.Errorf("check employee id %q: %w", candidate, err)
	}
	return !exists, nil
}

// GenerateBatch loads the tenant's identifiers once and resolves every
// subject in memory. The result maps subject index to identifier.
func (g *Generator) GenerateBatch(ctx context.Context, subjects []Subject, tenantID int64) (map[int]string, error) {
	ids := make(map[int]string, len(subjects))
	if len(subjects) == 0 {
		return ids, nil
	}

	existing, err := g.store.ListEmployeeIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list employee ids: %w", err)
	}

	alloc := NewAllocator(tenantID, existing)
	alloc.random = g.random
	for idx, subject := range subjects {
		ids[idx] = alloc.Allocate(subject.Name, subject.Department)
	}

	return ids, nil
}
