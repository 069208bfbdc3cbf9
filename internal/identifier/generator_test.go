package identifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

type stubIDStore struct {
	ids         map[int64]map[string]struct{}
	existsCalls int
	listCalls   int
	err         error
}

var _ Store = (*stubIDStore)(nil)

func newStubIDStore(tenantID int64, ids ...string) *stubIDStore {
	s := &stubIDStore{ids: map[int64]map[string]struct{}{tenantID: {}}}
	for _, id := range ids {
		s.ids[tenantID][id] = struct{}{}
	}
	return s
}

func (s *stubIDStore) EmployeeIDExists(_ context.Context, tenantID int64, employeeID string) (bool, error) {
	s.existsCalls++
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.ids[tenantID][employeeID]
	return ok, nil
}

func (s *stubIDStore) ListEmployeeIDs(_ context.Context, tenantID int64) ([]string, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, 0, len(s.ids[tenantID]))
	for id := range s.ids[tenantID] {
		out = append(out, id)
	}
	return out, nil
}

func TestBaseID(t *testing.T) {
	cases := []struct {
		name, dept string
		tenant     int64
		want       string
	}{
		{"Siddhant", "Marketing Analysis", 25, "SID-MA-025"},
		{"  ravi kumar ", "sales", 7, "RAV-SA-007"},
		{"Al", "", 3, "ALX-XX-003"},
		{"O'Neil", "R&D", 1200, "ONE-RD-1200"},
		{"Jo9", "A", 42, "JOX-AX-042"},
	}

	for _, tc := range cases {
		got, ok := BaseID(tc.name, tc.dept, tc.tenant)
		require.True(t, ok, tc.name)
		require.Equal(t, tc.want, got)
	}

	for _, invalid := range []string{"", "-", "0", "nan", "None", "   "} {
		_, ok := BaseID(invalid, "Sales", 1)
		require.False(t, ok, "expected %q to be rejected", invalid)
	}
}

func TestGenerateWalksSuffixes(t *testing.T) {
	store := newStubIDStore(25, "SID-MA-025", "SID-MA-025-A")
	g := NewGenerator(store)

	id, err := g.Generate(context.Background(), "Siddhant", 25, "Marketing")
	require.NoError(t, err)
	require.Equal(t, "SID-MA-025-B", id)
	require.Equal(t, 3, store.existsCalls)
}

func TestGenerateFallsBackToRandomWhenExhausted(t *testing.T) {
	store := newStubIDStore(1, Candidates("RAV-SA-001")...)
	g := NewGenerator(store)
	g.random = func() string { return "deadbeef" }

	id, err := g.Generate(context.Background(), "Ravi", 1, "Sales")
	require.NoError(t, err)
	require.Equal(t, "deadbeef", id)
	require.Equal(t, len(Suffixes)+2, store.existsCalls)
}

func TestGenerateRandomFallbackSkipsStoredIDs(t *testing.T) {
	store := newStubIDStore(1, "aaaaaaaa")
	g := NewGenerator(store)
	seq := []string{"aaaaaaaa", "bbbbbbbb"}
	g.random = func() string {
		next := seq[0]
		seq = seq[1:]
		return next
	}

	id, err := g.Generate(context.Background(), "-", 1, "Sales")
	require.NoError(t, err)
	require.Equal(t, "bbbbbbbb", id)
	require.Equal(t, 2, store.existsCalls)
}

func TestGenerateInvalidNameIsRandom(t *testing.T) {
	store := newStubIDStore(1)
	id, err := NewGenerator(store).Generate(context.Background(), "nan", 1, "Sales")
	require.NoError(t, err)
	require.Len(t, id, randomLength)
	require.Equal(t, 1, store.existsCalls)
}

func TestGeneratePropagatesStoreErrors(t *testing.T) {
	store := newStubIDStore(1)
	store.err = errors.New("connection reset")

	_, err := NewGenerator(store).Generate(context.Background(), "Ravi", 1, "Sales")
	require.ErrorIs(t, err, store.err)

	_, err = NewGenerator(store).GenerateBatch(context.Background(), []Subject{{Name: "Ravi"}}, 1)
	require.ErrorIs(t, err, store.err)
}

func TestGenerateBatchDistinguishesIdenticalSubjects(t *testing.T) {
	store := newStubIDStore(1)
	subjects := []Subject{{Name: "Ravi", Department: "Sales"}, {Name: "Ravi", Department: "Sales"}}

	ids, err := NewGenerator(store).GenerateBatch(context.Background(), subjects, 1)
	require.NoError(t, err)
	require.Equal(t, "RAV-SA-001", ids[0])
	require.Equal(t, "RAV-SA-001-A", ids[1])
	require.NotEqual(t, ids[0], ids[1])
	require.True(t, strings.HasPrefix(ids[1], ids[0]))
	require.Equal(t, 1, store.listCalls)
	require.Zero(t, store.existsCalls)
}

func TestGenerateBatchSkipsPersistedIDs(t *testing.T) {
	store := newStubIDStore(9, "ASH-FI-009", "ASH-FI-009-A")
	subjects := []Subject{{Name: "Asha", Department: "Finance"}, {Name: "Ashok", Department: "Fin"}}

	ids, err := NewGenerator(store).GenerateBatch(context.Background(), subjects, 9)
	require.NoError(t, err)
	require.Equal(t, map[int]string{0: "ASH-FI-009-B", 1: "ASH-FI-009-C"}, ids)
}

func TestGenerateBatchOtherTenantsDoNotCollide(t *testing.T) {
	store := newStubIDStore(1, "RAV-SA-002")
	ids, err := NewGenerator(store).GenerateBatch(context.Background(), []Subject{{Name: "Ravi", Department: "Sales"}}, 2)
	require.NoError(t, err)
	require.Equal(t, "RAV-SA-002", ids[0])
}

func TestGenerateBatchEmpty(t *testing.T) {
	store := newStubIDStore(1)
	ids, err := NewGenerator(store).GenerateBatch(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Zero(t, store.listCalls)
}

func TestAllocatorRandomFallbackAvoidsTakenIDs(t *testing.T) {
	alloc := NewAllocator(1, Candidates("RAV-SA-001"))
	seq := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	alloc.random = func() string {
		next := seq[0]
		seq = seq[1:]
		return next
	}

	require.Equal(t, "aaaaaaaa", alloc.Allocate("Ravi", "Sales"))
	require.Equal(t, "bbbbbbbb", alloc.Allocate("Ravi", "Sales"))
	require.True(t, alloc.Taken("bbbbbbbb"))
}

func TestProperty_BatchIdentifiersAreUnique(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := gen.OneConstOf("Ravi", "Ravindra", "Asha", "Al", "", "-", "Meera")
	depts := gen.OneConstOf("Sales", "Sa", "", "Finance")
	subject := gopter.CombineGens(names, depts).Map(func(values []interface{}) Subject {
		return Subject{Name: values[0].(string), Department: values[1].(string)}
	})

	properties.Property("no identifier is handed out twice", prop.ForAll(
		func(subjects []Subject, existingCount int) bool {
			var existing []string
			for i := 0; i < existingCount && i < len(subjects); i++ {
				if base, ok := BaseID(subjects[i].Name, subjects[i].Department, 4); ok {
					existing = append(existing, base)
				}
			}
			alloc := NewAllocator(4, existing)

			seen := make(map[string]struct{}, len(existing)+len(subjects))
			for _, id := range existing {
				seen[id] = struct{}{}
			}
			for _, s := range subjects {
				id := alloc.Allocate(s.Name, s.Department)
				if _, dup := seen[id]; dup {
					return false
				}
				seen[id] = struct{}{}
			}
			return true
		},
		gen.SliceOf(subject),
		gen.IntRange(0, 5),
	))

	properties.Property("structured identifiers extend their base", prop.ForAll(
		func(subjects []Subject) bool {
			alloc := NewAllocator(4, nil)
			for _, s := range subjects {
				id := alloc.Allocate(s.Name, s.Department)
				base, ok := BaseID(s.Name, s.Department, 4)
				if !ok {
					if len(id) != randomLength {
						return false
					}
					continue
				}
				if !strings.HasPrefix(id, base) && len(id) != randomLength {
					return false
				}
			}
			return true
		},
		gen.SliceOf(subject),
	))

	properties.TestingRun(t)
}
