// Package identifier builds tenant-scoped employee identifiers of the form
// NAME3-DEPT2-TENANT3, disambiguated with letter suffixes.
package identifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/rpattn/payrolldesk/internal/normalize"
)

const (
	nameWidth         = 3
	departmentWidth   = 2
	padding           = 'X'
	missingDepartment = "XX"
	randomLength      = 8
)

// Suffixes are tried in order after the bare base identifier.
var Suffixes = []string{"-A", "-B", "-C", "-D", "-E", "-F", "-G", "-H", "-I", "-J"}

// Subject is the part of a record an identifier is derived from.
type Subject struct {
	Name       string
	Department string
}

// BaseID returns the unsuffixed identifier. The boolean is false when the
// name cannot produce a structured identifier.
func BaseID(name, department string, tenantID int64) (string, bool) {
	if !normalize.IsValidName(name) {
		return "", false
	}

	dept := missingDepartment
	if strings.TrimSpace(department) != "" {
		dept = letters(department, departmentWidth)
	}

	return fmt.Sprintf("%s-%s-%03d", letters(name, nameWidth), dept, tenantID), true
}

// Candidates lists the identifiers tried for a base, in order.
func Candidates(base string) []string {
	out := make([]string, 0, len(Suffixes)+1)
	out = append(out, base)
	for _, suffix := range Suffixes {
		out = append(out, base+suffix)
	}
	return out
}

// RandomID returns a random eight character identifier.
func RandomID() string {
	return uuid.New().String()[:randomLength]
}

func letters(value string, width int) string {
	out := make([]rune, 0, width)
	for _, r := range strings.ToUpper(strings.TrimSpace(value)) {
		if len(out) == width {
			break
		}
		if unicode.IsLetter(r) {
			out = append(out, r)
		}
	}
	for len(out) < width {
		out = append(out, padding)
	}
	return string(out)
}

// Allocator hands out identifiers that are unique against a snapshot of
// existing identifiers and everything it has already allocated.
// It is not safe for concurrent use.
type Allocator struct {
	tenantID int64
	taken    map[string]struct{}
	random   func() string
}

// NewAllocator seeds an allocator with the tenant's existing identifiers.
func NewAllocator(tenantID int64, existing []string) *Allocator {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}
	return &Allocator{tenantID: tenantID, taken: taken, random: RandomID}
}

// Allocate returns the first free candidate for the subject and reserves it.
func (a *Allocator) Allocate(name, department string) string {
	if base, ok := BaseID(name, department, a.tenantID); ok {
		for _, candidate := range Candidates(base) {
			if _, used := a.taken[candidate]; !used {
				a.Reserve(candidate)
				return candidate
			}
		}
	}
	return a.allocateRandom()
}

// Reserve marks an identifier as used.
func (a *Allocator) Reserve(id string) {
	a.taken[id] = struct{}{}
}

// Taken reports whether the identifier is already used.
func (a *Allocator) Taken(id string) bool {
	_, ok := a.taken[id]
	return ok
}

func (a *Allocator) allocateRandom() string {
	for {
		id := a.random()
		if _, used := a.taken[id]; !used {
			a.Reserve(id)
			return id
		}
	}
}
