package user

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UsernameSuffix is appended to every allocated handle.
const UsernameSuffix = ".eth.safiri"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^a-z0-9.]`)
)

// UsernameAllocator derives unique human-readable handles from display
// names. Collisions get an incrementing numeric counter before the suffix;
// the store's uniqueness constraint converts an allocation race into one
// more retry at Create time.
type UsernameAllocator struct {
	repo Repository
}

// NewUsernameAllocator builds an allocator over the given repository.
func NewUsernameAllocator(repo Repository) *UsernameAllocator {
	return &UsernameAllocator{repo: repo}
}

// Allocate returns a username not currently present in the store.
func (a *UsernameAllocator) Allocate(ctx context.Context, fullName string) (string, error) {
	base := NormalizeName(fullName)
	if base == "" {
		return "", fmt.Errorf("full name %q has no usable characters", fullName)
	}

	candidate := base + UsernameSuffix
	for counter := 1; ; counter++ {
		taken, err := a.repo.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter) + UsernameSuffix
	}
}

// NormalizeName lowercases a display name, turns whitespace runs into dots
// and strips everything outside [a-z0-9.].
func NormalizeName(fullName string) string {
	s := strings.ToLower(strings.TrimSpace(fullName))
	s = whitespaceRe.ReplaceAllString(s, ".")
	return disallowedRe.ReplaceAllString(s, "")
}
