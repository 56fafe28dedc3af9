package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "jane.doe"},
		{"  Jane   Doe  ", "jane.doe"},
		{"Jane O'Neil", "jane.oneil"},
		{"UPPER lower", "upper.lower"},
		{"agent 47", "agent.47"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestAllocateAppendsSuffix(t *testing.T) {
	repo := NewMemoryRepository()
	allocator := NewUsernameAllocator(repo)

	username, err := allocator.Allocate(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if username != "jane.doe"+UsernameSuffix {
		t.Fatalf("unexpected username: %s", username)
	}
}

func TestAllocateRejectsUnusableName(t *testing.T) {
	allocator := NewUsernameAllocator(NewMemoryRepository())
	if _, err := allocator.Allocate(context.Background(), "!!!"); err == nil {
		t.Fatal("expected error for name with no usable characters")
	}
}

func TestAllocateCountersCollisions(t *testing.T) {
	repo := NewMemoryRepository()
	allocator := NewUsernameAllocator(repo)
	ctx := context.Background()

	want := []string{
		"jane.doe" + UsernameSuffix,
		"jane.doe1" + UsernameSuffix,
		"jane.doe2" + UsernameSuffix,
	}
	for i, expected := range want {
		username, err := allocator.Allocate(ctx, "Jane Doe")
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if username != expected {
			t.Fatalf("allocation %d: expected %s, got %s", i, expected, username)
		}
		if err := repo.Create(ctx, User{
			ID:            uuid.NewString(),
			FullName:      "Jane Doe",
			PhoneNumber:   fmt.Sprintf("+25470000000%d", i),
			Username:      username,
			WalletAddress: fmt.Sprintf("0xaddr%d", i),
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
}

func TestMemoryRepositoryUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := User{
		ID:            uuid.NewString(),
		PhoneNumber:   "+254700000001",
		Username:      "jane.doe" + UsernameSuffix,
		WalletAddress: "0xabc",
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupPhone := first
	dupPhone.ID = uuid.NewString()
	dupPhone.Username = "other" + UsernameSuffix
	dupPhone.WalletAddress = "0xdef"
	if err := repo.Create(ctx, dupPhone); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for phone, got %v", err)
	}

	dupUsername := first
	dupUsername.ID = uuid.NewString()
	dupUsername.PhoneNumber = "+254700000002"
	dupUsername.WalletAddress = "0xdef"
	if err := repo.Create(ctx, dupUsername); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for username, got %v", err)
	}
}

func TestFindActiveByUsernameOrPhone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	inactive := User{
		ID:            uuid.NewString(),
		PhoneNumber:   "+254700000001",
		Username:      "sleeper" + UsernameSuffix,
		WalletAddress: "0xaaa",
	}
	active := User{
		ID:            uuid.NewString(),
		PhoneNumber:   "+254700000002",
		Username:      "bob" + UsernameSuffix,
		WalletAddress: "0xbbb",
		Active:        true,
	}
	for _, u := range []User{inactive, active} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if _, err := repo.FindActiveByUsernameOrPhone(ctx, inactive.Username); err != ErrNotFound {
		t.Fatalf("expected inactive user to be invisible, got %v", err)
	}

	byUsername, err := repo.FindActiveByUsernameOrPhone(ctx, active.Username)
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	byPhone, err := repo.FindActiveByUsernameOrPhone(ctx, active.PhoneNumber)
	if err != nil {
		t.Fatalf("find by phone: %v", err)
	}
	if byUsername.ID != active.ID || byPhone.ID != active.ID {
		t.Fatal("expected both identifiers to resolve the active user")
	}
}

func TestSetActive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := User{ID: uuid.NewString(), PhoneNumber: "+254700000001", Username: "a" + UsernameSuffix, WalletAddress: "0xabc"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SetActive(ctx, u.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	got, err := repo.FindByPhone(ctx, u.PhoneNumber)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Active {
		t.Fatal("expected user to be active")
	}

	if err := repo.SetActive(ctx, uuid.NewString()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}
