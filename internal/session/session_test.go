package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := HashPassword(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func testDirectory(t *testing.T) *StaticDirectory {
	t.Helper()
	return NewStaticDirectory(
		Credential{
			Email:        "admin@healthcare.com",
			PasswordHash: mustHash(t, "admin123"),
			Identity:     Identity{ID: "admin-1", Name: "Admin User", Email: "admin@healthcare.com", Role: RoleAdmin},
		},
		Credential{
			Email:        "doctor@healthcare.com",
			PasswordHash: mustHash(t, "doctor123"),
			Identity: Identity{
				ID: "doctor-1", Name: "Dr. Sharma", Email: "doctor@healthcare.com", Role: RoleDoctor,
				Doctor: &DoctorInfo{Specialization: "Dermatology", Location: "Vadodara, Gujarat", Contact: "+91-9876543210"},
			},
		},
		Credential{
			Email:        "patient@healthcare.com",
			PasswordHash: mustHash(t, "patient123"),
			Identity:     Identity{ID: "patient-1", Name: "Rahul Patel", Email: "patient@healthcare.com", Role: RolePatient},
		},
	)
}

func newTestManager(t *testing.T, store Store, role Role) *Manager {
	t.Helper()
	return NewManager(store, testDirectory(t), SlotKey(role), 0)
}

func TestLoginPerRole(t *testing.T) {
	cases := []struct {
		role     Role
		email    string
		password string
		wantName string
	}{
		{RoleAdmin, "admin@healthcare.com", "admin123", "Admin User"},
		{RoleDoctor, "doctor@healthcare.com", "doctor123", "Dr. Sharma"},
		{RolePatient, "patient@healthcare.com", "patient123", "Rahul Patel"},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			m := newTestManager(t, NewMemoryStore(), tc.role)
			id, err := m.Login(context.Background(), tc.email, tc.password, tc.role)
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if id.Role != tc.role {
				t.Errorf("role = %q, want %q", id.Role, tc.role)
			}
			if id.Name != tc.wantName {
				t.Errorf("name = %q, want %q", id.Name, tc.wantName)
			}
			if m.State() != StateAuthenticated {
				t.Errorf("state = %v, want authenticated", m.State())
			}
			if tc.role == RoleDoctor && id.Doctor == nil {
				t.Error("doctor identity missing doctor info")
			}
			if tc.role != RoleDoctor && id.Doctor != nil {
				t.Errorf("%s identity carries doctor info", tc.role)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), RoleAdmin)
	_, err := m.Login(context.Background(), "admin@healthcare.com", "wrong", RoleAdmin)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
	if m.Current() != nil {
		t.Error("identity present after failed login")
	}
}

func TestLoginRoleMismatch(t *testing.T) {
	// Valid doctor credentials claimed under the admin role must fail.
	m := newTestManager(t, NewMemoryStore(), RoleAdmin)
	_, err := m.Login(context.Background(), "doctor@healthcare.com", "doctor123", RoleAdmin)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginEmptyFields(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), RoleAdmin)
	for _, pair := range [][2]string{{"", "admin123"}, {"admin@healthcare.com", ""}, {"", ""}} {
		if _, err := m.Login(context.Background(), pair[0], pair[1], RoleAdmin); !errors.Is(err, ErrEmptyField) {
			t.Errorf("Login(%q, %q) err = %v, want ErrEmptyField", pair[0], pair[1], err)
		}
	}
}

// countingStore records writes so tests can assert a failed login never
// touches the slot.
type countingStore struct {
	*MemoryStore
	sets, deletes int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore()}
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets++
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, key)
}

func TestFailedLoginLeavesSlotUntouched(t *testing.T) {
	store := newCountingStore()
	m := newTestManager(t, store, RoleAdmin)

	_, _ = m.Login(context.Background(), "admin@healthcare.com", "wrong", RoleAdmin)
	_, _ = m.Login(context.Background(), "nobody@healthcare.com", "admin123", RoleAdmin)

	if store.sets != 0 {
		t.Errorf("store.Set called %d times on failed logins", store.sets)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	m1 := newTestManager(t, store, RoleDoctor)
	want, err := m1.Login(context.Background(), "doctor@healthcare.com", "doctor123", RoleDoctor)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A fresh manager over the same store stands in for a restart.
	m2 := newTestManager(t, store, RoleDoctor)
	if !m2.Loading() {
		t.Error("Loading() = false before Restore")
	}
	if err := m2.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m2.Loading() {
		t.Error("Loading() = true after Restore")
	}

	got := m2.Current()
	if got == nil {
		t.Fatal("no identity after restore")
	}
	if got.ID != want.ID || got.Email != want.Email || got.Role != want.Role {
		t.Errorf("restored identity = %+v, want %+v", got, want)
	}
	if got.Doctor == nil || got.Doctor.Specialization != "Dermatology" {
		t.Errorf("doctor info lost on restore: %+v", got.Doctor)
	}
}

func TestRestoreEmptySlot(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), RoleAdmin)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
	if m.Loading() {
		t.Error("Loading() = true after Restore")
	}
}

func TestRestoreMalformedSlot(t *testing.T) {
	store := NewMemoryStore()
	key := SlotKey(RoleAdmin)
	if err := store.Set(context.Background(), key, []byte("{not json")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m := newTestManager(t, store, RoleAdmin)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error for malformed slot: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
	if _, err := store.Get(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Error("malformed slot was not cleared")
	}
}

func TestRestoreInvalidIdentity(t *testing.T) {
	// Well-formed JSON that fails identity validation: doctor without info.
	store := NewMemoryStore()
	key := SlotKey(RoleDoctor)
	raw := []byte(`{"id":"doctor-1","name":"Dr. Sharma","email":"doctor@healthcare.com","role":"doctor"}`)
	if err := store.Set(context.Background(), key, raw); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m := newTestManager(t, store, RoleDoctor)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
}

func TestLogoutClearsSlot(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, RolePatient)
	if _, err := m.Login(context.Background(), "patient@healthcare.com", "patient123", RolePatient); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m.Logout(context.Background())
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
	if m.Current() != nil {
		t.Error("identity present after logout")
	}

	m2 := newTestManager(t, store, RolePatient)
	if err := m2.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m2.Authenticated() {
		t.Error("session restored after logout")
	}
}

func TestLoginReplacesPriorIdentity(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, RoleAdmin)
	if _, err := m.Login(context.Background(), "admin@healthcare.com", "admin123", RoleAdmin); err != nil {
		t.Fatalf("first login: %v", err)
	}
	id, err := m.Login(context.Background(), "admin@healthcare.com", "admin123", RoleAdmin)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if id.ID != "admin-1" {
		t.Errorf("id = %q", id.ID)
	}
}

func TestLoginCancellation(t *testing.T) {
	store := newCountingStore()
	dir := testDirectory(t)
	m := NewManager(store, dir, SlotKey(RoleAdmin), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Login(ctx, "admin@healthcare.com", "admin123", RoleAdmin)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", m.State())
	}
	if store.sets != 0 {
		t.Error("cancelled login wrote the slot")
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), RoleAdmin)
	if _, err := m.Login(context.Background(), "admin@healthcare.com", "admin123", RoleAdmin); err != nil {
		t.Fatalf("Login: %v", err)
	}

	first := m.Current()
	first.Name = "mutated"
	if m.Current().Name != "Admin User" {
		t.Error("Current() exposed internal identity")
	}
}

func TestIdentityValidate(t *testing.T) {
	doctor := &DoctorInfo{Specialization: "Dermatology", Location: "Vadodara", Contact: "x"}
	cases := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"valid admin", Identity{ID: "a", Email: "a@x.com", Role: RoleAdmin}, false},
		{"valid doctor", Identity{ID: "d", Email: "d@x.com", Role: RoleDoctor, Doctor: doctor}, false},
		{"unknown role", Identity{ID: "a", Email: "a@x.com", Role: "superuser"}, true},
		{"missing id", Identity{Email: "a@x.com", Role: RoleAdmin}, true},
		{"missing email", Identity{ID: "a", Role: RoleAdmin}, true},
		{"doctor without info", Identity{ID: "d", Email: "d@x.com", Role: RoleDoctor}, true},
		{"patient with doctor info", Identity{ID: "p", Email: "p@x.com", Role: RolePatient, Doctor: doctor}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.id.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDirectoryUnknownRole(t *testing.T) {
	dir := NewStaticDirectory()
	if _, err := dir.Lookup(context.Background(), RoleAdmin); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err = %v, want ErrUnknownRole", err)
	}
}
