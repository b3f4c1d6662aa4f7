package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/session"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(backend.NewMemory())

	sess, err := svc.Register(ctx, "Alumno@Test.com ", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Email != "alumno@test.com" {
		t.Errorf("email not normalized: %q", sess.Email)
	}
	if sess.UID == "" {
		t.Error("no uid assigned")
	}

	if _, err := svc.Register(ctx, "alumno@test.com", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register: %v, want ErrEmailTaken", err)
	}

	got, err := svc.Login(ctx, "alumno@test.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.UID != sess.UID {
		t.Errorf("login uid %q, register uid %q", got.UID, sess.UID)
	}

	if _, err := svc.Login(ctx, "alumno@test.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@test.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v, want ErrInvalidCredentials", err)
	}
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(backend.NewMemory())

	var mu sync.Mutex
	var seen []*session.Session

	cancel := svc.OnChange(func(s *session.Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	// the initial delivery happens synchronously with the current value
	mu.Lock()
	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("initial delivery = %+v", seen)
	}
	mu.Unlock()

	if _, err := svc.Register(ctx, "alumno@test.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("saw %d deliveries, want 3", len(seen))
	}
	if seen[1] == nil || seen[1].Email != "alumno@test.com" {
		t.Errorf("login delivery = %+v", seen[1])
	}
	if seen[2] != nil {
		t.Errorf("logout delivery = %+v, want nil", seen[2])
	}
}

func TestOnChangeCancel(t *testing.T) {
	ctx := context.Background()
	svc := NewService(backend.NewMemory())

	calls := 0
	cancel := svc.OnChange(func(*session.Session) { calls++ })
	cancel()
	cancel() // idempotent

	if _, err := svc.Register(ctx, "alumno@test.com", "secret123"); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("cancelled subscriber saw %d calls, want only the initial one", calls)
	}
}
