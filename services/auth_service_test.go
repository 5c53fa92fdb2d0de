package services

import (
	"context"
	"testing"

	"github.com/vnkhanh/podstream-backend/models"
)

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		in   RegisterInput
		want string
	}{
		{RegisterInput{Username: "", Email: "a@b.com", Password: "secret1"}, "All fields are required"},
		{RegisterInput{Username: "abcd", Email: "a@b.com", Password: "secret1"}, "Username must have five characters"},
		{RegisterInput{Username: "abcde", Email: "a@b.com", Password: "12345"}, "Password must have 6 characters"},
	}
	for _, tc := range cases {
		_, err := f.auth.Register(ctx, tc.in)
		assertKind(t, err, KindValidation)
		assertMessage(t, err, tc.want)
	}
}

func TestRegisterHashesPasswordAndAuthenticates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.register(t, "listener", "Listener@Example.com")
	stored, err := f.store.Users().FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Password == "secret123" || stored.Password == "" {
		t.Fatalf("password stored in clear: %q", stored.Password)
	}
	if stored.Email != "listener@example.com" {
		t.Fatalf("email not normalized: %q", stored.Email)
	}

	session, err := f.auth.Authenticate(ctx, "LISTENER@example.com ", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.Token == "" || session.User.ID != u.ID {
		t.Fatalf("unexpected session %+v", session)
	}
	claims, err := f.auth.VerifySession(session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != u.ID || claims.Role != string(models.RoleUser) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	reloaded, _ := f.store.Users().FindByID(ctx, u.ID)
	if reloaded.LastLoginAt == nil {
		t.Fatal("lastLoginAt not recorded")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "original", "dup@example.com")

	for _, in := range []RegisterInput{
		{Username: "another", Email: "dup@example.com", Password: "secret1"},
		{Username: "original", Email: "other@example.com", Password: "secret1"},
	} {
		_, err := f.auth.Register(ctx, in)
		assertKind(t, err, KindConflict)
		assertMessage(t, err, "Username or Email already exist")
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "listener", "l@example.com")

	for _, tc := range []struct{ email, password string }{
		{"l@example.com", "wrong-password"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := f.auth.Authenticate(ctx, tc.email, tc.password)
		assertKind(t, err, KindValidation)
		assertMessage(t, err, "Invalid credentials")
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sleeper", "s@example.com")
	u.IsActive = false
	if err := f.store.Users().Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := f.auth.Authenticate(ctx, "s@example.com", "secret123")
	assertKind(t, err, KindForbidden)

	_, err = f.auth.CurrentAccount(ctx, u.ID)
	assertKind(t, err, KindForbidden)
}

func TestCurrentAccountUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.CurrentAccount(context.Background(), "missing")
	assertKind(t, err, KindUnauthenticated)
}

func TestVerifySessionRejectsForeignSecret(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "listener", "l@example.com")
	other := NewAuthService(StaticStore(f.store), "other-secret", f.auth.log)
	token, err := other.IssueSession(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = f.auth.VerifySession(token)
	assertKind(t, err, KindUnauthenticated)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.auth.SeedAdmin(ctx, "root@example.com", "rootadmin", "s3cret!!")
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	created, err = f.auth.SeedAdmin(ctx, "root@example.com", "rootadmin", "n3w-secret")
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}

	n, _ := f.store.Users().Count(ctx)
	if n != 1 {
		t.Fatalf("expected one account, got %d", n)
	}
	session, err := f.auth.Authenticate(ctx, "root@example.com", "n3w-secret")
	if err != nil {
		t.Fatalf("admin sign-in: %v", err)
	}
	if session.User.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %s", session.User.Role)
	}
}

func TestSeedAdminPromotesExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "promoted", "p@example.com")

	created, err := f.auth.SeedAdmin(ctx, "p@example.com", "", "another1")
	if err != nil || created {
		t.Fatalf("seed: created=%v err=%v", created, err)
	}
	reloaded, _ := f.store.Users().FindByID(ctx, u.ID)
	if reloaded.Role != models.RoleAdmin {
		t.Fatalf("expected admin, got %s", reloaded.Role)
	}
}
