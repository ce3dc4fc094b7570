package session

import (
	"context"
	"testing"

	"github.com/nhle/microwins/internal/api"
	"github.com/nhle/microwins/internal/credential"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/store"
)

// fakeVault is an in-memory token vault.
type fakeVault struct {
	values map[string]string
}

func newFakeVault() *fakeVault {
	return &fakeVault{values: map[string]string{}}
}

func (v *fakeVault) Get(key string) (string, error) {
	val, ok := v.values[key]
	if !ok {
		return "", credential.ErrNotFound
	}
	return val, nil
}

func (v *fakeVault) Set(key, value string) error {
	v.values[key] = value
	return nil
}

func (v *fakeVault) Delete(key string) error {
	delete(v.values, key)
	return nil
}

// fakePrefs records deleted preference keys.
type fakePrefs struct {
	deleted []string
}

func (p *fakePrefs) DeletePreference(_ context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return nil
}

// fakeGateway scripts credential exchange outcomes.
type fakeGateway struct {
	grant   *api.TokenGrant
	authErr error
	me      *model.User
	meErr   error
}

func (g *fakeGateway) Login(context.Context, string, string) (*api.TokenGrant, error) {
	return g.grant, g.authErr
}

func (g *fakeGateway) Signup(context.Context, string, string, string) (*api.TokenGrant, error) {
	return g.grant, g.authErr
}

func (g *fakeGateway) VerifyGoogleToken(context.Context, string) (*api.TokenGrant, error) {
	return g.grant, g.authErr
}

func (g *fakeGateway) Me(context.Context) (*model.User, error) {
	return g.me, g.meErr
}

func newTestStore(gw Gateway) (*Store, *fakeVault, *fakePrefs) {
	vault := newFakeVault()
	prefs := &fakePrefs{}
	s := New(vault, prefs)
	s.AttachGateway(gw)
	return s, vault, prefs
}

func TestLogin_Success(t *testing.T) {
	gw := &fakeGateway{grant: &api.TokenGrant{
		AccessToken: "tok",
		TokenType:   "bearer",
		User:        model.User{ID: 7, Email: "a@b.c"},
	}}
	s, vault, _ := newTestStore(gw)

	if err := s.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if s.Token() != "tok" {
		t.Errorf("Token = %q, want tok", s.Token())
	}
	if vault.values["token"] != "tok" {
		t.Errorf("persisted token = %q, want tok", vault.values["token"])
	}
	if user := s.User(); user == nil || user.ID != 7 {
		t.Errorf("User = %+v, want id 7", user)
	}
}

func TestLogin_FailureLeavesSessionUnchanged(t *testing.T) {
	gw := &fakeGateway{authErr: &api.RequestError{Status: 401, Detail: "Invalid email or password"}}
	s, vault, _ := newTestStore(gw)

	err := s.Login(context.Background(), "a@b.c", "wrong")
	if err == nil {
		t.Fatal("expected AuthError")
	}

	authErr, ok := err.(*AuthError)
	if !ok {
		t.Fatalf("err = %T, want *AuthError", err)
	}
	if authErr.Reason != "Invalid email or password" {
		t.Errorf("Reason = %q, want server detail", authErr.Reason)
	}
	if s.SignedIn() || s.Token() != "" || len(vault.values) != 0 {
		t.Error("failed login must not touch the session or vault")
	}
}

func TestCompleteOAuth_Success(t *testing.T) {
	gw := &fakeGateway{grant: &api.TokenGrant{
		AccessToken: "oauth-tok",
		User:        model.User{ID: 2, AuthProvider: model.AuthProviderGoogle},
	}}
	s, _, _ := newTestStore(gw)

	if err := s.CompleteOAuth(context.Background(), "google-access"); err != nil {
		t.Fatalf("CompleteOAuth failed: %v", err)
	}
	if user := s.User(); user == nil || user.AuthProvider != model.AuthProviderGoogle {
		t.Errorf("User = %+v", user)
	}
}

func TestRestore_NoToken(t *testing.T) {
	s, _, _ := newTestStore(&fakeGateway{})

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore must not fail without a token: %v", err)
	}
	if s.SignedIn() {
		t.Error("no persisted token should restore to signed out")
	}
}

func TestRestore_ValidToken(t *testing.T) {
	gw := &fakeGateway{me: &model.User{ID: 7, Email: "a@b.c"}}
	s, vault, _ := newTestStore(gw)
	vault.values["token"] = "persisted"

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if user := s.User(); user == nil || user.ID != 7 {
		t.Errorf("User = %+v, want restored identity", user)
	}
	if s.Token() != "persisted" {
		t.Errorf("Token = %q", s.Token())
	}
}

func TestRestore_InvalidTokenClearsVaultSilently(t *testing.T) {
	gw := &fakeGateway{meErr: &api.RequestError{Status: 401, Detail: "token expired"}}
	s, vault, _ := newTestStore(gw)
	vault.values["token"] = "stale"

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore must swallow invalid tokens: %v", err)
	}

	if s.SignedIn() || s.Token() != "" {
		t.Error("invalid token should restore to signed out")
	}
	if _, ok := vault.values["token"]; ok {
		t.Error("stale token should be deleted from the vault")
	}
}

func TestApplyProfile_MergesFields(t *testing.T) {
	gw := &fakeGateway{grant: &api.TokenGrant{
		AccessToken: "tok",
		User:        model.User{ID: 1, StreakCount: 1, TotalCompleted: 3, FullName: "Ann"},
	}}
	s, _, _ := newTestStore(gw)
	if err := s.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	streak, total := 2, 4
	s.ApplyProfile(model.ProfilePatch{StreakCount: &streak, TotalCompleted: &total})

	user := s.User()
	if user.StreakCount != 2 || user.TotalCompleted != 4 {
		t.Errorf("counters = %d/%d, want 2/4", user.StreakCount, user.TotalCompleted)
	}
	if user.FullName != "Ann" {
		t.Errorf("untouched field changed: %q", user.FullName)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	gw := &fakeGateway{grant: &api.TokenGrant{AccessToken: "tok", User: model.User{ID: 1}}}
	s, vault, prefs := newTestStore(gw)
	if err := s.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	s.Logout(context.Background())

	if s.SignedIn() || s.Token() != "" {
		t.Error("logout must reset the session")
	}
	if _, ok := vault.values["token"]; ok {
		t.Error("logout must clear the persisted token")
	}
	if len(prefs.deleted) != 1 || prefs.deleted[0] != store.PrefCondition {
		t.Errorf("deleted prefs = %v, want [%s]", prefs.deleted, store.PrefCondition)
	}
}
