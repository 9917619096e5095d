package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/session"
	"github.com/hpungsan/chefai/internal/store"
)

func newSignedOutOrchestrator(svc *fakeService, cfg *config.Config) *Orchestrator {
	return New(svc, session.NewGuard(session.NewMemoryStorage(), nil), store.New(), cfg, nil)
}

func TestSignIn_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input SignInInput
		want  string
	}{
		{"missing username", SignInInput{Username: "  ", Password: "pw"}, "username is required"},
		{"missing password", SignInInput{Username: "ana"}, "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			o := newSignedOutOrchestrator(svc, nil)
			_, err := SignIn(context.Background(), o, tt.input)
			if !errors.Is(err, errors.ErrValidation) || errors.Message(err) != tt.want {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
			if svc.total() != 0 {
				t.Error("no request should be sent")
			}
		})
	}
}

func TestSignUp_EmailValidation(t *testing.T) {
	svc := newFakeService()
	o := newSignedOutOrchestrator(svc, nil)

	_, err := SignUp(context.Background(), o, SignUpInput{Username: "ana", Email: "not-an-email", Password: "pw"})
	if !errors.Is(err, errors.ErrValidation) || errors.Message(err) != "email must be a valid email address" {
		t.Errorf("error = %v", err)
	}
}

func TestSignIn_StartsSession(t *testing.T) {
	svc := newFakeService()
	svc.loginSess = session.Session{Credential: "tok", User: session.User{Username: "ana"}}
	o := newSignedOutOrchestrator(svc, nil)

	out, err := SignIn(context.Background(), o, SignInInput{Username: "ana", Password: "pw"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if !out.Authenticated || out.Username != "ana" {
		t.Errorf("out = %+v", out)
	}
	if o.Guard().Credential() != "tok" {
		t.Errorf("Credential() = %q", o.Guard().Credential())
	}
	if st := Status(o); !st.Authenticated || st.Username != "ana" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestSignIn_Rejected(t *testing.T) {
	svc := newFakeService()
	svc.loginErr = errors.NewRequestFailed("Invalid username or password", nil)
	o := newSignedOutOrchestrator(svc, nil)

	_, err := SignIn(context.Background(), o, SignInInput{Username: "ana", Password: "bad"})
	if errors.Message(err) != "Invalid username or password" {
		t.Errorf("error = %v", err)
	}
	if o.Guard().IsAuthenticated() {
		t.Error("no session should be stored")
	}
}

func TestLogout_ClearsSessionAndView(t *testing.T) {
	svc := newFakeService()
	svc.history = []recipe.Raw{rawRecipe(t, `{"id": 1}`)}
	o := newTestOrchestrator(t, svc)
	if _, err := EnterHistory(context.Background(), o); err != nil {
		t.Fatal(err)
	}

	out, err := Logout(o)
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if out.Authenticated || o.Guard().IsAuthenticated() {
		t.Error("still authenticated after Logout")
	}
	if _, ok := o.Active(); ok || o.Store().Len() != 0 {
		t.Error("view not reset after Logout")
	}
}

func TestEntryDecision(t *testing.T) {
	ctx := context.Background()

	// Local presence only: the service is not asked
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	if got := EntryDecision(ctx, o); got != session.RedirectToMain {
		t.Errorf("EntryDecision() = %v, want redirect_to_main", got)
	}
	if svc.count("check") != 0 {
		t.Error("CheckSession called without check_session_remotely")
	}

	// Remote check says the credential is dead
	svc = newFakeService()
	svc.live = false
	o = newTestOrchestrator(t, svc)
	o.cfg.CheckSessionRemotely = true
	if got := EntryDecision(ctx, o); got != session.Proceed {
		t.Errorf("EntryDecision() = %v, want proceed", got)
	}
	if o.Guard().IsAuthenticated() {
		t.Error("dead credential should be cleared")
	}
}
