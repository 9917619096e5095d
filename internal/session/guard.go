package session

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/errors"
)

// Outcome is the result of a guard decision.
type Outcome int

const (
	// Proceed means the requested view may be shown.
	Proceed Outcome = iota
	// RedirectToEntry means the user must sign in first.
	RedirectToEntry
	// RedirectToMain means a live session makes the entry page unnecessary.
	RedirectToMain
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case RedirectToEntry:
		return "redirect_to_entry"
	case RedirectToMain:
		return "redirect_to_main"
	}
	return "unknown"
}

// Checker asks the service whether the stored credential is still valid.
type Checker interface {
	CheckSession(ctx context.Context) (bool, error)
}

// Guard gates protected views on the presence of a stored credential.
type Guard struct {
	mu      sync.Mutex
	storage Storage
	log     *zap.Logger
}

// NewGuard creates a guard over storage. A nil logger is replaced with a no-op logger.
func NewGuard(storage Storage, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{storage: storage, log: log}
}

// IsAuthenticated reports whether a credential is stored.
// It does not validate the credential; expiry surfaces later as an auth failure.
func (g *Guard) IsAuthenticated() bool {
	_, ok := g.Current()
	return ok
}

// RequireSession returns RedirectToEntry when no credential is stored, otherwise Proceed.
func (g *Guard) RequireSession() Outcome {
	if g.IsAuthenticated() {
		return Proceed
	}
	return RedirectToEntry
}

// Current returns the stored session. A storage failure is logged and treated as no session.
func (g *Guard) Current() (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := g.storage.Load()
	if err != nil {
		g.log.Warn("session load failed", zap.Error(err))
		return Session{}, false
	}
	if sess == nil || sess.Credential == "" {
		return Session{}, false
	}
	return *sess, true
}

// Credential returns the stored credential or "".
func (g *Guard) Credential() string {
	sess, _ := g.Current()
	return sess.Credential
}

// Begin stores a new session, replacing any existing one.
func (g *Guard) Begin(sess Session) error {
	if strings.TrimSpace(sess.Credential) == "" {
		return errors.NewValidation("credential is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.storage.Save(sess); err != nil {
		return err
	}
	g.log.Info("session started", zap.String("username", sess.User.Username))
	return nil
}

// Logout clears the stored session.
func (g *Guard) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.storage.Clear(); err != nil {
		return err
	}
	g.log.Info("session ended")
	return nil
}

// OnUnauthorized clears credential and user together and returns RedirectToEntry.
// It must run before any other handling of an authentication failure.
func (g *Guard) OnUnauthorized() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.storage.Clear(); err != nil {
		g.log.Error("session clear failed after auth failure", zap.Error(err))
	} else {
		g.log.Info("session cleared after auth failure")
	}
	return RedirectToEntry
}

// EntryDecision decides what the entry page does. With a nil checker the
// decision rests on local credential presence. With a checker the service is
// asked; an auth failure clears the session, and any other failure falls back
// to local presence.
func (g *Guard) EntryDecision(ctx context.Context, checker Checker) Outcome {
	if !g.IsAuthenticated() {
		return Proceed
	}
	if checker == nil {
		return RedirectToMain
	}

	live, err := checker.CheckSession(ctx)
	switch {
	case errors.IsAuth(err):
		g.OnUnauthorized()
		return Proceed
	case err != nil:
		g.log.Warn("session check failed; trusting stored credential", zap.Error(err))
		return RedirectToMain
	case !live:
		g.OnUnauthorized()
		return Proceed
	}
	return RedirectToMain
}
