// Package ops implements the user-triggered operations: authentication,
// recipe generation, nutrition recalculation, document export and history
// browsing. Each long-running kind is single-flight and mutates client state
// only after its request succeeds.
package ops

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/session"
	"github.com/hpungsan/chefai/internal/store"
)

// Service is the remote recipe service.
type Service interface {
	Login(ctx context.Context, req api.LoginRequest) (session.Session, error)
	Signup(ctx context.Context, req api.SignupRequest) (session.Session, error)
	FetchHistory(ctx context.Context) ([]recipe.Raw, error)
	GenerateRecipe(ctx context.Context, ingredients string) (recipe.Raw, error)
	CalculateNutrition(ctx context.Context, ingredients []string, servings float64) (*recipe.Nutrition, error)
	ExportRecipe(ctx context.Context, r recipe.Recipe) ([]byte, error)
	CheckSession(ctx context.Context) (bool, error)
}

// Kind names a single-flight operation.
type Kind string

const (
	KindGenerate    Kind = "generate"
	KindRecalculate Kind = "recalculate"
	KindExport      Kind = "export"
)

// State is the lifecycle of one operation kind.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Source says where the displayed recipe came from.
type Source string

const (
	SourceNone      Source = ""
	SourceGenerated Source = "generated"
	SourceHistory   Source = "history"
)

// Orchestrator owns the displayed recipe and routes every operation through
// the session guard and the recipe store. It is safe for concurrent use.
type Orchestrator struct {
	svc      Service
	guard    *session.Guard
	store    *store.Store
	cfg      *config.Config
	log      *zap.Logger
	validate *validator.Validate

	mu        sync.Mutex
	inFlight  map[Kind]string // kind -> flight token
	last      map[Kind]State
	source    Source
	generated *recipe.Recipe
	// activeRev changes whenever the displayed recipe is replaced.
	activeRev uint64
	// epoch changes whenever the view is torn down for a session change.
	epoch uint64
}

// New creates an orchestrator. A nil logger is replaced with a no-op logger.
func New(svc Service, guard *session.Guard, st *store.Store, cfg *config.Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Orchestrator{
		svc:      svc,
		guard:    guard,
		store:    st,
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		inFlight: make(map[Kind]string),
		last:     make(map[Kind]State),
	}
}

// Guard returns the session guard.
func (o *Orchestrator) Guard() *session.Guard { return o.guard }

// Store returns the history store.
func (o *Orchestrator) Store() *store.Store { return o.store }

// InFlight reports whether an operation of kind is outstanding.
func (o *Orchestrator) InFlight(kind Kind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inFlight[kind]
	return ok
}

// State returns InFlight while an operation of kind is outstanding. Otherwise
// it reports the outcome of the last one (Succeeded or Failed), which stays
// until the next trigger, or Idle if none has run. Callers that only need to
// know whether a trigger would be rejected should use InFlight.
func (o *Orchestrator) State(kind Kind) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inFlight[kind]; ok {
		return StateInFlight
	}
	if s, ok := o.last[kind]; ok {
		return s
	}
	return StateIdle
}

// begin claims the flight slot for kind. A second trigger while one is
// outstanding fails with IN_FLIGHT and issues nothing.
func (o *Orchestrator) begin(kind Kind) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inFlight[kind]; ok {
		return "", errors.NewInFlight(string(kind))
	}
	token := ulid.Make().String()
	o.inFlight[kind] = token
	return token, nil
}

// end releases the flight slot and records the result.
func (o *Orchestrator) end(kind Kind, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, kind)
	if err != nil {
		o.last[kind] = StateFailed
	} else {
		o.last[kind] = StateSucceeded
	}
}

// requireSession gates protected operations. Nothing is sent without a credential.
func (o *Orchestrator) requireSession() error {
	if o.guard.RequireSession() == session.RedirectToEntry {
		return errors.NewUnauthorized("sign in to continue")
	}
	return nil
}

// handleError routes auth failures to the guard before anything else, then
// logs the failure. The returned error is what the caller surfaces.
func (o *Orchestrator) handleError(kind Kind, token string, err error) error {
	if errors.IsAuth(err) {
		o.guard.OnUnauthorized()
		o.resetView()
		o.log.Info("credential rejected; session cleared",
			zap.String("op", string(kind)), zap.String("flight", token))
		return err
	}
	o.log.Warn("operation failed",
		zap.String("op", string(kind)), zap.String("flight", token), zap.Error(err))
	return err
}

// resetView drops the displayed recipe and cached history.
func (o *Orchestrator) resetView() {
	o.mu.Lock()
	o.generated = nil
	o.source = SourceNone
	o.activeRev++
	o.epoch++
	o.mu.Unlock()
	o.store.SetHistory(nil)
}

// currentEpoch returns the session epoch for results that must not outlive it.
func (o *Orchestrator) currentEpoch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch
}

// activeSnapshot is the displayed recipe as captured when an operation starts.
type activeSnapshot struct {
	recipe recipe.Recipe
	source Source
	rev    uint64
	epoch  uint64
}

// Target names the recipe a caller acts on, as it was shown to the user.
// A nil Target acts on whatever recipe is displayed.
type Target struct {
	Source Source
	ID     string
}

func (t *Target) matches(snap activeSnapshot) bool {
	if t == nil {
		return true
	}
	return t.Source == snap.source && t.ID == snap.recipe.Key()
}

// snapshotFor captures the displayed recipe for an operation on target.
// It fails with NO_ACTIVE_RECIPE when nothing is loaded and with STALE_VIEW
// when the displayed recipe is not the one target names.
func (o *Orchestrator) snapshotFor(target *Target) (activeSnapshot, error) {
	snap, ok := o.snapshot()
	if !ok {
		return activeSnapshot{}, errors.NewNoActiveRecipe()
	}
	if !target.matches(snap) {
		return activeSnapshot{}, errors.NewStaleView("")
	}
	return snap, nil
}

func (o *Orchestrator) snapshot() (activeSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() (activeSnapshot, bool) {
	switch o.source {
	case SourceGenerated:
		if o.generated != nil {
			return activeSnapshot{recipe: o.generated.Clone(), source: SourceGenerated, rev: o.activeRev, epoch: o.epoch}, true
		}
	case SourceHistory:
		if r, ok := o.store.CurrentRecipe(); ok {
			return activeSnapshot{recipe: r, source: SourceHistory, rev: o.activeRev, epoch: o.epoch}, true
		}
	}
	return activeSnapshot{}, false
}

// ActiveView is the displayed recipe.
type ActiveView struct {
	Source Source        `json:"source"`
	Recipe recipe.Recipe `json:"recipe"`
}

// Active returns the displayed recipe, or false when none is loaded.
func (o *Orchestrator) Active() (*ActiveView, bool) {
	snap, ok := o.snapshot()
	if !ok {
		return nil, false
	}
	return &ActiveView{Source: snap.source, Recipe: snap.recipe}, true
}
