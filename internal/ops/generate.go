package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/recipe"
)

// MsgNoIngredients is returned when Generate is called without ingredients.
const MsgNoIngredients = "Please enter at least one ingredient."

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	Ingredients string // free text, sent as typed
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	Recipe recipe.Recipe `json:"recipe"`
	Saved  bool          `json:"saved"`
}

// Generate asks the service for a recipe and makes it the displayed recipe.
// Whitespace-only input fails with VALIDATION before any request is sent.
// On failure the displayed recipe is left as it was. A recipe that arrives
// after the session was ended or replaced is dropped with STALE_VIEW.
func Generate(ctx context.Context, o *Orchestrator, input GenerateInput) (*GenerateOutput, error) {
	if err := o.requireSession(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Ingredients) == "" {
		return nil, errors.NewValidation(MsgNoIngredients)
	}

	token, err := o.begin(KindGenerate)
	if err != nil {
		return nil, err
	}
	epoch := o.currentEpoch()

	o.log.Debug("generating recipe", zap.String("flight", token))
	raw, err := o.svc.GenerateRecipe(api.WithRequestID(ctx, token), input.Ingredients)
	if err != nil {
		err = o.handleError(KindGenerate, token, err)
		o.end(KindGenerate, err)
		return nil, err
	}

	r := recipe.Normalize(raw)

	o.mu.Lock()
	if o.epoch != epoch {
		// The session changed while the request was outstanding
		o.mu.Unlock()
		err := errors.NewStaleView("the session changed before the recipe arrived")
		o.end(KindGenerate, err)
		o.log.Info("discarding recipe from an ended session", zap.String("flight", token))
		return nil, err
	}
	o.generated = &r
	o.source = SourceGenerated
	o.activeRev++
	o.mu.Unlock()
	o.end(KindGenerate, nil)

	o.log.Info("recipe generated",
		zap.String("flight", token),
		zap.String("title", r.DisplayTitle()),
		zap.Bool("saved", r.Saved()),
	)
	return &GenerateOutput{Recipe: r.Clone(), Saved: r.Saved()}, nil
}
