package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/recipe"
)

// RecalculateOutput contains the result of the RecalculateNutrition operation.
type RecalculateOutput struct {
	Nutrition *recipe.Nutrition `json:"nutrition"`
	// Recipe is the displayed recipe after the update.
	Recipe recipe.Recipe `json:"recipe"`
	// Applied is false when the displayed recipe changed while the request
	// was outstanding and the response was not shown.
	Applied bool `json:"applied"`
}

// RecalculateInput contains parameters for the RecalculateNutrition operation.
type RecalculateInput struct {
	// Target, when set, must name the displayed recipe or the call fails
	// with STALE_VIEW before any request is sent.
	Target *Target
}

// RecalculateNutrition requests a fresh nutrition estimate for the displayed
// recipe's ingredients and servings, then replaces only its nutrition.
//
// The history entry is matched by the id captured when the request was sent,
// so the update lands on the right entry even if the selection moved. The
// displayed recipe is updated only if it is still the one the request was for.
// Nothing is applied if the session ended while the request was outstanding.
func RecalculateNutrition(ctx context.Context, o *Orchestrator, input RecalculateInput) (*RecalculateOutput, error) {
	if err := o.requireSession(); err != nil {
		return nil, err
	}

	token, err := o.begin(KindRecalculate)
	if err != nil {
		return nil, err
	}

	snap, err := o.snapshotFor(input.Target)
	if err != nil {
		o.end(KindRecalculate, err)
		return nil, err
	}

	servings := snap.recipe.ServingsForRequest()
	o.log.Debug("recalculating nutrition",
		zap.String("flight", token),
		zap.String("recipe_id", snap.recipe.Key()),
		zap.Float64("servings", servings),
	)
	n, err := o.svc.CalculateNutrition(api.WithRequestID(ctx, token), snap.recipe.Ingredients, servings)
	if err != nil {
		err = o.handleError(KindRecalculate, token, err)
		o.end(KindRecalculate, err)
		return nil, err
	}

	out := o.applyNutrition(token, snap, n)
	o.end(KindRecalculate, nil)
	return out, nil
}

func (o *Orchestrator) applyNutrition(token string, snap activeSnapshot, n *recipe.Nutrition) *RecalculateOutput {
	o.mu.Lock()
	defer o.mu.Unlock()

	sameSession := o.epoch == snap.epoch

	// A saved recipe is updated in history wherever it sits
	if id := snap.recipe.Key(); sameSession && id != "" && o.store.Contains(id) {
		if err := o.store.UpdateNutrition(id, n); err != nil {
			o.log.Warn("history entry vanished before update", zap.String("recipe_id", id), zap.Error(err))
		}
	}

	applied := sameSession && o.activeRev == snap.rev && o.source == snap.source
	if snap.source == SourceHistory && snap.recipe.Key() == "" {
		// Unidentified history entries cannot be addressed
		applied = false
	}
	if applied && snap.source == SourceGenerated && o.generated != nil {
		o.generated.Nutrition = n.Clone()
	}
	if !applied {
		o.log.Info("discarding stale nutrition for displayed recipe",
			zap.String("flight", token), zap.String("recipe_id", snap.recipe.Key()))
	}

	out := &RecalculateOutput{Nutrition: n.Clone(), Applied: applied}
	if cur, ok := o.snapshotLocked(); ok {
		out.Recipe = cur.recipe
	}
	return out
}
