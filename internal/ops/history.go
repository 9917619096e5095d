package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/store"
)

// HistoryOutput is the history view: the list plus the selected entry.
type HistoryOutput struct {
	Items    []store.Summary `json:"items"`
	Selected *recipe.Recipe  `json:"selected"`
}

// EnterHistory fetches the user's history once and shows it. The first entry
// is selected unless the previous selection is still present.
// On failure the cached history is left as it was.
func EnterHistory(ctx context.Context, o *Orchestrator) (*HistoryOutput, error) {
	if err := o.requireSession(); err != nil {
		return nil, err
	}

	raws, err := o.svc.FetchHistory(ctx)
	if err != nil {
		return nil, o.handleError("history", "", err)
	}

	o.mu.Lock()
	o.store.SetHistory(raws)
	o.source = SourceHistory
	o.activeRev++
	o.mu.Unlock()

	o.log.Debug("history loaded", zap.Int("count", len(raws)))
	return o.historyView(), nil
}

// SelectHistory makes the history entry with id the displayed recipe.
// An unknown id fails with NOT_FOUND and changes nothing.
func SelectHistory(o *Orchestrator, id string) (*HistoryOutput, error) {
	if err := o.requireSession(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	prev := o.store.SelectedID()
	if err := o.store.Select(id); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.source != SourceHistory || prev != o.store.SelectedID() {
		o.source = SourceHistory
		o.activeRev++
	}
	o.mu.Unlock()

	return o.historyView(), nil
}

// History returns the cached history view without fetching.
func History(o *Orchestrator) *HistoryOutput {
	return o.historyView()
}

func (o *Orchestrator) historyView() *HistoryOutput {
	out := &HistoryOutput{Items: o.store.Summaries()}
	if r, ok := o.store.CurrentRecipe(); ok {
		out.Selected = &r
	}
	return out
}
