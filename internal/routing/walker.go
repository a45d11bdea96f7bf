package routing

import (
	"context"
	"errors"
)

// Walker drives a fallback chain: it yields one Decision at a time
// and the caller reports back whether the attempt succeeded. Each hop
// re-evaluates the light model rule against the same token estimate.
// Visited aliases are tracked so a cycle fails fast instead of
// looping.
type Walker struct {
	engine          *Engine
	accountID       int64
	estimatedTokens int
	visited         map[int64]bool
	path            []int64
	next            *int64
	started         bool
	modelName       string
}

// NewWalker prepares a walk starting from the alias that matches
// modelName for the account
func (e *Engine) NewWalker(accountID int64, modelName string, estimatedTokens int) *Walker {
	return &Walker{
		engine:          e,
		accountID:       accountID,
		estimatedTokens: estimatedTokens,
		visited:         make(map[int64]bool),
		modelName:       modelName,
	}
}

// Next returns the next Decision in the chain. The first call
// resolves the requested model name; later calls follow the previous
// decision's fallback reference. It returns ErrFallbackExhausted when
// the previous alias had no fallback, and ErrFallbackCycle when the
// chain revisits an alias.
func (w *Walker) Next(ctx context.Context) (*Decision, error) {
	var (
		decision *Decision
		err      error
	)
	if !w.started {
		w.started = true
		decision, err = w.engine.Resolve(ctx, w.accountID, w.modelName, w.estimatedTokens)
	} else {
		if w.next == nil {
			return nil, ErrFallbackExhausted
		}
		if w.visited[*w.next] {
			return nil, ErrFallbackCycle
		}
		decision, err = w.engine.ResolveByID(ctx, w.accountID, *w.next, w.estimatedTokens)
	}
	if err != nil {
		// a fallback pointing at a vanished alias ends the chain
		if w.started && w.next != nil && errors.Is(err, ErrAliasNotFound) {
			return nil, ErrFallbackExhausted
		}
		return nil, err
	}

	w.visited[decision.AliasID] = true
	w.path = append(w.path, decision.AliasID)
	w.next = decision.FallbackAliasID
	return decision, nil
}

// Visited returns how many aliases the walk has resolved so far
func (w *Walker) Visited() int {
	return len(w.path)
}

// Path returns the alias ids resolved so far, in traversal order
func (w *Walker) Path() []int64 {
	out := make([]int64, len(w.path))
	copy(out, w.path)
	return out
}
