package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toro-labs/toro-assistant/src/types"
)

// Finish rejects a non-terminal target before touching the database, so a
// nil handle is enough to exercise the guard.
func TestFinishRejectsNonTerminalStatus(t *testing.T) {
	store := NewQuestionStore(nil)

	for _, status := range []types.Status{types.StatusPending, types.StatusProcessing, types.Status("bogus")} {
		t.Run(string(status), func(t *testing.T) {
			won, err := store.Finish(context.Background(), "u1", "q1", types.Result{Status: status})
			assert.Error(t, err)
			assert.False(t, won)
		})
	}
}
