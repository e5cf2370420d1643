package advisory

import (
	"sync"
	"time"

	"github.com/citypath/overlay/pkg/types/geo"
)

// Turn is one completed advisory exchange. Failed turns are kept too, with
// Err set, so the transcript shows what was asked even when nothing came
// back.
type Turn struct {
	Question string
	Answer   string
	Intent   string
	Markers  []geo.Suggestion
	Err      string
	AskedAt  time.Time
}

// Failed reports whether the turn ended in an error.
func (t Turn) Failed() bool { return t.Err != "" }

// Transcript is the append-only record of a session's advisory turns.
// Turns are never edited after the fact; a retry is a new turn.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records a finished turn and returns its index.
func (tr *Transcript) Append(t Turn) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.turns = append(tr.turns, t)
	return len(tr.turns) - 1
}

// Turns returns a copy of the whole transcript in order.
func (tr *Transcript) Turns() []Turn {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return append([]Turn(nil), tr.turns...)
}

// Len returns the number of recorded turns.
func (tr *Transcript) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.turns)
}

// Last returns the most recent turn, if any.
func (tr *Transcript) Last() (Turn, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if len(tr.turns) == 0 {
		return Turn{}, false
	}
	return tr.turns[len(tr.turns)-1], true
}
