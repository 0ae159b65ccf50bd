// Package study implements a single randomized pass over a fixed set of
// flashcards. Every operation is a pure function from one State to the next;
// callers own persistence of the returned value between calls.
package study

import (
	"math"
	"math/rand/v2"
)

// Card is the read-only view of a flashcard held by a session.
type Card struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// State is the complete state of one study pass. Position equals len(Order)
// once the pass is finished; LastCard still returns the final card.
type State struct {
	Order    []Card `json:"order"`
	Position int    `json:"position"`
	Revealed bool   `json:"revealed"`
	Finished bool   `json:"finished"`
}

// Progress is the 1-based display position within a pass.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Rand is the random source used for shuffling.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

// NewRand returns a Rand backed by a freshly seeded PCG generator.
func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Start shuffles cards into a new pass. An empty card list produces a pass
// that is already finished.
func Start(cards []Card, rng Rand) State {
	if len(cards) == 0 {
		return State{Order: []Card{}, Finished: true}
	}

	order := make([]Card, len(cards))
	copy(order, cards)

	// j is drawn from [0, i] inclusive.
	for i := len(order) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	return State{Order: order}
}

// Flip toggles which face of the current card is showing.
func Flip(s State) State {
	if s.Finished {
		return s
	}
	s.Revealed = !s.Revealed
	return s
}

// Advance moves to the next card, or finishes the pass after the last one.
func Advance(s State) State {
	if s.Finished {
		return s
	}
	s.Position++
	s.Revealed = false
	if s.Position >= len(s.Order) {
		s.Finished = true
	}
	return s
}

// CurrentCard returns the card under study. It reports false once the pass
// is finished.
func CurrentCard(s State) (Card, bool) {
	if s.Finished || s.Position >= len(s.Order) {
		return Card{}, false
	}
	return s.Order[s.Position], true
}

// LastCard returns the most recently shown card, which stays addressable
// after the pass finishes.
func LastCard(s State) (Card, bool) {
	if len(s.Order) == 0 {
		return Card{}, false
	}
	return s.Order[min(s.Position, len(s.Order)-1)], true
}

// ProgressOf reports the display position. It is undefined for an empty pass.
func ProgressOf(s State) (Progress, bool) {
	total := len(s.Order)
	if total == 0 {
		return Progress{}, false
	}
	current := min(s.Position+1, total)
	return Progress{
		Current: current,
		Total:   total,
		Percent: int(math.Round(float64(current) / float64(total) * 100)),
	}, true
}
