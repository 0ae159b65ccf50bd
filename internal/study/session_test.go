package study

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays fixed draws and records the bounds it was asked for.
type seqRand struct {
	draws  []int
	bounds []int
}

func (r *seqRand) IntN(n int) int {
	r.bounds = append(r.bounds, n)
	if len(r.draws) == 0 {
		return 0
	}
	v := r.draws[0]
	r.draws = r.draws[1:]
	return v
}

func makeCards(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		id := string(rune('a' + i))
		cards[i] = Card{ID: id, Question: id + "?", Answer: id + "!"}
	}
	return cards
}

func ids(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	sort.Strings(out)
	return out
}

func TestStart_EmptyIsFinished(t *testing.T) {
	s := Start(nil, NewRand())

	assert.True(t, s.Finished)
	assert.NotNil(t, s.Order)
	assert.Empty(t, s.Order)

	_, ok := ProgressOf(s)
	assert.False(t, ok, "progress is undefined for an empty pass")

	_, ok = CurrentCard(s)
	assert.False(t, ok)
}

func TestStart_IsPermutation(t *testing.T) {
	rng := NewRand()
	for n := 1; n <= 12; n++ {
		cards := makeCards(n)
		s := Start(cards, rng)

		require.Len(t, s.Order, n)
		assert.Equal(t, ids(cards), ids(s.Order))
		assert.Equal(t, 0, s.Position)
		assert.False(t, s.Revealed)
		assert.False(t, s.Finished)

		p, ok := ProgressOf(s)
		require.True(t, ok)
		assert.Equal(t, n, p.Total)
	}
}

func TestStart_DoesNotMutateInput(t *testing.T) {
	cards := makeCards(5)
	before := append([]Card(nil), cards...)

	Start(cards, &seqRand{draws: []int{0, 0, 0, 0}})

	assert.Equal(t, before, cards)
}

func TestStart_InclusiveSwapBounds(t *testing.T) {
	rng := &seqRand{}
	Start(makeCards(4), rng)

	assert.Equal(t, []int{4, 3, 2}, rng.bounds)
}

func TestStart_AppliesDraws(t *testing.T) {
	// i=2 swaps with 0, i=1 swaps with 1: [a b c] -> [c b a] -> [c b a]
	s := Start(makeCards(3), &seqRand{draws: []int{0, 1}})

	assert.Equal(t, "c", s.Order[0].ID)
	assert.Equal(t, "b", s.Order[1].ID)
	assert.Equal(t, "a", s.Order[2].ID)
}

func TestStart_CoversAllOrderings(t *testing.T) {
	seen := map[string]int{}
	rng := NewRand()
	for i := 0; i < 6000; i++ {
		s := Start(makeCards(3), rng)
		seen[s.Order[0].ID+s.Order[1].ID+s.Order[2].ID]++
	}

	require.Len(t, seen, 6)
	for order, count := range seen {
		assert.Greater(t, count, 700, "ordering %s is under-represented", order)
	}
}

func TestFlip(t *testing.T) {
	s := Start(makeCards(3), NewRand())

	flipped := Flip(s)
	assert.True(t, flipped.Revealed)
	assert.Equal(t, s.Position, flipped.Position)
	assert.Equal(t, s.Finished, flipped.Finished)

	back := Flip(flipped)
	assert.False(t, back.Revealed)
	assert.Equal(t, s.Position, back.Position)
}

func TestFlip_NoOpWhenFinished(t *testing.T) {
	s := Advance(Start(makeCards(1), NewRand()))
	require.True(t, s.Finished)

	assert.Equal(t, s, Flip(s))
}

func TestAdvance_ResetsRevealed(t *testing.T) {
	s := Flip(Start(makeCards(3), NewRand()))
	require.True(t, s.Revealed)

	next := Advance(s)
	assert.Equal(t, 1, next.Position)
	assert.False(t, next.Revealed)
}

func TestAdvance_FinishesAfterExactlyTotalCalls(t *testing.T) {
	for n := 1; n <= 6; n++ {
		s := Start(makeCards(n), NewRand())
		for i := 0; i < n; i++ {
			require.False(t, s.Finished, "finished early after %d advances of %d", i, n)
			s = Advance(s)
		}
		assert.True(t, s.Finished)
		assert.Equal(t, n, s.Position)
		last, ok := LastCard(s)
		require.True(t, ok)
		assert.Equal(t, s.Order[n-1], last)

		again := Advance(s)
		assert.Equal(t, s, again, "advance on a finished pass must be a no-op")
	}
}

func TestInvariant_FinishedMatchesPosition(t *testing.T) {
	s := Start(makeCards(4), NewRand())
	steps := []func(State) State{Flip, Advance, Flip, Flip, Advance, Advance, Flip, Advance, Advance, Flip}

	for i, step := range steps {
		s = step(s)
		assert.Equal(t, s.Position >= len(s.Order), s.Finished, "step %d", i)
	}
}

func TestCurrentAndLastCard(t *testing.T) {
	s := Start(makeCards(2), &seqRand{draws: []int{1}})

	c, ok := CurrentCard(s)
	require.True(t, ok)
	assert.Equal(t, "a", c.ID)

	s = Advance(Advance(s))
	_, ok = CurrentCard(s)
	assert.False(t, ok)

	last, ok := LastCard(s)
	require.True(t, ok)
	assert.Equal(t, "b", last.ID)
}

func TestProgress(t *testing.T) {
	s := Start(makeCards(3), NewRand())

	tests := []struct {
		current int
		percent int
	}{
		{1, 33},
		{2, 67},
		{3, 100},
		{3, 100},
	}

	for _, tc := range tests {
		p, ok := ProgressOf(s)
		require.True(t, ok)
		assert.Equal(t, tc.current, p.Current)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, tc.percent, p.Percent)
		s = Advance(s)
	}
}

func TestTwoCardPass(t *testing.T) {
	cards := []Card{
		{ID: "1", Question: "A?", Answer: "B"},
		{ID: "2", Question: "C?", Answer: "D"},
	}

	s := Start(cards, NewRand())
	s = Advance(s)
	s = Advance(s)

	assert.True(t, s.Finished)
	assert.Equal(t, []string{"1", "2"}, ids(s.Order))
}
