package vote

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransitionTable(t *testing.T) {
	tests := []struct {
		current Direction
		kind    Kind
		next    Direction
		delta   Delta
	}{
		{None, KindUpvote, Up, Delta{Upvotes: 1}},
		{None, KindDownvote, Down, Delta{Downvotes: 1}},
		{None, KindRemove, None, Delta{}},
		{Up, KindUpvote, None, Delta{Upvotes: -1}},
		{Up, KindDownvote, Down, Delta{Upvotes: -1, Downvotes: 1}},
		{Up, KindRemove, None, Delta{Upvotes: -1}},
		{Down, KindDownvote, None, Delta{Downvotes: -1}},
		{Down, KindUpvote, Up, Delta{Upvotes: 1, Downvotes: -1}},
		{Down, KindRemove, None, Delta{Downvotes: -1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"/"+string(tt.kind), func(t *testing.T) {
			next, delta := Next(tt.current, tt.kind)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.delta, delta)
		})
	}
}

func TestNextUnknownKindKeepsState(t *testing.T) {
	next, delta := Next(Up, Kind("sideways"))
	assert.Equal(t, Up, next)
	assert.Equal(t, Delta{}, delta)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" UpVote ")
	require.NoError(t, err)
	assert.Equal(t, KindUpvote, k)

	_, err = ParseKind("like")
	require.ErrorIs(t, err, ErrInvalidKind)

	_, err = ParseKind("")
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestApplyScenario(t *testing.T) {
	l := Ledger{}

	res := l.Apply("discord:1", KindUpvote)
	assert.Equal(t, NewTally(1, 0), res.Tally)
	assert.Equal(t, 1, res.Tally.Score)
	assert.Equal(t, "upvote", res.Current.Label())

	res = l.Apply("discord:1", KindDownvote)
	assert.Equal(t, Tally{Upvotes: 0, Downvotes: 1, Score: -1}, res.Tally)
	assert.Equal(t, "downvote", res.Current.Label())

	res = l.Apply("discord:1", KindDownvote)
	assert.Equal(t, Tally{}, res.Tally)
	assert.Equal(t, None, res.Current)
	assert.Equal(t, "", res.Current.Label())
	assert.Empty(t, l)
}

func TestApplyDoubleUpvoteTogglesOff(t *testing.T) {
	l := Ledger{}
	l.Apply("google:a", KindUpvote)
	res := l.Apply("google:a", KindUpvote)

	assert.Equal(t, None, res.Current)
	assert.Equal(t, 0, res.Tally.Upvotes)
	_, present := l["google:a"]
	assert.False(t, present)
}

func TestApplyKeepsOtherVoters(t *testing.T) {
	l := Ledger{"discord:1": Up, "discord:2": Down, "discord:3": Up}
	res := l.Apply("discord:2", KindUpvote)

	assert.Equal(t, NewTally(3, 0), res.Tally)
	assert.Equal(t, Delta{Upvotes: 1, Downvotes: -1}, res.Delta)
}

func TestTallyIgnoresCorruptEntries(t *testing.T) {
	l := Ledger{"a": Up, "b": Direction("sideways"), "c": Down}
	assert.Equal(t, NewTally(1, 1), l.Tally())
	assert.Equal(t, None, l.Get("b"))
}

func TestApplyDropsCorruptEntries(t *testing.T) {
	l := Ledger{"a": Up, "b": Direction("sideways"), "c": Direction("")}
	res := l.Apply("d", KindDownvote)

	assert.Equal(t, Ledger{"a": Up, "d": Down}, l)
	assert.Equal(t, NewTally(1, 1), res.Tally)
}

func TestPrune(t *testing.T) {
	l := Ledger{"a": Up, "b": Direction("sideways"), "c": Down}
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, Ledger{"a": Up, "c": Down}, l)
	assert.Equal(t, 0, l.Prune())

	var empty Ledger
	assert.Equal(t, 0, empty.Prune())
}

func TestApplyRandomSequencesStayConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []Kind{KindUpvote, KindDownvote, KindRemove}
	voters := []string{"discord:1", "discord:2", "google:x", "google:y"}

	l := Ledger{}
	running := Tally{}
	for i := 0; i < 2000; i++ {
		voter := voters[rng.Intn(len(voters))]
		res := l.Apply(voter, kinds[rng.Intn(len(kinds))])

		running = running.Add(res.Delta)
		require.Equal(t, l.Tally(), res.Tally, "step %d", i)
		require.Equal(t, running, res.Tally, "step %d", i)
		require.Equal(t, res.Tally.Upvotes-res.Tally.Downvotes, res.Tally.Score)

		// one voter is in exactly one state
		switch got := l.Get(voter); got {
		case Up, Down:
			require.Equal(t, res.Current, got)
		default:
			_, present := l[voter]
			require.False(t, present)
			require.Equal(t, None, res.Current)
		}
	}
}
