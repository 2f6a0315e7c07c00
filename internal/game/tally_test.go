package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally(t *testing.T) {
	cases := []struct {
		name      string
		guesses   []Guess
		wantEmoji string
		wantCount int
	}{
		{
			name:      "clear majority",
			guesses:   []Guess{{Emoji: "😀", User: "a"}, {Emoji: "😀", User: "b"}, {Emoji: "😂", User: "c"}},
			wantEmoji: "😀",
			wantCount: 2,
		},
		{
			name:      "tie goes to first arrival",
			guesses:   []Guess{{Emoji: "😀", User: "a"}, {Emoji: "😂", User: "b"}},
			wantEmoji: "😀",
			wantCount: 1,
		},
		{
			name: "tie at two goes to first arrival not first to reach",
			guesses: []Guess{
				{Emoji: "😂", User: "a"},
				{Emoji: "😀", User: "b"},
				{Emoji: "😀", User: "c"},
				{Emoji: "😂", User: "d"},
			},
			wantEmoji: "😂",
			wantCount: 2,
		},
		{
			name:      "same voter counts twice",
			guesses:   []Guess{{Emoji: "😀", User: "a"}, {Emoji: "😂", User: "b"}, {Emoji: "😂", User: "b"}},
			wantEmoji: "😂",
			wantCount: 2,
		},
		{
			name:      "empty input",
			guesses:   nil,
			wantEmoji: "",
			wantCount: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emoji, count := Tally(tc.guesses)
			assert.Equal(t, tc.wantEmoji, emoji)
			assert.Equal(t, tc.wantCount, count)
		})
	}
}

func TestTally_DeterministicAcrossRuns(t *testing.T) {
	guesses := []Guess{
		{Emoji: "🐶", User: "a"}, {Emoji: "🍕", User: "b"},
		{Emoji: "🍕", User: "c"}, {Emoji: "🐶", User: "d"},
	}
	first, _ := Tally(guesses)
	for i := 0; i < 50; i++ {
		emoji, _ := Tally(guesses)
		assert.Equal(t, first, emoji)
	}
}
