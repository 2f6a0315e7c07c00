package game

// Guess is one vote submitted toward a team's collective answer.
// Voter identity does not weight the count; the same participant
// submitting twice counts twice.
type Guess struct {
	Emoji string `json:"emoji"`
	User  string `json:"user"`
}

// Tally returns the majority emoji among the guesses and its count.
// The winner must have a strictly greater count than the running
// maximum, so ties resolve to whichever tied emoji arrived first.
// Deterministic for a given arrival order. Empty input yields ("", 0);
// callers skip broadcasting in that case.
func Tally(guesses []Guess) (string, int) {
	counts := make(map[string]int, len(guesses))
	order := make([]string, 0, len(guesses))
	for _, g := range guesses {
		if _, seen := counts[g.Emoji]; !seen {
			order = append(order, g.Emoji)
		}
		counts[g.Emoji]++
	}
	winner, max := "", 0
	for _, e := range order {
		if counts[e] > max {
			max = counts[e]
			winner = e
		}
	}
	return winner, max
}
