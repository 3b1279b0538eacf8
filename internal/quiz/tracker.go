// Package quiz implements the bounded-retry vocabulary grading and the
// global image object-finding quiz. The two matchers are deliberately
// different algorithms: vocabulary answers are graded by exact match, image
// answers by loose containment (see imagequiz.go).
package quiz

import "strings"

// Vocabulary flow constants: two attempts, tiered points.
const (
	MaxAttempts     = 2
	PointsFirstTry  = 10
	PointsSecondTry = 5
)

// Outcome of one answer submission.
type Outcome int

const (
	// OutcomeRetry: wrong answer with attempts remaining; a hint is now
	// fetchable and the tracker stays unresolved.
	OutcomeRetry Outcome = iota
	// OutcomeCorrectFirstTry: full points.
	OutcomeCorrectFirstTry
	// OutcomeCorrectSecondTry: reduced points.
	OutcomeCorrectSecondTry
	// OutcomeFinalIncorrect: attempts exhausted; the correct answer is
	// revealed and its pronunciation synthesized for playback.
	OutcomeFinalIncorrect
	// OutcomeAlreadyResolved: submission after resolution; nothing changes.
	OutcomeAlreadyResolved
)

// Points returns the score awarded for the outcome.
func (o Outcome) Points() int {
	switch o {
	case OutcomeCorrectFirstTry:
		return PointsFirstTry
	case OutcomeCorrectSecondTry:
		return PointsSecondTry
	default:
		return 0
	}
}

// Correct reports whether the outcome accepted the answer.
func (o Outcome) Correct() bool {
	return o == OutcomeCorrectFirstTry || o == OutcomeCorrectSecondTry
}

// Final reports whether the question is settled.
func (o Outcome) Final() bool {
	return o.Correct() || o == OutcomeFinalIncorrect || o == OutcomeAlreadyResolved
}

// Tracker grades one question with bounded retries. Zero value is ready to
// use.
type Tracker struct {
	attempts int
	resolved bool
}

// SubmitAnswer grades one submission. Both strings are normalized
// (lowercase, trim) before exact-match comparison. Once resolved, further
// submissions report OutcomeAlreadyResolved and do not change the attempt
// count.
func (t *Tracker) SubmitAnswer(given, expected string) Outcome {
	if t.resolved {
		return OutcomeAlreadyResolved
	}

	t.attempts++
	if normalizeAnswer(given) == normalizeAnswer(expected) {
		t.resolved = true
		if t.attempts == 1 {
			return OutcomeCorrectFirstTry
		}
		return OutcomeCorrectSecondTry
	}

	if t.attempts >= MaxAttempts {
		t.resolved = true
		return OutcomeFinalIncorrect
	}
	return OutcomeRetry
}

// HintAvailable reports whether a hint may be fetched: after exactly one
// failed attempt and before resolution.
func (t *Tracker) HintAvailable() bool {
	return !t.resolved && t.attempts == 1
}

// Attempts returns the number of submissions so far.
func (t *Tracker) Attempts() int { return t.attempts }

// Resolved reports whether the question is settled.
func (t *Tracker) Resolved() bool { return t.resolved }

// Reset prepares the tracker for the next question.
func (t *Tracker) Reset() {
	t.attempts = 0
	t.resolved = false
}

// GradeAttempt maps a stateless (attempt, correct) pair onto an outcome,
// using the same tiers as the tracker. The pronunciation-check endpoint uses
// it because the client carries the attempt counter across requests.
func GradeAttempt(attempt int, correct bool) Outcome {
	if attempt < 1 {
		attempt = 1
	}
	if correct {
		if attempt == 1 {
			return OutcomeCorrectFirstTry
		}
		return OutcomeCorrectSecondTry
	}
	if attempt >= MaxAttempts {
		return OutcomeFinalIncorrect
	}
	return OutcomeRetry
}

// Scoreboard keeps the running score for one quiz run, one level above the
// tracker. Correct outcomes extend the streak; a final incorrect resets it.
type Scoreboard struct {
	Score      int `json:"score"`
	Streak     int `json:"streak"`
	BestStreak int `json:"bestStreak"`
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
}

// Apply updates the scoreboard deterministically from an outcome.
func (b *Scoreboard) Apply(o Outcome) {
	switch {
	case o.Correct():
		b.Score += o.Points()
		b.Streak++
		b.Correct++
		if b.Streak > b.BestStreak {
			b.BestStreak = b.Streak
		}
	case o == OutcomeFinalIncorrect:
		b.Streak = 0
		b.Wrong++
	}
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
