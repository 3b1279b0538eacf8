package quiz

import "testing"

func TestTracker_CorrectFirstTry(t *testing.T) {
	var tr Tracker

	outcome := tr.SubmitAnswer("  Apple ", "apple")
	if outcome != OutcomeCorrectFirstTry {
		t.Fatalf("Expected OutcomeCorrectFirstTry, got %v", outcome)
	}
	if outcome.Points() != PointsFirstTry {
		t.Errorf("Expected %d points, got %d", PointsFirstTry, outcome.Points())
	}
	if !tr.Resolved() {
		t.Error("Tracker should be resolved after a correct answer")
	}
}

func TestTracker_CorrectSecondTry(t *testing.T) {
	var tr Tracker

	if outcome := tr.SubmitAnswer("appel", "apple"); outcome != OutcomeRetry {
		t.Fatalf("Expected OutcomeRetry after first miss, got %v", outcome)
	}
	outcome := tr.SubmitAnswer("apple", "apple")
	if outcome != OutcomeCorrectSecondTry {
		t.Fatalf("Expected OutcomeCorrectSecondTry, got %v", outcome)
	}
	if outcome.Points() != PointsSecondTry {
		t.Errorf("Expected %d points, got %d", PointsSecondTry, outcome.Points())
	}
}

func TestTracker_FinalIncorrect(t *testing.T) {
	var tr Tracker

	tr.SubmitAnswer("wrong", "apple")
	outcome := tr.SubmitAnswer("still wrong", "apple")
	if outcome != OutcomeFinalIncorrect {
		t.Fatalf("Expected OutcomeFinalIncorrect, got %v", outcome)
	}
	if outcome.Points() != 0 {
		t.Errorf("Final incorrect should award 0 points, got %d", outcome.Points())
	}
	if !outcome.Final() {
		t.Error("Final incorrect should be final")
	}
}

func TestTracker_BoundedAttempts(t *testing.T) {
	var tr Tracker

	tr.SubmitAnswer("wrong", "apple")
	tr.SubmitAnswer("wrong", "apple")

	if outcome := tr.SubmitAnswer("apple", "apple"); outcome != OutcomeAlreadyResolved {
		t.Fatalf("Submission after resolution should report OutcomeAlreadyResolved, got %v", outcome)
	}
	if tr.Attempts() != MaxAttempts {
		t.Errorf("Attempt count should stay at %d, got %d", MaxAttempts, tr.Attempts())
	}
}

func TestTracker_HintGating(t *testing.T) {
	var tr Tracker

	if tr.HintAvailable() {
		t.Error("No hint before the first attempt")
	}
	tr.SubmitAnswer("wrong", "apple")
	if !tr.HintAvailable() {
		t.Error("Hint should be available after exactly one failed attempt")
	}
	tr.SubmitAnswer("wrong", "apple")
	if tr.HintAvailable() {
		t.Error("No hint once the question is settled")
	}
}

func TestTracker_Reset(t *testing.T) {
	var tr Tracker
	tr.SubmitAnswer("wrong", "apple")
	tr.SubmitAnswer("wrong", "apple")

	tr.Reset()
	if tr.Attempts() != 0 || tr.Resolved() {
		t.Error("Reset should clear attempts and resolution")
	}
	if outcome := tr.SubmitAnswer("apple", "apple"); outcome != OutcomeCorrectFirstTry {
		t.Errorf("After reset the next question starts fresh, got %v", outcome)
	}
}

func TestGradeAttempt(t *testing.T) {
	cases := []struct {
		attempt int
		correct bool
		want    Outcome
	}{
		{1, true, OutcomeCorrectFirstTry},
		{2, true, OutcomeCorrectSecondTry},
		{1, false, OutcomeRetry},
		{2, false, OutcomeFinalIncorrect},
		{0, true, OutcomeCorrectFirstTry},
	}
	for _, c := range cases {
		if got := GradeAttempt(c.attempt, c.correct); got != c.want {
			t.Errorf("GradeAttempt(%d, %v): expected %v, got %v", c.attempt, c.correct, c.want, got)
		}
	}
}

func TestScoreboard_StreakTracking(t *testing.T) {
	var board Scoreboard

	board.Apply(OutcomeCorrectFirstTry)
	board.Apply(OutcomeCorrectSecondTry)
	if board.Score != PointsFirstTry+PointsSecondTry {
		t.Errorf("Expected score %d, got %d", PointsFirstTry+PointsSecondTry, board.Score)
	}
	if board.Streak != 2 || board.BestStreak != 2 {
		t.Errorf("Expected streak 2/2, got %d/%d", board.Streak, board.BestStreak)
	}

	board.Apply(OutcomeFinalIncorrect)
	if board.Streak != 0 {
		t.Error("Final incorrect should reset the streak")
	}
	if board.BestStreak != 2 {
		t.Error("Best streak should survive a reset")
	}
	if board.Wrong != 1 {
		t.Errorf("Expected 1 wrong, got %d", board.Wrong)
	}

	board.Apply(OutcomeRetry)
	if board.Score != PointsFirstTry+PointsSecondTry || board.Wrong != 1 {
		t.Error("Retry outcome should not change the scoreboard")
	}
}
