package vocab

import "testing"

func TestFetch_DifficultyTiers(t *testing.T) {
	easy := Fetch("shop", DifficultyEasy)
	medium := Fetch("shop", DifficultyMedium)
	hard := Fetch("shop", DifficultyHard)

	if len(easy) == 0 {
		t.Fatal("Easy list should not be empty")
	}
	if len(medium) <= len(easy) {
		t.Errorf("Medium should add tier-2 words: easy=%d medium=%d", len(easy), len(medium))
	}
	if len(hard) <= len(medium) {
		t.Errorf("Hard should add tier-3 words: medium=%d hard=%d", len(medium), len(hard))
	}

	for _, w := range easy {
		if w.Tier != 1 {
			t.Errorf("Easy list should only contain tier-1 words, got %q tier %d", w.En, w.Tier)
		}
	}
}

func TestFetch_HardReturnsWholeList(t *testing.T) {
	hard := Fetch("shop", DifficultyHard)
	if len(hard) != len(catalog["shop"]) {
		t.Errorf("Hard should return all %d words, got %d", len(catalog["shop"]), len(hard))
	}

	// Shuffling must preserve the set.
	seen := make(map[string]bool, len(hard))
	for _, w := range hard {
		seen[w.En] = true
	}
	for _, w := range catalog["shop"] {
		if !seen[w.En] {
			t.Errorf("Word %q missing from the fetched list", w.En)
		}
	}
}

func TestFetch_UnknownScenarioAndDifficulty(t *testing.T) {
	words := Fetch("spaceship", "impossible")
	if len(words) == 0 {
		t.Fatal("Unknown scenario should fall back to the default list")
	}
	for _, w := range words {
		if w.Tier != 1 {
			t.Error("Unknown difficulty should fall back to easy")
		}
	}
}

func TestScenarios(t *testing.T) {
	names := Scenarios()
	if len(names) != len(catalog) {
		t.Errorf("Expected %d scenarios, got %d", len(catalog), len(names))
	}
}
