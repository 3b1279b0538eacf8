package scenario

import (
	"strings"
	"testing"
)

func TestNormalize_KnownScenario(t *testing.T) {
	if got := Normalize("hotel"); got != Hotel {
		t.Errorf("Expected hotel, got %q", got)
	}
}

func TestNormalize_UnknownFallsBack(t *testing.T) {
	for _, raw := range []string{"", "spaceship", "RESTAURANT"} {
		if got := Normalize(raw); got != DefaultScenario {
			t.Errorf("Normalize(%q): expected default %q, got %q", raw, DefaultScenario, got)
		}
	}
}

func TestNormalizeLevel_UnknownFallsBack(t *testing.T) {
	if got := NormalizeLevel("B1"); got != LevelB1 {
		t.Errorf("Expected B1, got %q", got)
	}
	for _, raw := range []string{"", "C2", "a1"} {
		if got := NormalizeLevel(raw); got != DefaultLevel {
			t.Errorf("NormalizeLevel(%q): expected default %q, got %q", raw, DefaultLevel, got)
		}
	}
}

func TestPrompt_ComposesRoleAndGuide(t *testing.T) {
	prompt := Prompt(Airport, LevelA1)

	if !strings.Contains(prompt, "airport staff member") {
		t.Error("Prompt should contain the scenario role")
	}
	if !strings.Contains(prompt, "very simple words") {
		t.Error("Prompt should contain the level guide")
	}
	if !strings.Contains(prompt, "Speak only English") {
		t.Error("Prompt should contain the shared coaching instructions")
	}
}

func TestTargetVocabulary(t *testing.T) {
	words := TargetVocabulary(Shop)
	found := false
	for _, w := range words {
		if w == "how much" {
			found = true
		}
	}
	if !found {
		t.Error("Shop vocabulary should include the phrase \"how much\"")
	}

	if len(TargetVocabulary("spaceship")) == 0 {
		t.Error("Unknown scenario should fall back to the default vocabulary")
	}
}
