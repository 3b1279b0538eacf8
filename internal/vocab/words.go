// Package vocab provides the vocabulary-trainer word lists and the aggregate
// attempt statistics shown on the teacher dashboard.
package vocab

import (
	"math/rand"
	"strings"
)

// Word is one German-English vocabulary pair. Tier 1 words appear at every
// difficulty; higher tiers only from "medium" and "hard" upward.
type Word struct {
	De   string `json:"de"`
	En   string `json:"en"`
	Tier int    `json:"-"`
}

// Difficulty values accepted by Fetch. Unknown values fall back to easy,
// consistent with the lenient scenario handling on the dialog side.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var catalog = map[string][]Word{
	"shop": {
		{De: "der Preis", En: "price", Tier: 1},
		{De: "kaufen", En: "buy", Tier: 1},
		{De: "bezahlen", En: "pay", Tier: 1},
		{De: "das Geld", En: "money", Tier: 1},
		{De: "billig", En: "cheap", Tier: 2},
		{De: "teuer", En: "expensive", Tier: 2},
		{De: "die Größe", En: "size", Tier: 2},
		{De: "der Rabatt", En: "discount", Tier: 3},
		{De: "die Quittung", En: "receipt", Tier: 3},
	},
	"food": {
		{De: "das Brot", En: "bread", Tier: 1},
		{De: "der Apfel", En: "apple", Tier: 1},
		{De: "die Milch", En: "milk", Tier: 1},
		{De: "hungrig", En: "hungry", Tier: 1},
		{De: "das Gemüse", En: "vegetables", Tier: 2},
		{De: "lecker", En: "delicious", Tier: 2},
		{De: "bestellen", En: "order", Tier: 2},
		{De: "die Rechnung", En: "bill", Tier: 3},
		{De: "das Gericht", En: "dish", Tier: 3},
	},
	"school": {
		{De: "die Schule", En: "school", Tier: 1},
		{De: "der Lehrer", En: "teacher", Tier: 1},
		{De: "das Buch", En: "book", Tier: 1},
		{De: "die Hausaufgaben", En: "homework", Tier: 2},
		{De: "das Klassenzimmer", En: "classroom", Tier: 2},
		{De: "die Pause", En: "break", Tier: 2},
		{De: "das Fach", En: "subject", Tier: 3},
		{De: "die Prüfung", En: "exam", Tier: 3},
	},
	"present": {
		{De: "das Geschenk", En: "present", Tier: 1},
		{De: "der Geburtstag", En: "birthday", Tier: 1},
		{De: "die Karte", En: "card", Tier: 1},
		{De: "einpacken", En: "wrap", Tier: 2},
		{De: "die Überraschung", En: "surprise", Tier: 2},
		{De: "das Band", En: "ribbon", Tier: 3},
	},
	"airport": {
		{De: "der Flug", En: "flight", Tier: 1},
		{De: "der Koffer", En: "suitcase", Tier: 1},
		{De: "der Reisepass", En: "passport", Tier: 1},
		{De: "das Gate", En: "gate", Tier: 2},
		{De: "die Verspätung", En: "delay", Tier: 2},
		{De: "die Bordkarte", En: "boarding pass", Tier: 3},
	},
}

const defaultList = "shop"

// Fetch returns the word list for a scenario at a difficulty, shuffled per
// request so every quiz run sees a different order.
func Fetch(scenario, difficulty string) []Word {
	words, ok := catalog[strings.ToLower(strings.TrimSpace(scenario))]
	if !ok {
		words = catalog[defaultList]
	}

	maxTier := 1
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case DifficultyMedium:
		maxTier = 2
	case DifficultyHard:
		maxTier = 3
	}

	selected := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Tier <= maxTier {
			selected = append(selected, w)
		}
	}

	rand.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

// Scenarios lists the scenarios the trainer has word lists for.
func Scenarios() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	return names
}
