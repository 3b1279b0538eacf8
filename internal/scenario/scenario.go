package scenario

import "fmt"

// Scenario identifies one role-play setting.
type Scenario string

const (
	Restaurant Scenario = "restaurant"
	Shopping   Scenario = "shopping"
	Airport    Scenario = "airport"
	Doctor     Scenario = "doctor"
	Hotel      Scenario = "hotel"
	School     Scenario = "school"
	Shop       Scenario = "shop"
	Food       Scenario = "food"
	Present    Scenario = "present"
)

// Level is a proficiency tier following the CEFR naming the clients use.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
)

// Defaults applied at connection time and on unrecognized values.
const (
	DefaultScenario = Restaurant
	DefaultLevel    = LevelA2
)

var levelGuides = map[Level]string{
	LevelA1: "Use very simple words and short sentences. Speak slowly. Help with basic vocabulary.",
	LevelA2: "Use simple everyday language. Keep sentences clear and not too long.",
	LevelB1: "Use intermediate vocabulary. You can use more complex sentences, but keep it conversational.",
}

var rolePrompts = map[Scenario]string{
	Restaurant: "You are a friendly waiter in an English restaurant. Help the student practice ordering food.",
	Shopping:   "You are a helpful shop assistant in an English store. Help the student practice shopping conversations.",
	Airport:    "You are a friendly airport staff member. Help the student practice airport conversations like check-in, security, and finding gates.",
	Doctor:     "You are a caring doctor in an English clinic. Help the student practice describing symptoms and medical conversations.",
	Hotel:      "You are a friendly hotel receptionist. Help the student practice hotel conversations like check-in, room service, and asking for directions.",
	School:     "You are a friendly teacher helping students with school-related conversations.",
	Shop:       "You are a helpful shop assistant. Help the student practice shopping conversations.",
	Food:       "You are a friendly restaurant server helping students order food.",
	Present:    "You are a helpful shop assistant in a gift shop. Help the student practice buying presents.",
}

// Normalize maps a raw scenario value onto the enumerated set. Unknown values
// fall back to the default so a bad client value never interrupts the student.
func Normalize(raw string) Scenario {
	s := Scenario(raw)
	if _, ok := rolePrompts[s]; ok {
		return s
	}
	return DefaultScenario
}

// NormalizeLevel maps a raw level value onto the enumerated tiers.
func NormalizeLevel(raw string) Level {
	l := Level(raw)
	if _, ok := levelGuides[l]; ok {
		return l
	}
	return DefaultLevel
}

// Prompt composes the system prompt for a scenario and level.
func Prompt(s Scenario, l Level) string {
	role, ok := rolePrompts[s]
	if !ok {
		role = rolePrompts[DefaultScenario]
	}
	guide, ok := levelGuides[l]
	if !ok {
		guide = levelGuides[DefaultLevel]
	}
	return fmt.Sprintf("%s %s Be encouraging and patient. Speak only English. Keep responses conversational and natural. Correct mistakes gently by rephrasing correctly.", role, guide)
}

// targetVocabulary lists the phrases the dashboard highlights when a student
// uses them. Matching is case-insensitive substring, see conversation.Assess.
var targetVocabulary = map[Scenario][]string{
	Restaurant: {"menu", "order", "would like", "bill", "waiter", "table", "drink"},
	Shopping:   {"how much", "price", "buy", "pay", "size", "cheap", "expensive"},
	Airport:    {"flight", "gate", "boarding", "passport", "check in", "luggage", "delay"},
	Doctor:     {"pain", "headache", "fever", "medicine", "appointment", "better"},
	Hotel:      {"room", "reservation", "check in", "key", "breakfast", "night"},
	School:     {"homework", "lesson", "teacher", "classroom", "subject", "break"},
	Shop:       {"how much", "price", "buy", "pay", "cheap", "expensive", "open"},
	Food:       {"hungry", "menu", "order", "would like", "delicious", "drink"},
	Present:    {"present", "gift", "birthday", "wrap", "how much", "surprise"},
}

// TargetVocabulary returns the highlight phrases for a scenario.
func TargetVocabulary(s Scenario) []string {
	if words, ok := targetVocabulary[s]; ok {
		return words
	}
	return targetVocabulary[DefaultScenario]
}
