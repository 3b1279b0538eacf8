package quiz

import "strings"

// PronunciationScore rates how close a transcript came to the expected word
// on a 0-5 scale. The heuristic is deterministic so the client's star display
// is stable: exact match 5, expected word contained in the transcript 4,
// shared prefix of at least half the expected word 2, anything else 1, empty
// transcript 0.
func PronunciationScore(transcribed, expected string) int {
	got := normalizeAnswer(transcribed)
	want := normalizeAnswer(expected)

	switch {
	case got == "":
		return 0
	case got == want:
		return 5
	case strings.Contains(got, want):
		return 4
	case commonPrefixLen(got, want)*2 >= len(want):
		return 2
	default:
		return 1
	}
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
