package vocab

import (
	"sort"
	"sync"
)

// WordStat accumulates attempts and errors for one word pair.
type WordStat struct {
	English  string `json:"english"`
	German   string `json:"german"`
	Attempts int    `json:"attempts"`
	Errors   int    `json:"errors"`
}

// Stats is the process-wide vocabulary statistics accumulator feeding the
// dashboard's difficult-words report. In-memory only, like the live sessions.
type Stats struct {
	mu            sync.Mutex
	words         map[string]*WordStat
	totalAttempts int
	totalErrors   int
}

// NewStats creates an empty accumulator.
func NewStats() *Stats {
	return &Stats{words: make(map[string]*WordStat)}
}

// Record books one answer for a word pair.
func (s *Stats) Record(english, german string, correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := english + "|" + german
	stat, exists := s.words[key]
	if !exists {
		stat = &WordStat{English: english, German: german}
		s.words[key] = stat
	}

	stat.Attempts++
	s.totalAttempts++
	if !correct {
		stat.Errors++
		s.totalErrors++
	}
}

// Report is the dashboard view of the accumulated statistics.
type Report struct {
	TotalAttempts  int         `json:"totalAttempts"`
	TotalErrors    int         `json:"totalErrors"`
	DifficultWords []*WordStat `json:"difficultWords"`
}

// difficultWordLimit caps the report; the dashboard shows a top list only.
const difficultWordLimit = 20

// Snapshot builds the report: words with at least two attempts, sorted by
// error rate then attempt count, top 20.
func (s *Stats) Snapshot() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	difficult := make([]*WordStat, 0, len(s.words))
	for _, stat := range s.words {
		if stat.Attempts >= 2 {
			copied := *stat
			difficult = append(difficult, &copied)
		}
	}

	sort.Slice(difficult, func(i, j int) bool {
		rateI := float64(difficult[i].Errors) / float64(difficult[i].Attempts)
		rateJ := float64(difficult[j].Errors) / float64(difficult[j].Attempts)
		if rateI != rateJ {
			return rateI > rateJ
		}
		return difficult[i].Attempts > difficult[j].Attempts
	})
	if len(difficult) > difficultWordLimit {
		difficult = difficult[:difficultWordLimit]
	}

	return &Report{
		TotalAttempts:  s.totalAttempts,
		TotalErrors:    s.totalErrors,
		DifficultWords: difficult,
	}
}
