package quiz

import (
	"strings"
	"sync"
	"time"
)

// PointsPerObject is awarded for each newly credited object in a submission.
const PointsPerObject = 10

// minWordLength for the per-word containment match; shorter words produce
// too many false positives even for this deliberately permissive matcher.
const minWordLength = 3

// ImageQuiz is the single concurrently-active object-finding quiz shared by
// all students. The outer lock guards quiz lifecycle and the student map;
// each student's credited set has its own lock so different students' credit
// operations never block each other.
type ImageQuiz struct {
	mu        sync.RWMutex
	active    bool
	imageRef  string
	targets   []string
	startedAt time.Time
	students  map[string]*studentProgress
	questions []QARecord
}

type studentProgress struct {
	mu    sync.Mutex
	found map[string]bool
	order []string
}

// NewImageQuiz creates an inactive quiz singleton.
func NewImageQuiz() *ImageQuiz {
	return &ImageQuiz{
		students: make(map[string]*studentProgress),
	}
}

// Start activates a quiz for the given image and target objects, replacing
// any quiz already running. Object names are trimmed, lowercased and
// deduplicated.
func (q *ImageQuiz) Start(imageRef string, objects []string) error {
	targets := canonicalObjects(objects)
	if imageRef == "" {
		return ErrMissingImage
	}
	if len(targets) == 0 {
		return ErrNoTargetObjects
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.active = true
	q.imageRef = imageRef
	q.targets = targets
	q.startedAt = time.Now()
	q.students = make(map[string]*studentProgress)
	q.questions = nil
	return nil
}

// QARecord is one free-form image question and the model's answer, kept on
// the run for the dashboard's history view.
type QARecord struct {
	Student  string    `json:"student"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"askedAt"`
}

// RecordQA attaches an answered question to the running quiz. Questions asked
// while no quiz is active are not kept.
func (q *ImageQuiz) RecordQA(student, question, answer string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return ErrQuizNotActive
	}
	q.questions = append(q.questions, QARecord{
		Student:  student,
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now(),
	})
	return nil
}

// RunSummary is the terminal snapshot of a quiz, for archiving.
type RunSummary struct {
	ImageRef  string              `json:"imageRef"`
	Targets   []string            `json:"targets"`
	Found     map[string][]string `json:"found"`
	Questions []QARecord          `json:"questions"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   time.Time           `json:"endedAt"`
}

// End deactivates the quiz and returns its summary, or ErrQuizNotActive.
func (q *ImageQuiz) End() (*RunSummary, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return nil, ErrQuizNotActive
	}

	found := make(map[string][]string, len(q.students))
	for student, progress := range q.students {
		progress.mu.Lock()
		found[student] = append([]string(nil), progress.order...)
		progress.mu.Unlock()
	}

	summary := &RunSummary{
		ImageRef:  q.imageRef,
		Targets:   append([]string(nil), q.targets...),
		Found:     found,
		Questions: append([]QARecord(nil), q.questions...),
		StartedAt: q.startedAt,
		EndedAt:   time.Now(),
	}

	q.active = false
	q.imageRef = ""
	q.targets = nil
	q.students = make(map[string]*studentProgress)
	q.questions = nil
	return summary, nil
}

// Status reports whether a quiz is running and for which image.
func (q *ImageQuiz) Status() (active bool, imageRef string, targets []string) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.active, q.imageRef, append([]string(nil), q.targets...)
}

// CheckResult reports how one submission scored.
type CheckResult struct {
	Credited     []string `json:"credited"`
	AlreadyFound []string `json:"alreadyFound"`
	Points       int      `json:"points"`
	Remaining    int      `json:"remaining"`
}

// CheckAnswer matches a freely spoken or typed phrase against the target
// objects and credits every newly matched object to the student. Crediting
// is idempotent: resubmitting a found object reports it as already found
// instead of silently ignoring it.
func (q *ImageQuiz) CheckAnswer(studentID, phrase string) (*CheckResult, error) {
	q.mu.RLock()
	if !q.active {
		q.mu.RUnlock()
		return nil, ErrQuizNotActive
	}
	targets := q.targets
	q.mu.RUnlock()

	matched := matchObjects(phrase, targets)

	progress := q.studentProgress(studentID)
	progress.mu.Lock()
	defer progress.mu.Unlock()

	result := &CheckResult{}
	for _, object := range matched {
		if progress.found[object] {
			result.AlreadyFound = append(result.AlreadyFound, object)
			continue
		}
		progress.found[object] = true
		progress.order = append(progress.order, object)
		result.Credited = append(result.Credited, object)
	}
	result.Points = PointsPerObject * len(result.Credited)
	result.Remaining = len(targets) - len(progress.found)
	return result, nil
}

// FoundByStudent returns the objects credited to a student so far, in
// discovery order.
func (q *ImageQuiz) FoundByStudent(studentID string) []string {
	q.mu.RLock()
	progress, exists := q.students[studentID]
	q.mu.RUnlock()
	if !exists {
		return nil
	}

	progress.mu.Lock()
	defer progress.mu.Unlock()
	return append([]string(nil), progress.order...)
}

func (q *ImageQuiz) studentProgress(studentID string) *studentProgress {
	q.mu.RLock()
	progress, exists := q.students[studentID]
	q.mu.RUnlock()
	if exists {
		return progress
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if progress, exists = q.students[studentID]; exists {
		return progress
	}
	progress = &studentProgress{found: make(map[string]bool)}
	q.students[studentID] = progress
	return progress
}

// matchObjects implements the permissive phrase matcher. An object matches
// when the phrase contains the object name with a trailing "s" stripped, or
// when any phrase word of at least three characters is contained in the
// object name. Recall is deliberately favored over precision: transcripts of
// young learners' speech are unreliable.
func matchObjects(phrase string, targets []string) []string {
	normalized := strings.ToLower(strings.TrimSpace(phrase))
	if normalized == "" {
		return nil
	}
	words := strings.Fields(normalized)

	var matched []string
	for _, object := range targets {
		singular := strings.TrimSuffix(object, "s")
		if strings.Contains(normalized, singular) {
			matched = append(matched, object)
			continue
		}
		for _, word := range words {
			if len(word) >= minWordLength && strings.Contains(object, word) {
				matched = append(matched, object)
				break
			}
		}
	}
	return matched
}

func canonicalObjects(objects []string) []string {
	seen := make(map[string]bool, len(objects))
	canonical := make([]string, 0, len(objects))
	for _, object := range objects {
		name := strings.ToLower(strings.TrimSpace(object))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		canonical = append(canonical, name)
	}
	return canonical
}
