// Package api is the HTTP surface for the vocabulary trainer, the image quiz
// and the teacher dashboard. No business logic lives here, only HTTP handling
// and JSON serialization.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WIlski54/dialoglab-english-coach/internal/config"
	"github.com/WIlski54/dialoglab-english-coach/internal/gateway"
	"github.com/WIlski54/dialoglab-english-coach/internal/quiz"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
	"github.com/WIlski54/dialoglab-english-coach/internal/vocab"
)

// hintSystemPrompt instructs the model to answer in German; the vocabulary
// trainer's hints address the student in their native language.
const hintSystemPrompt = "Du bist ein hilfreicher Englischlehrer. Gib einen kurzen, hilfreichen Tipp zum Lernen dieses Vokabels. Maximal 2 Sätze auf Deutsch."

// Archive is the slice of database.Archive the API needs.
type Archive interface {
	SaveSession(ctx context.Context, s *session.Session) error
	SaveQuizRun(ctx context.Context, run *quiz.RunSummary) error
	ListQuizRuns(ctx context.Context, limit int) ([]*quiz.RunSummary, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
	ListSessions(ctx context.Context, limit int) ([]*session.Session, error)
	HealthCheck(ctx context.Context) error
}

// Notifier tells dashboard observers about session removals. Implemented by
// websocket.Broadcaster.
type Notifier interface {
	Remove(sessionID string)
}

// Server routes dashboard and trainer HTTP requests to the domain components.
type Server struct {
	gw        gateway.Client
	store     *session.Store
	stats     *vocab.Stats
	imageQuiz *quiz.ImageQuiz
	archive   Archive
	notifier  Notifier
	cfg       *config.Config
	router    *http.ServeMux
	startedAt time.Time
}

// NewServer creates the server and sets up routing.
func NewServer(gw gateway.Client, store *session.Store, stats *vocab.Stats, imageQuiz *quiz.ImageQuiz, archive Archive, notifier Notifier, cfg *config.Config) *Server {
	s := &Server{
		gw:        gw,
		store:     store,
		stats:     stats,
		imageQuiz: imageQuiz,
		archive:   archive,
		notifier:  notifier,
		cfg:       cfg,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// /api/speak returns binary MP3, everything else JSON.
	s.router.Handle("/api/speak", s.corsMiddleware(http.HandlerFunc(s.handleSpeak)))
	s.router.Handle("/api/quiz/upload-image", s.corsMiddleware(http.HandlerFunc(s.handleUploadImage)))

	jsonRoutes := map[string]http.HandlerFunc{
		"/api/vocab/hint":                s.handleVocabHint,
		"/api/vocab/check-pronunciation": s.handleCheckPronunciation,
		"/api/vocab/get-words":           s.handleGetWords,
		"/api/vocab-stats":               s.handleVocabStats,
		"/api/quiz/analyze-image":        s.handleAnalyzeImage,
		"/api/quiz/start":                s.handleQuizStart,
		"/api/quiz/end":                  s.handleQuizEnd,
		"/api/quiz/status":               s.handleQuizStatus,
		"/api/quiz/runs":                 s.handleQuizRuns,
		"/api/quiz/check-object":         s.handleCheckObject,
		"/api/teacher/login":             s.handleTeacherLogin,
		"/api/sessions":                  s.handleSessions,
		"/api/sessions/":                 s.handleSessionByID,
		"/health":                        s.healthCheck,
	}
	for path, handler := range jsonRoutes {
		s.router.Handle(path, s.corsMiddleware(s.jsonMiddleware(handler)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// POST /api/speak - synthesize spoken audio for arbitrary text.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.sendError(w, "Text is required", http.StatusBadRequest)
		return
	}

	audio, err := s.gw.Speak(r.Context(), req.Text)
	if err != nil {
		log.Printf("Speech synthesis failed: %v", err)
		s.sendError(w, "Speech synthesis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// POST /api/vocab/hint - generate a learning hint for one word pair. Both the
// english/german and word/germanWord field pairs are accepted; the trainer
// clients never agreed on one shape.
func (s *Server) handleVocabHint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		English    string `json:"english"`
		German     string `json:"german"`
		Word       string `json:"word"`
		GermanWord string `json:"germanWord"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	english := req.English
	if english == "" {
		english = req.Word
	}
	german := req.German
	if german == "" {
		german = req.GermanWord
	}
	if english == "" {
		s.sendError(w, "English word is required", http.StatusBadRequest)
		return
	}

	hint, err := s.gw.Chat(r.Context(), []gateway.Message{
		{Role: gateway.RoleSystem, Content: hintSystemPrompt},
		{Role: gateway.RoleUser, Content: fmt.Sprintf("Englisch: %s\nDeutsch: %s", english, german)},
	})
	if err != nil {
		log.Printf("Hint generation failed: %v", err)
		s.sendError(w, "Failed to generate hint", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"hint": hint})
}

type checkPronunciationRequest struct {
	Audio        string `json:"audio"`
	ExpectedWord string `json:"expectedWord"`
	Attempt      int    `json:"attempt"`
}

type checkPronunciationResponse struct {
	Success            bool   `json:"success"`
	Transcribed        string `json:"transcribed"`
	Expected           string `json:"expected"`
	Correct            bool   `json:"correct"`
	PronunciationScore int    `json:"pronunciationScore"`
	Points             int    `json:"points"`
	Final              bool   `json:"final"`
	NeedsTTS           bool   `json:"needsTTS"`
	Feedback           string `json:"feedback"`
}

// POST /api/vocab/check-pronunciation - transcribe recorded speech and grade
// it against the expected word. The client carries the attempt counter, so
// grading is stateless here.
func (s *Server) handleCheckPronunciation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkPronunciationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Audio == "" || req.ExpectedWord == "" {
		s.sendError(w, "Audio and expected word are required", http.StatusBadRequest)
		return
	}

	// Browser recorders send data URLs; strip the prefix before decoding.
	payload := req.Audio
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.sendError(w, "Invalid audio encoding", http.StatusBadRequest)
		return
	}

	transcribed, err := s.gw.Transcribe(r.Context(), audio, "audio.webm")
	if err != nil {
		log.Printf("Transcription failed: %v", err)
		s.sendError(w, "Transcription failed", http.StatusInternalServerError)
		return
	}

	score := quiz.PronunciationScore(transcribed, req.ExpectedWord)
	correct := score >= 4
	outcome := quiz.GradeAttempt(req.Attempt, correct)

	resp := checkPronunciationResponse{
		Success:            true,
		Transcribed:        transcribed,
		Expected:           req.ExpectedWord,
		Correct:            correct,
		PronunciationScore: score,
		Points:             outcome.Points(),
		Final:              outcome.Final(),
		NeedsTTS:           outcome == quiz.OutcomeFinalIncorrect,
		Feedback:           pronunciationFeedback(outcome, req.ExpectedWord),
	}
	json.NewEncoder(w).Encode(resp)
}

func pronunciationFeedback(o quiz.Outcome, expected string) string {
	switch o {
	case quiz.OutcomeCorrectFirstTry:
		return "Perfekt ausgesprochen!"
	case quiz.OutcomeCorrectSecondTry:
		return "Gut gemacht!"
	case quiz.OutcomeRetry:
		return "Fast! Hör nochmal genau hin und versuch es noch einmal."
	default:
		return fmt.Sprintf("Das richtige Wort war: %s", expected)
	}
}

// POST /api/vocab/get-words - fetch a shuffled word list.
func (s *Server) handleGetWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Scenario   string `json:"scenario"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"words":   vocab.Fetch(req.Scenario, req.Difficulty),
		"success": true,
	})
}

// /api/vocab-stats - POST records one answer, GET returns the dashboard report.
func (s *Server) handleVocabStats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			English string `json:"english"`
			German  string `json:"german"`
			Correct bool   `json:"correct"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.English == "" {
			s.sendError(w, "English word is required", http.StatusBadRequest)
			return
		}
		s.stats.Record(req.English, req.German, req.Correct)
		json.NewEncoder(w).Encode(map[string]bool{"success": true})

	case http.MethodGet:
		json.NewEncoder(w).Encode(s.stats.Snapshot())

	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/quiz/upload-image - store a quiz image and return its URL.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxSize)
	if err := r.ParseMultipartForm(s.cfg.Uploads.MaxSize); err != nil {
		s.sendError(w, "Image too large or malformed upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.sendError(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)

	if err := os.MkdirAll(s.cfg.Uploads.Dir, 0o755); err != nil {
		log.Printf("Failed to create upload directory: %v", err)
		s.sendError(w, "Upload failed", http.StatusInternalServerError)
		return
	}
	dst, err := os.Create(filepath.Join(s.cfg.Uploads.Dir, name))
	if err != nil {
		log.Printf("Failed to create upload file: %v", err)
		s.sendError(w, "Upload failed", http.StatusInternalServerError)
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		log.Printf("Failed to write upload file: %v", err)
		s.sendError(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"url":     "/uploads/" + name,
		"success": true,
	})
}

// POST /api/quiz/analyze-image - answer a free-form question about an image.
func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		StudentName string `json:"studentName"`
		Question    string `json:"question"`
		ImageURL    string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Question == "" || req.ImageURL == "" {
		s.sendError(w, "Question and image URL are required", http.StatusBadRequest)
		return
	}

	answer, err := s.gw.Describe(r.Context(), req.Question, req.ImageURL)
	if err != nil {
		log.Printf("Image analysis failed: %v", err)
		s.sendError(w, "Image analysis failed", http.StatusInternalServerError)
		return
	}

	// Keep the exchange on the running quiz so it lands in the archived
	// summary. Questions asked outside a run are answered but not recorded.
	if err := s.imageQuiz.RecordQA(req.StudentName, req.Question, answer); err != nil && err != quiz.ErrQuizNotActive {
		log.Printf("Failed to record image question: %v", err)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"answer":  answer,
		"success": true,
	})
}

// POST /api/quiz/start - begin an image quiz run.
func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ImageURL string   `json:"imageUrl"`
		Objects  []string `json:"objects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.imageQuiz.Start(req.ImageURL, req.Objects); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// POST /api/quiz/end - finish the current run and archive its summary.
func (s *Server) handleQuizEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := s.imageQuiz.End()
	if err != nil {
		s.sendError(w, "No quiz is running", http.StatusBadRequest)
		return
	}

	if s.archive != nil {
		if err := s.archive.SaveQuizRun(r.Context(), summary); err != nil {
			log.Printf("Failed to archive quiz run: %v", err)
		}
	}
	json.NewEncoder(w).Encode(summary)
}

// GET /api/quiz/status - report whether a quiz is running.
func (s *Server) handleQuizStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active, imageRef, targets := s.imageQuiz.Status()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"active":   active,
		"imageUrl": imageRef,
		"objects":  targets,
	})
}

// GET /api/quiz/runs - archived quiz-run summaries, newest first.
func (s *Server) handleQuizRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runs := []*quiz.RunSummary{}
	if s.archive != nil {
		listed, err := s.archive.ListQuizRuns(r.Context(), 0)
		if err != nil {
			log.Printf("Failed to list archived quiz runs: %v", err)
			s.sendError(w, "Failed to list quiz runs", http.StatusInternalServerError)
			return
		}
		if listed != nil {
			runs = listed
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"runs": runs})
}

// POST /api/quiz/check-object - grade one spoken or typed answer phrase.
func (s *Server) handleCheckObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		StudentName string `json:"studentName"`
		Answer      string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.StudentName == "" {
		s.sendError(w, "Student name is required", http.StatusBadRequest)
		return
	}

	result, err := s.imageQuiz.CheckAnswer(req.StudentName, req.Answer)
	if err != nil {
		s.sendError(w, "No quiz is running", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(result)
}

// POST /api/teacher/login - constant-time password check for dashboard access.
func (s *Server) handleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.Teacher.Password)) != 1 {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"sessionId": uuid.New().String(),
	})
}

// GET /api/sessions - live sessions, plus archived ones on ?archived=true.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("archived") == "true" && s.archive != nil {
			sessions, err := s.archive.ListSessions(r.Context(), 0)
			if err != nil {
				log.Printf("Failed to list archived sessions: %v", err)
				s.sendError(w, "Failed to list sessions", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"sessions": sessions})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"sessions": s.store.List()})

	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/sessions/{id} - GET details (live first, then archive), DELETE or
// POST {id}/end ends a live session.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")
	sessionID := parts[0]
	if sessionID == "" {
		s.sendError(w, "Session ID required", http.StatusBadRequest)
		return
	}

	if len(parts) > 1 && parts[1] == "end" {
		if r.Method != http.MethodPost {
			s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.endSession(w, r, sessionID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getSession(w, r, sessionID)
	case http.MethodDelete:
		s.endSession(w, r, sessionID)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if sess, err := s.store.Get(sessionID); err == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"session": sess})
		return
	}

	if s.archive != nil {
		if sess, err := s.archive.GetSession(r.Context(), sessionID); err == nil {
			json.NewEncoder(w).Encode(map[string]interface{}{"session": sess})
			return
		}
	}
	s.sendError(w, "Session not found", http.StatusNotFound)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess := s.store.Remove(sessionID)
	if sess == nil {
		s.sendError(w, "Session not found", http.StatusNotFound)
		return
	}

	if s.notifier != nil {
		s.notifier.Remove(sessionID)
	}
	if s.archive != nil && sess.Status != session.StatusAwaitingScenario {
		now := time.Now()
		sess.Status = session.StatusFinished
		sess.EndedAt = &now
		if err := s.archive.SaveSession(r.Context(), sess); err != nil {
			log.Printf("Failed to archive session %s: %v", sessionID, err)
		}
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Session ended successfully"})
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Database     string    `json:"database"`
	LiveSessions int       `json:"live_sessions"`
	Uptime       string    `json:"uptime"`
}

// GET /health - component health check.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if s.archive != nil {
		if err := s.archive.HealthCheck(ctx); err != nil {
			status = "unhealthy"
			dbStatus = fmt.Sprintf("error: %v", err)
		}
	} else {
		dbStatus = "disabled"
	}

	response := HealthResponse{
		Status:       status,
		Timestamp:    time.Now(),
		Database:     dbStatus,
		LiveSessions: s.store.Len(),
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
