// Package app wires the components together and owns the HTTP server
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/WIlski54/dialoglab-english-coach/internal/api"
	"github.com/WIlski54/dialoglab-english-coach/internal/config"
	"github.com/WIlski54/dialoglab-english-coach/internal/conversation"
	"github.com/WIlski54/dialoglab-english-coach/internal/database"
	"github.com/WIlski54/dialoglab-english-coach/internal/gateway"
	"github.com/WIlski54/dialoglab-english-coach/internal/quiz"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
	"github.com/WIlski54/dialoglab-english-coach/internal/vocab"
	"github.com/WIlski54/dialoglab-english-coach/internal/websocket"
)

// Application coordinates all system components.
type Application struct {
	config     *config.Config
	archive    *database.Archive
	store      *session.Store
	httpServer *http.Server
}

// NewApplication builds the component graph in dependency order:
// Archive → Store → Gateway → Engine → Quiz → Broadcaster → Handlers → HTTP.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Archive database (foundation layer).
	archive, err := database.NewArchive(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive database: %w", err)
	}

	// STEP 2: Live session store and inference gateway.
	store := session.NewStore()
	gw, err := gateway.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		_ = archive.Close()
		return nil, fmt.Errorf("failed to initialize inference gateway: %w", err)
	}

	// STEP 3: Conversation engine.
	engine := conversation.NewEngine(store, gw)

	// STEP 4: Quiz and vocabulary trainer state.
	imageQuiz := quiz.NewImageQuiz()
	stats := vocab.NewStats()

	// STEP 5: Observer broadcaster and WebSocket handlers.
	broadcaster := websocket.NewBroadcaster()
	studentHandler := websocket.NewStudentHandler(store, engine, broadcaster, archive, cfg.HTTP.AllowedOrigins)
	observerHandler := websocket.NewObserverHandler(store, broadcaster, cfg.HTTP.AllowedOrigins)

	// STEP 6: HTTP API server.
	apiServer := api.NewServer(gw, store, stats, imageQuiz, archive, broadcaster, cfg)

	// STEP 7: HTTP server with all endpoints.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", studentHandler.HandleWebSocket)
	mux.HandleFunc("/ws-teacher", observerHandler.HandleWebSocket)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		archive:    archive,
		store:      store,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. It returns once the listener is up or startup failed.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting DialogLab on %s", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.archive.Close()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("DialogLab started successfully")
		return nil
	case <-ctx.Done():
		_ = app.archive.Close()
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP first so no new sessions
// arrive, then the archive once in-flight writes have drained.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down DialogLab")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.archive.Close(); err != nil {
		log.Printf("Archive shutdown error: %v", err)
	}

	log.Printf("DialogLab shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
