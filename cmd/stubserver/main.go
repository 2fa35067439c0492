// cmd/stubserver/main.go
//
// stubserver is an in-memory development backend that speaks the same wire
// contract as the real remote store: reference-graph envelopes, PascalCase
// field names, JWT login and websocket push. It exists so the engine can be
// exercised end to end without the real backend.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Danhnam1/Audit-System-sub002/config"
)

func main() {
	config.LoadConfig()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	srv := &server{
		store: newMemStore(),
		hub:   newHub(log),
		log:   log,
	}

	router := mux.NewRouter()
	registerRoutes(router, srv)

	// Global middlewares (order matters)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))
	router.Use(corsMiddleware)

	httpSrv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("stub server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func registerRoutes(r *mux.Router, s *server) {
	r.HandleFunc("/health", s.health).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/auth/login", s.login).Methods("POST", "OPTIONS")
	r.HandleFunc("/ws", s.hub.serveWS)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/findings", s.listFindings).Methods("GET", "OPTIONS")
	api.HandleFunc("/findings", s.createFinding).Methods("POST", "OPTIONS")
	api.HandleFunc("/findings/{id}", s.getFinding).Methods("GET", "OPTIONS")
	api.HandleFunc("/findings/{id}/close", s.closeFinding).Methods("POST", "OPTIONS")
	api.HandleFunc("/findings/{id}/archive", s.archiveFinding).Methods("POST", "OPTIONS")
	api.HandleFunc("/findings/{id}/rootcauses", s.listRootCauses).Methods("GET", "OPTIONS")

	api.HandleFunc("/rootcauses", s.createRootCause).Methods("POST", "OPTIONS")
	api.HandleFunc("/rootcauses/{id}", s.updateRootCause).Methods("PUT", "OPTIONS")
	api.HandleFunc("/rootcauses/{id}", s.deleteRootCause).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/rootcauses/{id}/approve", s.reviewRootCause(true)).Methods("POST", "OPTIONS")
	api.HandleFunc("/rootcauses/{id}/reject", s.reviewRootCause(false)).Methods("POST", "OPTIONS")

	api.HandleFunc("/actions", s.listActions).Methods("GET", "OPTIONS")
	api.HandleFunc("/actions", s.createAction).Methods("POST", "OPTIONS")
	api.HandleFunc("/actions/{id}", s.getAction).Methods("GET", "OPTIONS")
	api.HandleFunc("/actions/{id}/progress", s.updateActionProgress).Methods("PUT", "OPTIONS")
	api.HandleFunc("/actions/{id}/status", s.updateActionStatus).Methods("PUT", "OPTIONS")
	api.HandleFunc("/actions/{id}/verify", s.reviewAction("Verified", false)).Methods("POST", "OPTIONS")
	api.HandleFunc("/actions/{id}/return", s.reviewAction("Rejected", true)).Methods("POST", "OPTIONS")
	api.HandleFunc("/actions/{id}/approve", s.reviewAction("Approved", false)).Methods("POST", "OPTIONS")
	api.HandleFunc("/actions/{id}/reject", s.reviewAction("Rejected", true)).Methods("POST", "OPTIONS")

	api.HandleFunc("/attachments", s.listAttachments).Methods("GET", "OPTIONS")
	api.HandleFunc("/attachments", s.uploadAttachment).Methods("POST", "OPTIONS")

	api.HandleFunc("/dashboard", s.dashboard).Methods("GET", "OPTIONS")

	api.HandleFunc("/masterdata/severities", s.listSeverities).Methods("GET", "OPTIONS")
	api.HandleFunc("/masterdata/departments", s.listDepartments).Methods("GET", "OPTIONS")
}
