package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pair-lab/domain"
	"pair-lab/observability"
	"pair-lab/repositories"
	"pair-lab/services"
)

type StatsProvider func() observability.MonitoringStats

// StartDebugServer exposes the engine's metrics, the session audit
// trail, and a local ops surface over HTTP. The real inbound protocol
// belongs to the gateway collaborator; these endpoints exist for
// scraping, the viewer CLI, and manual smoke tests:
//
//	GET    /stats            current monitoring snapshot (JSON)
//	GET    /archive?limit=N  most recent ended sessions (JSON)
//	GET    /healthz          liveness probe
//	POST   /queue/{id}       request a pairing for participant id
//	DELETE /queue/{id}       cancel the search
//	POST   /session/{id}/end end the participant's session
//	POST   /message/{id}     relay the request body to the partner
//
// It returns immediately; the server runs until the process exits.
func StartDebugServer(log *slog.Logger, port int, stats StatsProvider, archive repositories.IArchiveRepository, svc services.IPairingService) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, stats())
	})

	mux.HandleFunc("GET /archive", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		records, err := archive.ListRecent(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /queue/{id}", func(w http.ResponseWriter, r *http.Request) {
		pid := domain.ParticipantID(r.PathValue("id"))
		if err := svc.RequestPairing(r.Context(), pid); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("DELETE /queue/{id}", func(w http.ResponseWriter, r *http.Request) {
		svc.CancelSearch(r.Context(), domain.ParticipantID(r.PathValue("id")))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /session/{id}/end", func(w http.ResponseWriter, r *http.Request) {
		pid := domain.ParticipantID(r.PathValue("id"))
		if err := svc.EndSession(r.Context(), pid); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /message/{id}", func(w http.ResponseWriter, r *http.Request) {
		pid := domain.ParticipantID(r.PathValue("id"))
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := svc.SendMessage(r.Context(), pid, string(body)); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Debug server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Debug server stopped", "err", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
