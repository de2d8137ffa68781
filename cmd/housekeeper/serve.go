package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/application/handlers"
	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long:  "Exposes audit, plan, apply, rollback and ignore-list management over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured one)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		if addr == "" {
			addr = d.Config.Serve.Addr
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           newAPIMux(d),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Printf("Listening on %s\n", addr)

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})
}

func newAPIMux(d *Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /audit", func(w http.ResponseWriter, r *http.Request) {
		report, err := d.Audit.Handle(r.Context())
		respond(w, report, err)
	})
	mux.HandleFunc("POST /plan", func(w http.ResponseWriter, r *http.Request) {
		plan, err := d.Plan.Handle(r.Context())
		respond(w, plan, err)
	})
	mux.HandleFunc("GET /plan", func(w http.ResponseWriter, r *http.Request) {
		plan, err := d.Plan.HandleGet(r.Context(), r.URL.Query().Get("id"))
		respond(w, plan, err)
	})
	mux.HandleFunc("POST /apply", func(w http.ResponseWriter, r *http.Request) {
		var opts handlers.ApplyOptions
		if !decodeJSON(w, r, &opts) {
			return
		}
		batch, err := d.Apply.Handle(r.Context(), opts)
		respond(w, batch, err)
	})
	mux.HandleFunc("GET /rollback", func(w http.ResponseWriter, r *http.Request) {
		batches, err := d.Rollback.HandleList(r.Context(), 20)
		respond(w, batches, err)
	})
	mux.HandleFunc("POST /rollback", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BatchID string `json:"batch_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := d.Rollback.Handle(r.Context(), req.BatchID)
		respond(w, result, err)
	})
	mux.HandleFunc("GET /ignore", func(w http.ResponseWriter, r *http.Request) {
		fingerprints, err := d.Ignore.HandleList(r.Context())
		respond(w, fingerprints, err)
	})
	mux.HandleFunc("POST /ignore", func(w http.ResponseWriter, r *http.Request) {
		fingerprints, ok := decodeFingerprints(w, r)
		if !ok {
			return
		}
		respondOK(w, d.Ignore.HandleAdd(r.Context(), fingerprints))
	})
	mux.HandleFunc("DELETE /ignore", func(w http.ResponseWriter, r *http.Request) {
		fingerprints, ok := decodeFingerprints(w, r)
		if !ok {
			return
		}
		respondOK(w, d.Ignore.HandleRemove(r.Context(), fingerprints))
	})
	mux.HandleFunc("POST /ignore/clear", func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, d.Ignore.HandleClear(r.Context()))
	})
	return mux
}

func decodeFingerprints(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req struct {
		Fingerprints []string `json:"fingerprints"`
	}
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	return req.Fingerprints, true
}

// decodeJSON fills out from the request body; an empty body leaves the zero
// value in place.
func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respond writes a handler result, mapping not-found errors to 404.
func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, entities.ErrPlanNotFound) || errors.Is(err, entities.ErrBatchNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func respondOK(w http.ResponseWriter, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
