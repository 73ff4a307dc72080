// Package api adapts the peripheral contract to HTTP for the kiosk host.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/tdonkor/payterm/internal/audit"
	"github.com/tdonkor/payterm/internal/domain"
)

// Peripheral is the inbound contract the engine implements for the host.
type Peripheral interface {
	Init(ctx context.Context, cfg *domain.RuntimeConfiguration) bool
	Test() bool
	Pay(ctx context.Context, amount int64) domain.PaymentOutcome
	Unload() bool
	UpdateSettings(doc []byte) bool
	DescribeSettings() ([]byte, error)
	Defaults() domain.RuntimeConfiguration
}

// Lifecycle is the supervisor surface the host drives around Init/Unload.
type Lifecycle interface {
	Initialize(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// RecordLister reads back persisted transaction attempts for diagnostics.
type RecordLister interface {
	List(f audit.Filter) ([]audit.Record, error)
}

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	peripheral Peripheral
	lifecycle  Lifecycle
	records    RecordLister
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- InitTerminal ---

// InitTerminal runs the supervision sequence and then the engine handshake.
// The optional JSON body overrides the stored default configuration.
func (h *Handlers) InitTerminal(w http.ResponseWriter, r *http.Request) {
	cfg := h.peripheral.Defaults()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid configuration: "+err.Error())
			return
		}
	}

	if err := h.lifecycle.Initialize(r.Context()); err != nil {
		log.Printf("[api] driver initialization failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"ok":     false,
			"result": domain.ResultSupervisionError,
		})
		return
	}

	ok := h.peripheral.Init(r.Context(), &cfg)
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]bool{"ok": ok})
}

// --- TestTerminal ---

func (h *Handlers) TestTerminal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": h.peripheral.Test()})
}

// --- PayTerminal ---

func (h *Handlers) PayTerminal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	out := h.peripheral.Pay(r.Context(), req.Amount)

	status := http.StatusOK
	if out.Result == domain.ResultValidationError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{
		"ok":      out.Result == domain.ResultOK,
		"outcome": out,
	})
}

// --- UnloadTerminal ---

func (h *Handlers) UnloadTerminal(w http.ResponseWriter, r *http.Request) {
	ok := h.peripheral.Unload()
	if err := h.lifecycle.Teardown(r.Context()); err != nil {
		log.Printf("[api] teardown: %v", err)
		ok = false
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

// --- UpdateSettings ---

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	ok := h.peripheral.UpdateSettings(doc)
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]bool{"ok": ok})
}

// --- SettingsSchema ---

func (h *Handlers) SettingsSchema(w http.ResponseWriter, r *http.Request) {
	data, err := h.peripheral.DescribeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[api] write schema: %v", err)
	}
}

// --- ListTransactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{Outcome: q.Get("outcome")}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	records, err := h.records.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"count":        len(records),
	})
}
