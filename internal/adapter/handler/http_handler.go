package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/stock-sync/internal/adapter/hub"
	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/internal/core/service"
	"github.com/rl1809/stock-sync/internal/port"
	"github.com/rl1809/stock-sync/pkg/api"
)

type HTTPHandler struct {
	svc     *service.SyncService
	hub     *hub.Hub
	logger  *slog.Logger
	started time.Time
}

func NewHTTPHandler(svc *service.SyncService, h *hub.Hub, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:     svc,
		hub:     h,
		logger:  logger,
		started: time.Now(),
	}
}

// Routes builds the router: open health endpoint, everything else
// behind bearer identity. Writes additionally require a staff or
// manager role.
func (h *HTTPHandler) Routes(jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(Recovery(h.logger))
	r.Use(RequestLogging(h.logger))

	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.logger, jwtSecret))

		r.Get("/ws", h.ServeWS)

		r.Route("/api", func(r chi.Router) {
			r.Post("/adjustments", h.SubmitAdjustment)
			r.Post("/replay", h.Replay)
			r.Get("/stock/{locationID}", h.ListStock)
			r.Get("/stock/{locationID}/{itemID}", h.GetStock)
			r.Get("/ledger/{locationID}/{itemID}", h.History)
			r.Get("/locations/{locationID}/alerts", h.Alerts)
			r.Get("/stats", h.Stats)
		})
	})

	return r
}

func (h *HTTPHandler) SubmitAdjustment(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if !claims.CanWrite() {
		writeError(w, http.StatusForbidden, "forbidden", "role may not submit adjustments")
		return
	}

	var req api.AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	adj, err := req.ToDomain(claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	tx, err := h.svc.Submit(r.Context(), adj)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, adjustmentResponse("committed", tx))
	case errors.Is(err, domain.ErrDuplicateSubmission):
		writeJSON(w, http.StatusOK, adjustmentResponse("duplicate", tx))
	default:
		h.writeDomainError(w, r, err)
	}
}

func (h *HTTPHandler) Replay(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if !claims.CanWrite() {
		writeError(w, http.StatusForbidden, "forbidden", "role may not replay adjustments")
		return
	}

	var req api.ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "client_id is required")
		return
	}

	batch, err := req.ToDomain(claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.svc.Replay(r.Context(), batch)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ReplayResponseFromDomain(result))
}

func (h *HTTPHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListStock(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]*api.Stock, 0, len(recs))
	for _, rec := range recs {
		out = append(out, api.StockFromDomain(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	key := domain.StockKey{
		ItemID:     chi.URLParam(r, "itemID"),
		LocationID: chi.URLParam(r, "locationID"),
	}
	rec, err := h.svc.GetStock(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StockFromDomain(rec))
}

func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	key := domain.StockKey{
		ItemID:     chi.URLParam(r, "itemID"),
		LocationID: chi.URLParam(r, "locationID"),
	}
	since := queryInt64(r, "since", 0)
	limit := int(queryInt64(r, "limit", 0))

	txs, err := h.svc.History(r.Context(), key, since, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]*api.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, api.TransactionFromDomain(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.LowStock(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]*api.Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, api.AlertFromDomain(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r, ClaimsFrom(r.Context()).UserID)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hub":            h.hub.Stats(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func adjustmentResponse(status string, tx *domain.Transaction) api.AdjustmentResponse {
	return api.AdjustmentResponse{
		Status:            status,
		TransactionID:     tx.ID,
		Sequence:          tx.Seq,
		ResultingQuantity: tx.ResultingQty,
		ResultingVersion:  tx.ResultingVer,
		ServerTime:        tx.ServerTime,
	}
}

// writeDomainError maps the error taxonomy onto HTTP. Rejections are the
// caller's problem; only genuinely internal failures log at error level.
func (h *HTTPHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		// transient: resubmitting the same idempotency key is safe
		writeError(w, http.StatusServiceUnavailable, "concurrent_modification", err.Error())
	case errors.Is(err, port.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func queryInt64(r *http.Request, name string, def int64) int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}
