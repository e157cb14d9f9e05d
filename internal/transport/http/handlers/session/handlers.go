package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reviewcall/internal/domain/call"
	"reviewcall/internal/domain/report"
	sessiondomain "reviewcall/internal/domain/session"
	"reviewcall/internal/transport/http/api"
	"reviewcall/internal/transport/http/middleware"
)

type Handler struct {
	manager *call.Manager
	store   sessiondomain.StoreAPI
}

func NewHandler(manager *call.Manager, store sessiondomain.StoreAPI) *Handler {
	return &Handler{manager: manager, store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.HandleStart)
	r.Post("/sessions/{sessionID}/events", h.HandleEvents)
	r.Post("/sessions/{sessionID}/end", h.HandleEnd)
	r.Get("/sessions/{sessionID}/record", h.HandleRecord)
	r.Get("/sessions/{sessionID}/transcript", h.HandleTranscript)
	r.Get("/sessions/{sessionID}/report", h.HandleReport)
	r.Get("/sessions/{sessionID}/report.pdf", h.HandleReportPDF)
}

type startRequest struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	Consent   bool   `json:"consent"`
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	Record    any    `json:"record"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body", reqID)
		return
	}
	if !req.Consent {
		api.Fail(w, http.StatusBadRequest, "consent_required", "recording consent is required to start a session", reqID)
		return
	}
	token, err := decodeSessionToken(req.Token)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_token", err.Error(), reqID)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := h.manager.Start(call.StartParams{
		SessionID:    sessionID,
		EmployeeID:   token.EmployeeID,
		EmployeeName: token.EmployeeName,
		ManagerID:    token.ManagerID,
		ManagerName:  token.ManagerName,
		View:         token.View,
	})
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "start_failed", err.Error(), reqID)
		return
	}

	record, _, err := sess.Cache.Fetch(r.Context(), true)
	if err != nil {
		// The session is still usable; the first tool call retries the fetch.
		slog.Warn("session preload failed", "session", sessionID, "err", err)
	}

	api.Created(w, startResponse{SessionID: sessionID, Record: record}, reqID)
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	sess, ok := h.manager.Get(sessionID)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown session", reqID)
		return
	}

	var event call.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid event payload", reqID)
		return
	}

	sess.Engine.HandleEvent(r.Context(), event)
	api.Success(w, sess.Emitter.Drain(), reqID)
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if !h.manager.End(sessionID) {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown session", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "ending"}, reqID)
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sess, ok := h.manager.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown session", reqID)
		return
	}

	record, err := sess.Cache.Record(r.Context())
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "backend_unavailable", "review record unavailable", reqID)
		return
	}
	api.Success(w, record, reqID)
}

// HandleTranscript serves the archived transcript so it stays readable
// after the session is retired. Live partial lines are not included.
func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := h.store.ListTranscript(r.Context(), sessionID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal", "transcript unavailable", reqID)
		return
	}
	api.Success(w, entries, reqID)
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	view, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	api.Success(w, view, reqID)
}

func (h *Handler) HandleReportPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	view, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	data, err := report.RenderPDF(view)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal", "report rendering failed", reqID)
		return
	}
	api.Binary(w, "application/pdf", "performance-review.pdf", data)
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (report.View, bool) {
	reqID := middleware.GetRequestID(r.Context())
	sess, ok := h.manager.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown session", reqID)
		return report.View{}, false
	}
	record, err := sess.Cache.Record(r.Context())
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "backend_unavailable", "review record unavailable", reqID)
		return report.View{}, false
	}
	return report.Build(record, time.Now()), true
}
