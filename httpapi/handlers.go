// Package httpapi exposes the authentication flows over HTTP. Routes under
// /auth mirror the platform API contract; protected routes run behind the
// middleware guard.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oru-platform/authcore"
	"github.com/oru-platform/authcore/middleware"
)

// Handler serves the /auth route group.
type Handler struct {
	svc    *authcore.Service
	guard  *middleware.Guard
	logger *slog.Logger
}

// New wires a Handler around the service. A nil logger discards.
func New(svc *authcore.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		svc:    svc,
		guard:  middleware.NewGuard(svc, logger),
		logger: logger,
	}
}

// Routes registers the auth endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/mfa/verify", h.verifyMFA)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("GET /health", h.health)

	mux.Handle("POST /auth/logout", h.guard.Authenticate(http.HandlerFunc(h.logout)))
	mux.Handle("GET /auth/me", h.guard.Authenticate(http.HandlerFunc(h.me)))
	mux.Handle("POST /auth/mfa/setup", h.guard.Authenticate(http.HandlerFunc(h.setupMFA)))
	mux.Handle("POST /auth/mfa/confirm", h.guard.Authenticate(http.HandlerFunc(h.confirmMFA)))
}

// Protect wraps handler with authentication plus a permission check, for
// registering application routes outside the auth group.
func (h *Handler) Protect(permission string, handler http.Handler) http.Handler {
	return h.guard.Authenticate(h.guard.RequirePermission(permission, handler))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenantId"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, req.TenantID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type verifyMFARequest struct {
	UserID   string `json:"userId"`
	MFAToken string `json:"mfaToken"`
	MFACode  string `json:"mfaCode"`
}

func (h *Handler) verifyMFA(w http.ResponseWriter, r *http.Request) {
	var req verifyMFARequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyMFA(r.Context(), req.UserID, req.MFAToken, req.MFACode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	accessToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), claims.SessionID, claims.UserID, claims.TenantID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          claims.UserID,
		"tenantId":    claims.TenantID,
		"email":       claims.Email,
		"role":        claims.Role,
		"permissions": claims.Permissions,
	})
}

func (h *Handler) setupMFA(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	setup, err := h.svc.SetupMFA(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

type confirmMFARequest struct {
	Code string `json:"code"`
}

func (h *Handler) confirmMFA(w http.ResponseWriter, r *http.Request) {
	var req confirmMFARequest
	if !h.decode(w, r, &req) {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if err := h.svc.ConfirmMFA(r.Context(), claims.UserID, req.Code); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.svc.Ping(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"latency": latency.String(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the service's sentinel errors onto the HTTP
// contract. Anything unrecognized is an internal failure and is logged but
// not echoed.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authcore.ErrTenantRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authcore.ErrTenantNotFound),
		errors.Is(err, authcore.ErrMFASetupExpired):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrAccountInactive),
		errors.Is(err, authcore.ErrInvalidToken),
		errors.Is(err, authcore.ErrInvalidRefresh),
		errors.Is(err, authcore.ErrSessionExpired),
		errors.Is(err, authcore.ErrMFAInvalidCode),
		errors.Is(err, authcore.ErrMFANotConfigured):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authcore.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "Insufficient permissions")
	default:
		h.logger.Error("auth handler failure", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
