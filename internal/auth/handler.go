package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/shared"
)

// Handler manages authentication endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	tokens   *TokenIssuer
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, tokens *TokenIssuer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		csrf:     csrf,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Post("/token", h.issueToken)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type actorResponse struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	NameEn        string   `json:"nameEn"`
	NameAr        string   `json:"nameAr"`
	RoleID        string   `json:"roleId,omitempty"`
	RoleNameEn    string   `json:"roleNameEn,omitempty"`
	HasFullAccess bool     `json:"hasFullAccess"`
	IsSuperAdmin  bool     `json:"isSuperAdmin"`
	Permissions   []string `json:"permissions"`
	CSRFToken     string   `json:"csrfToken,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actor, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(shared.ErrInvalidCredentials))
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session middleware")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(actor.ID)
	if err := h.service.RegisterSession(r.Context(), sess.ID, actor.ID, time.Now().Add(h.sessions.TTL()), clientIP(r), r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
	}

	resp := h.actorResponse(actor)
	if token, err := h.csrf.EnsureToken(r.Context(), sess); err == nil {
		resp.CSRFToken = token
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if userID := sess.User(); userID != "" {
			_ = h.service.Invalidate(r.Context(), userID)
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// me returns the current actor with a freshly resolved permission set. This is
// the pull-based refresh point for clients noticing stale permissions.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	actor, err := h.service.RefreshActor(r.Context(), sess.User())
	if err != nil {
		h.logger.Error("refresh actor", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session no longer valid")
		return
	}
	httpx.JSON(w, http.StatusOK, h.actorResponse(actor))
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	token, err := h.tokens.Issue(sess.User(), time.Now())
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) actorResponse(actor *authz.Actor) actorResponse {
	resp := actorResponse{
		ID:            actor.ID,
		Email:         actor.Email,
		NameEn:        actor.NameEn,
		NameAr:        actor.NameAr,
		HasFullAccess: actor.HasFullAccess,
		Permissions:   actor.EffectivePermissionIDs(),
	}
	if actor.Role != nil {
		resp.RoleID = actor.Role.ID
		resp.RoleNameEn = actor.Role.NameEn
		resp.IsSuperAdmin = actor.Role.IsSuperAdmin
	}
	return resp
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
