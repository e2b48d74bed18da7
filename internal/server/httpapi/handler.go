package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/credential"
	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/limiter"
)

// envelope is the uniform response wrapper of this API.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Success: true, Data: data})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, envelope{Success: false, Error: msg})
}

// The error vocabulary of this API is part of its contract: clients map
// these strings back onto typed errors.
const (
	msgDuplicateUsername = "username already exists"
	msgDuplicateEmail    = "email already exists"
	msgNotFound          = "user not found"
	msgLoginFailed       = "login failed"
	msgTooManyAttempts   = "too many attempts"
	msgInternal          = "internal error"
)

// Handler bundles the /users HTTP handlers.
type Handler struct {
	store  UserStore
	verify credential.Verifier
	lim    limiter.Limiter
	log    *zap.Logger
}

// NewHandler constructs the handler layer. A nil limiter disables login
// rate limiting.
func NewHandler(store UserStore, verify credential.Verifier, lim limiter.Limiter, log *zap.Logger) *Handler {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, verify: verify, lim: lim, log: log}
}

func (h *Handler) storeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fail(c, http.StatusNotFound, msgNotFound)
	case errors.Is(err, errs.ErrDuplicateUsername):
		return fail(c, http.StatusBadRequest, msgDuplicateUsername)
	case errors.Is(err, errs.ErrDuplicateEmail):
		return fail(c, http.StatusBadRequest, msgDuplicateEmail)
	default:
		h.log.Error("store error", zap.Error(err), zap.String("path", c.Path()))
		return fail(c, http.StatusInternalServerError, msgInternal)
	}
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.store.List(c.Request().Context())
	if err != nil {
		return h.storeErr(c, err)
	}
	if users == nil {
		users = []User{}
	}
	return ok(c, http.StatusOK, users)
}

// GetUser handles GET /users/:id.
func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.storeErr(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// GetUserByUsername handles GET /users/username/:username.
func (h *Handler) GetUserByUsername(c echo.Context) error {
	u, err := h.store.GetByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return h.storeErr(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed payload")
	}
	if req.Username == "" {
		return fail(c, http.StatusBadRequest, "username is required")
	}
	if req.UserType == "" {
		req.UserType = "regular"
	}

	u := &User{
		ID:       req.ID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
		IsActive: true,
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.CreatedAt != nil {
		u.CreatedAt = *req.CreatedAt
	}
	if err := h.store.Create(c.Request().Context(), u); err != nil {
		return h.storeErr(c, err)
	}
	return ok(c, http.StatusCreated, u)
}

// UpdateUser handles PUT /users/:id.
func (h *Handler) UpdateUser(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed payload")
	}
	u, err := h.store.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.storeErr(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/:id.
func (h *Handler) DeleteUser(c echo.Context) error {
	deleted, err := h.store.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.storeErr(c, err)
	}
	if !deleted {
		return fail(c, http.StatusNotFound, msgNotFound)
	}
	return ok(c, http.StatusOK, true)
}

// ValidateUser handles POST /users/validate. Unknown user, wrong credential
// and inactive account are indistinguishable to the caller.
func (h *Handler) ValidateUser(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed payload")
	}
	ctx := c.Request().Context()
	ipHash := limiter.HashIP(c.RealIP())

	allowed, _, err := h.lim.Allow(ctx, req.Username, ipHash)
	if err != nil {
		h.log.Warn("limiter unavailable", zap.Error(err))
		allowed = true // fail open: limiting is protection, not availability
	}
	if !allowed {
		return fail(c, http.StatusTooManyRequests, msgTooManyAttempts)
	}

	u, err := h.store.GetByUsername(ctx, req.Username)
	if err != nil || !u.IsActive || !h.verify.Verify(req.Password, u.Password) {
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return h.storeErr(c, err)
		}
		if blocked, _, ferr := h.lim.Failure(ctx, req.Username, ipHash); ferr == nil && blocked {
			return fail(c, http.StatusTooManyRequests, msgTooManyAttempts)
		}
		return fail(c, http.StatusUnauthorized, msgLoginFailed)
	}

	_ = h.lim.Success(ctx, req.Username, ipHash)
	return ok(c, http.StatusOK, u)
}

// GetStats handles GET /users/stats.
func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return h.storeErr(c, err)
	}
	return ok(c, http.StatusOK, st)
}
