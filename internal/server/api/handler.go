// Package api exposes the session service over HTTP. Handlers only adapt
// requests and responses; every decision lives in the service layer.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/logging"
	"github.com/avolkov/accountd/internal/server/config"
	"github.com/avolkov/accountd/internal/server/repositories/users"
	"github.com/avolkov/accountd/internal/server/services"
)

type Handler struct {
	users         *services.UserService
	store         users.Repository
	log           logging.Logger
	secureCookies bool
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewHandler(us *services.UserService, store users.Repository, log logging.Logger, cfg *config.Config) *Handler {
	return &Handler{
		users:         us,
		store:         store,
		log:           log.With("module", "api"),
		secureCookies: cfg.SecureCookies,
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
	}
}

// Router builds the Gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.health)

	v1 := r.Group("/api/v1/users")
	v1.POST("/register", h.register)
	v1.POST("/login", h.login)
	v1.POST("/refresh-token", h.refresh)

	secured := v1.Group("")
	secured.Use(h.requireAccessToken())
	secured.POST("/logout", h.logout)
	secured.POST("/update-password", h.updatePassword)
	secured.GET("/current-user", h.currentUser)
	secured.POST("/update-user", h.updateUser)

	return r
}

// writeError maps the service error taxonomy onto HTTP statuses. Internal
// causes were already logged at the failure site; clients get a generic
// message.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, common.ErrorInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.AccessTokenCookieName, pair.AccessToken, int(h.accessTTL.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(common.RefreshTokenCookieName, pair.RefreshToken, int(h.refreshTTL.Seconds()), "/", "", h.secureCookies, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.AccessTokenCookieName, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/", "", h.secureCookies, true)
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		IsAdmin      bool   `json:"isAdmin"`
		ReferralCode string `json:"referralCode"`
		ReferredBy   string `json:"referredBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		IsAdmin:      req.IsAdmin,
		ReferralCode: req.ReferralCode,
		ReferredBy:   req.ReferredBy,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user created successfully", "user": user})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, pair, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"message":      "login successful",
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	presented, err := c.Cookie(common.RefreshTokenCookieName)
	if err != nil || presented == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		// body fallback for clients that do not use cookies
		_ = c.ShouldBindJSON(&req)
		presented = req.RefreshToken
	}

	pair, err := h.users.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) logout(c *gin.Context) {
	claims := claimsFromContext(c)

	if err := h.users.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.writeError(c, err)
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) updatePassword(c *gin.Context) {
	claims := claimsFromContext(c)

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(c, err)
		return
	}

	// the stored refresh token is gone; drop the cookies too
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) currentUser(c *gin.Context) {
	claims := claimsFromContext(c)

	user, err := h.users.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) updateUser(c *gin.Context) {
	claims := claimsFromContext(c)

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.UpdateAccount(c.Request.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account updated", "user": user})
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Error(c.Request.Context(), "store ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
