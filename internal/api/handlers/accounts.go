package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"tellme/internal/core"
	"tellme/internal/sandbox"

	"github.com/gin-gonic/gin"
)

// AccountsHandler handles registration, login, refresh and profile requests
type AccountsHandler struct {
	store  *sandbox.Store
	issuer *sandbox.Issuer
	logger *slog.Logger
}

// NewAccountsHandler creates a new accounts handler
func NewAccountsHandler(store *sandbox.Store, issuer *sandbox.Issuer, logger *slog.Logger) *AccountsHandler {
	return &AccountsHandler{store: store, issuer: issuer, logger: logger}
}

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	State      string `json:"state"`
	Pincode    string `json:"pincode"`
	IsProvider bool   `json:"is_provider"`
}

// Register creates an account. Like the real backend it returns the user,
// not tokens; clients log in afterwards.
// POST /accounts/register/
func (h *AccountsHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.RegisterAccount(sandbox.Registration{
		Username:   req.Username,
		Email:      req.Email,
		Mobile:     req.Mobile,
		Password:   req.Password,
		Phone:      req.Phone,
		City:       req.City,
		State:      req.State,
		Pincode:    req.Pincode,
		IsProvider: req.IsProvider,
	})
	switch {
	case errors.Is(err, sandbox.ErrEmailTaken):
		abortField(c, http.StatusBadRequest, "email", "user with this email already exists.")
		return
	case errors.Is(err, sandbox.ErrMissingRegistration):
		abortField(c, http.StatusBadRequest, "password", "This field is required.")
		return
	case err != nil:
		h.logger.Error("Failed to register user", "component", "sandbox", "error", err)
		abortDetail(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	if user.IsProvider {
		h.logger.Info("Vendor registered", "component", "sandbox", "user_id", user.ID)
	}
	c.JSON(http.StatusCreated, profileJSON(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login issues an access/refresh pair
// POST /accounts/login/
func (h *AccountsHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		abortDetail(c, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	creds, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.logger.Error("Failed to issue tokens", "component", "sandbox", "user_id", user.ID, "error", err)
		abortDetail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	c.JSON(http.StatusOK, creds)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a refresh token for a new access token
// POST /accounts/refresh/
func (h *AccountsHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		abortField(c, http.StatusBadRequest, "refresh", "This field is required.")
		return
	}

	access, err := h.issuer.Refresh(req.Refresh)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordReset issues a reset token for a registered email
// POST /accounts/password-reset/
func (h *AccountsHandler) PasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		abortField(c, http.StatusBadRequest, "email", "This field is required.")
		return
	}

	if _, err := h.store.RequestPasswordReset(req.Email); err != nil {
		abortField(c, http.StatusBadRequest, "email", "There is no active user associated with this e-mail address.")
		return
	}
	h.logger.Info("Password reset requested", "component", "sandbox")
	c.JSON(http.StatusOK, gin.H{"detail": "Password reset e-mail has been sent."})
}

// GetProfile returns the signed-in user
// GET /accounts/profile/
func (h *AccountsHandler) GetProfile(c *gin.Context) {
	user, err := h.store.User(currentUser(c))
	if err != nil {
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.JSON(http.StatusOK, profileJSON(user))
}

type profileRequest struct {
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Pincode  *string `json:"pincode"`
}

// UpdateProfile applies the fields present in the body
// PUT /accounts/profile/
func (h *AccountsHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.UpdateProfile(currentUser(c), sandbox.ProfileUpdate{
		Username: req.Username,
		Phone:    req.Phone,
		City:     req.City,
		State:    req.State,
		Pincode:  req.Pincode,
	})
	if err != nil {
		abortDetail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.JSON(http.StatusOK, profileJSON(user))
}

func profileJSON(u *sandbox.User) gin.H {
	return gin.H{
		"id":          core.ID(formatPK(u.ID)),
		"username":    u.Username,
		"email":       u.Email,
		"phone":       u.Phone,
		"city":        u.City,
		"state":       u.State,
		"pincode":     u.Pincode,
		"is_provider": u.IsProvider,
	}
}
