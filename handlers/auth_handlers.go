// handlers/auth_handlers.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"portfolio/api/middleware"
	"portfolio/api/models"
	"portfolio/api/store"
	"portfolio/api/utils"
)

const jwtCookieName = "jwt_token"

type AuthHandlers struct {
	UserStore  *store.UserStore
	JWTManager *utils.JWTManager
}

func NewAuthHandlers(userStore *store.UserStore, jwtManager *utils.JWTManager) *AuthHandlers {
	return &AuthHandlers{UserStore: userStore, JWTManager: jwtManager}
}

// Signup registers a regular (non-admin) user.
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	// 1. Check if the email is already registered.
	_, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		slog.Error("database error during signup email check", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check user existence"})
		return
	}

	// 2. Hash the password.
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	// 3. Store the user.
	user, err := h.UserStore.CreateUser(c.Request.Context(), req.Email, hashedPassword, false)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		slog.Error("failed to create user", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_email": user.Email})
}

// Login checks credentials and issues a JWT, both as an HTTP-only cookie and
// in the response body.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			slog.Error("database error during login", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		slog.Info("login failed: password mismatch", "email", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.JWTManager.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		jwtCookieName,
		tokenString,
		int(h.JWTManager.TTL().Seconds()),
		"/",
		"",
		false,
		true,
	)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
		"is_admin":   user.IsAdmin,
		"token":      tokenString,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	// MaxAge -1 expires the cookie immediately.
	c.SetCookie(
		jwtCookieName,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Profile returns the identity established by AuthRequired.
func (h *AuthHandlers) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.GetInt(middleware.ContextUserID),
		"user_email": c.GetString(middleware.ContextUserEmail),
		"is_admin":   c.GetBool(middleware.ContextIsAdmin),
		"ip_address": c.ClientIP(),
	})
}
