package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/memohai/mbot/internal/auth"
	"github.com/memohai/mbot/internal/config"
)

const defaultAdminPassword = "change-your-password-here"

// AuthHandler exchanges the configured admin credentials for a JWT.
type AuthHandler struct {
	logger       *slog.Logger
	username     string
	passwordHash []byte
	jwtSecret    string
	expiresIn    time.Duration
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// NewAuthHandler hashes the configured admin password once at startup.
func NewAuthHandler(log *slog.Logger, cfg config.Config) (*AuthHandler, error) {
	if log == nil {
		log = slog.Default()
	}
	h := &AuthHandler{
		logger:    log.With(slog.String("handler", "auth")),
		username:  strings.TrimSpace(cfg.Admin.Username),
		jwtSecret: cfg.Auth.JWTSecret,
		expiresIn: cfg.Auth.ExpiresIn(),
	}
	password := strings.TrimSpace(cfg.Admin.Password)
	if h.username == "" || password == "" {
		h.logger.Warn("admin username/password not configured; login disabled")
		return h, nil
	}
	if password == defaultAdminPassword {
		h.logger.Warn("admin password uses default placeholder; please update config.toml")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	h.passwordHash = hashed
	return h, nil
}

func (h *AuthHandler) Register(e *echo.Echo) {
	group := e.Group("/auth")
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
}

// Login godoc
// @Summary Admin login
// @Tags auth
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if len(h.passwordHash) == 0 || strings.TrimSpace(h.jwtSecret) == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Username)), []byte(h.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		h.logger.Warn("login rejected", slog.String("username", req.Username), slog.String("remote_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	token, expiresAt, err := auth.GenerateToken(h.username, h.jwtSecret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Username:    h.username,
	})
}

// Refresh godoc
// @Summary Refresh the admin token
// @Tags auth
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	token, expiresAt, err := auth.RefreshTokenFromContext(c, h.jwtSecret, h.expiresIn)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Username:    userID,
	})
}
