package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/api/middleware"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/logging"
)

type AuthHandler struct {
	db     *db.Database
	jwt    *auth.JWTService
	logger zerolog.Logger
}

func NewAuthHandler(db *db.Database, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, logger: logging.Component("api")}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

// Login exchanges credentials for a bearer token. Unknown users and wrong
// passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.db.GetUserByUsername(req.Username)
	if err != nil || !auth.CheckPassword(req.Password, user.Password) {
		h.logger.Warn().Str("username", req.Username).Str("remote", r.RemoteAddr).Msg("failed login")
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.logger.Error().Err(err).Msg("sign token")
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      userView{ID: user.ID, Username: user.Username, Role: user.Role},
	}, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, userView{ID: user.ID, Username: user.Username, Role: user.Role}, http.StatusOK)
}
