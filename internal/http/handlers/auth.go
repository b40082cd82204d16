package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"givepool/internal/domain"
	"givepool/internal/middleware"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Locale   string `json:"locale"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Locale:    u.Locale,
		CreatedAt: u.CreatedAt,
	}
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.error(w, http.StatusBadRequest, "bad_request", "valid email required")
		return
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("hash password failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Locale:       locale,
	}
	if err := a.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		a.domainError(w, err)
		return
	}

	token, err := middleware.SignJWT(a.JWTSecret, user.ID, user.Locale, a.JWTTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusCreated, authResponse{Token: token, User: toUserDTO(user)})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := a.Users.GetByEmail(r.Context(), email)
	if err != nil {
		// Same refusal for unknown email and wrong password.
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		a.domainError(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token, err := middleware.SignJWT(a.JWTSecret, user.ID, user.Locale, a.JWTTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, User: toUserDTO(user)})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toUserDTO(user))
}

type fcmTokenRequest struct {
	Token string `json:"token"`
}

// SetFCMToken registers the caller's device token for push notifications.
// An empty token unregisters the device.
func (a *App) SetFCMToken(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req fcmTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Users.SetFCMToken(r.Context(), userID, strings.TrimSpace(req.Token)); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
