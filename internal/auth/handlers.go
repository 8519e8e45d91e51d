package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marcvolkov/task-management-system/internal/httpx"
)

const uniqueViolation = "23505"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Handler struct {
	db       *sql.DB
	secret   []byte
	validate *validator.Validate
}

func NewHandler(db *sql.DB, secret []byte) *Handler {
	return &Handler{
		db:       db,
		secret:   secret,
		validate: validator.New(),
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
}

// Register: POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, registerErrorMessage(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	var u User
	err = h.db.QueryRowContext(r.Context(), `
		INSERT INTO users (username, email, password)
		VALUES ($1, LOWER($2), $3)
		RETURNING id, username, email, created_at
	`, req.Username, req.Email, string(hash)).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if msg, ok := uniqueViolationMessage(err); ok {
			httpx.Error(w, http.StatusBadRequest, msg)
			return
		}
		slog.Error("register insert failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	token, err := GenerateToken(h.secret, u.ID)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"token":   token,
		"user":    u,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login: POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	var u User
	var hash string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, req.Email).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := GenerateToken(h.secret, u.ID)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    u,
	})
}

// Me: GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var u User
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, username, email, created_at FROM users WHERE id = $1
	`, uid).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "User not found")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile: PUT /api/auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Please provide a valid email")
		return
	}

	var u User
	err := h.db.QueryRowContext(r.Context(), `
		UPDATE users
		SET username = COALESCE($1, username),
		    email = COALESCE(LOWER($2), email),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, username, email, created_at
	`, req.Username, req.Email, uid).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if msg, ok := uniqueViolationMessage(err); ok {
			httpx.Error(w, http.StatusBadRequest, msg)
			return
		}
		slog.Error("profile update failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error updating profile")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ChangePassword: PUT /api/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}

	var hash string
	if err := h.db.QueryRowContext(r.Context(),
		`SELECT password FROM users WHERE id = $1`, uid,
	).Scan(&hash); err != nil {
		httpx.Error(w, http.StatusNotFound, "User not found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.CurrentPassword)) != nil {
		httpx.Error(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Error updating password")
		return
	}

	if _, err := h.db.ExecContext(r.Context(), `
		UPDATE users SET password = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, string(newHash), uid); err != nil {
		slog.Error("password update failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error updating password")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated successfully",
	})
}

func registerErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please provide all required fields"
	}
	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		return "Please provide all required fields"
	case fe.Field() == "Email":
		return "Please provide a valid email"
	case fe.Field() == "Password":
		return "Password must be at least 6 characters long"
	}
	return "Please provide all required fields"
}

func uniqueViolationMessage(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return "", false
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return "Username already exists", true
	case "users_email_key":
		return "Email already exists", true
	}
	return "Already exists", true
}
