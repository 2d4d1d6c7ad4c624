package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"equipment-api/internal/audit"
	"equipment-api/internal/auth"
	"equipment-api/internal/observability/metrics"
	users "equipment-api/internal/users/domain"
)

// Handler provides the /register and /login endpoints.
type Handler struct {
	repo     users.Repository
	auditor  audit.Logger
	logger   *log.Logger
	secret   []byte
	tokenTTL time.Duration
}

// NewHandler constructs a handler. The auditor may be nil.
func NewHandler(repo users.Repository, auditor audit.Logger, logger *log.Logger, secret []byte, tokenTTL time.Duration) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("users handler: nil repository")
	}
	if len(secret) == 0 {
		return nil, errors.New("users handler: empty secret")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("users handler: token ttl must be positive")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, auditor: auditor, logger: logger, secret: secret, tokenTTL: tokenTTL}, nil
}

// ServeHTTP dispatches /register and /login.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/register":
		h.handleRegister(w, r)
	case "/login":
		h.handleLogin(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Email == "" {
		respondMessage(w, http.StatusBadRequest, "The e-mail field must be sent")
		return
	}
	if body.Password == "" {
		respondMessage(w, http.StatusBadRequest, "The password field must be sent")
		return
	}
	if body.FullName == "" {
		respondMessage(w, http.StatusBadRequest, "The fullname field must be sent")
		return
	}

	existing, err := h.repo.FindActiveByEmail(r.Context(), body.Email)
	if err != nil {
		h.logger.Printf("user register: lookup error: %v", err)
		metrics.ObserveRegister(metrics.ResultError)
		respondMessage(w, http.StatusInternalServerError, "Unable to register user")
		return
	}
	if existing != nil {
		metrics.ObserveRegister(metrics.ResultError)
		respondMessage(w, http.StatusBadRequest, "The email you entered is already in use. Please try logging in.")
		return
	}

	user, err := users.New(body.Email, body.Password, body.FullName)
	if err != nil {
		h.logger.Printf("user register: %v", err)
		metrics.ObserveRegister(metrics.ResultError)
		respondMessage(w, http.StatusInternalServerError, "Unable to register user")
		return
	}
	if err := h.repo.Create(r.Context(), &user); err != nil {
		h.logger.Printf("user register: create error: %v", err)
		metrics.ObserveRegister(metrics.ResultError)
		respondMessage(w, http.StatusInternalServerError, "Unable to register user")
		return
	}

	metrics.ObserveRegister(metrics.ResultSuccess)
	h.recordAudit(r, user)
	h.logger.Printf("user created: %s", user.Email)
	respond(w, http.StatusCreated, toDTO(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Email == "" {
		respondMessage(w, http.StatusBadRequest, "The e-mail field must be sent")
		return
	}
	if body.Password == "" {
		respondMessage(w, http.StatusBadRequest, "The password field must be sent")
		return
	}

	user, err := h.repo.FindActiveByEmail(r.Context(), body.Email)
	if err != nil {
		h.logger.Printf("user login: lookup error: %v", err)
		metrics.ObserveLogin(metrics.ResultError)
		respondMessage(w, http.StatusInternalServerError, "Unable to log in")
		return
	}
	if user == nil || !user.VerifyPassword(body.Password) {
		metrics.ObserveLogin(metrics.ResultError)
		respondMessage(w, http.StatusForbidden, "Email or password is incorrect")
		return
	}

	token, err := auth.SignJWT(h.secret, user.ID, user.FullName, h.tokenTTL)
	if err != nil {
		h.logger.Printf("user login: sign error: %v", err)
		metrics.ObserveLogin(metrics.ResultError)
		respondMessage(w, http.StatusInternalServerError, "Unable to log in")
		return
	}

	metrics.ObserveLogin(metrics.ResultSuccess)
	h.logger.Printf("%s logged in successfully", user.FullName)
	respond(w, http.StatusAccepted, map[string]any{
		"token": token,
		"user":  toDTO(*user),
	})
}

func (h *Handler) recordAudit(r *http.Request, user users.User) {
	if h.auditor == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"email": user.Email})
	entry := audit.Entry{
		Actor:        user.Email,
		Action:       audit.ActionRegister,
		ResourceType: "users",
		Metadata:     meta,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("user register: audit log error: %v", err)
	}
}

// ValidateTokenHandler answers /validatetoken requests. The auth middleware
// has already rejected missing or invalid tokens by the time it runs.
type ValidateTokenHandler struct {
	logger *log.Logger
}

// NewValidateTokenHandler constructs the handler.
func NewValidateTokenHandler(logger *log.Logger) *ValidateTokenHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ValidateTokenHandler{logger: logger}
}

// ServeHTTP handles GET /validatetoken.
func (h *ValidateTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.logger.Printf("token validated for user id %d", auth.UserIDFromContext(r.Context()))
	respondMessage(w, http.StatusAccepted, "Token is valid")
}

type userDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

func toDTO(user users.User) userDTO {
	return userDTO{ID: user.ID, Email: user.Email, FullName: user.FullName}
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"message": message})
}
