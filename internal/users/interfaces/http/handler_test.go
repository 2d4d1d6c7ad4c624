package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"equipment-api/internal/auth"
	"equipment-api/internal/users/infrastructure/memory"
)

var testSecret = []byte("test-secret")

func newTestHandler(t *testing.T) (*Handler, *memory.UserRepository) {
	t.Helper()
	repo := memory.NewUserRepository()
	handler, err := NewHandler(repo, nil, nil, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, repo
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	message, _ := payload["message"].(string)
	return message
}

func TestRegisterMissingFields(t *testing.T) {
	handler, _ := newTestHandler(t)

	cases := []struct {
		body    string
		message string
	}{
		{`{}`, "The e-mail field must be sent"},
		{`{"email": "a@b.com"}`, "The password field must be sent"},
		{`{"email": "a@b.com", "password": "pw"}`, "The fullname field must be sent"},
	}
	for _, tc := range cases {
		resp := postJSON(t, handler, "/register", tc.body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", tc.body, resp.Code)
		}
		if got := decodeMessage(t, resp); got != tc.message {
			t.Fatalf("body %s: expected %q, got %q", tc.body, tc.message, got)
		}
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	handler, repo := newTestHandler(t)

	resp := postJSON(t, handler, "/register", `{"email": "a@b.com", "password": "secret", "fullname": "Ada Lovelace"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var dto userDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.ID == 0 || dto.Email != "a@b.com" || dto.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected dto: %+v", dto)
	}

	user, err := repo.FindActiveByEmail(context.Background(), "a@b.com")
	if err != nil || user == nil {
		t.Fatalf("stored user not found: %v", err)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if !user.VerifyPassword("secret") {
		t.Fatal("stored hash must verify the password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler, _ := newTestHandler(t)

	first := postJSON(t, handler, "/register", `{"email": "a@b.com", "password": "secret", "fullname": "Ada"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	resp := postJSON(t, handler, "/register", `{"email": "a@b.com", "password": "other", "fullname": "Eva"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeMessage(t, resp); !strings.Contains(got, "already in use") {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, _ := newTestHandler(t)
	postJSON(t, handler, "/register", `{"email": "a@b.com", "password": "secret", "fullname": "Ada"}`)

	resp := postJSON(t, handler, "/login", `{"email": "a@b.com", "password": "wrong"}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if got := decodeMessage(t, resp); got != "Email or password is incorrect" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := postJSON(t, handler, "/login", `{"email": "nobody@b.com", "password": "secret"}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	handler, _ := newTestHandler(t)
	postJSON(t, handler, "/register", `{"email": "a@b.com", "password": "secret", "fullname": "Ada Lovelace"}`)

	resp := postJSON(t, handler, "/login", `{"email": "a@b.com", "password": "secret"}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Token string  `json:"token"`
		User  userDTO `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected a token")
	}
	if payload.User.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", payload.User)
	}

	claims, err := auth.ParseJWT(payload.Token, testSecret)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.UserID != payload.User.ID || claims.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenHandler(t *testing.T) {
	handler := NewValidateTokenHandler(nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/validatetoken", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if got := decodeMessage(t, resp); got != "Token is valid" {
		t.Fatalf("unexpected message: %q", got)
	}
}
