package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/workmate-hq/workmate_backend/models"
)

func testService(baseURL string) *IdentityService {
	return &IdentityService{
		baseURL:    baseURL,
		serviceKey: "test-service-key",
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateIdentity(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Principal{ID: "p-1", Email: "new@example.com"})
	}))
	defer srv.Close()

	svc := testService(srv.URL)
	principal, err := svc.CreateIdentity(context.Background(), "new@example.com", "secret1",
		map[string]interface{}{"name": "Ada"})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if principal.ID != "p-1" || principal.Email != "new@example.com" {
		t.Errorf("unexpected principal %+v", principal)
	}

	if gotAuth != "Bearer test-service-key" {
		t.Errorf("missing service key, got %q", gotAuth)
	}
	if confirmed, _ := gotBody["email_confirm"].(bool); !confirmed {
		t.Error("identity must be created pre-confirmed")
	}
	meta, _ := gotBody["user_metadata"].(map[string]interface{})
	if meta["name"] != "Ada" {
		t.Errorf("metadata not forwarded: %v", gotBody["user_metadata"])
	}
}

func TestCreateIdentityProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"email address not authorized"}`))
	}))
	defer srv.Close()

	_, err := testService(srv.URL).CreateIdentity(context.Background(), "bad@example.com", "secret1", nil)
	var provErr *models.IdentityProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected IdentityProviderError, got %v", err)
	}
	if provErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", provErr.Status)
	}
	if provErr.Message != "email address not authorized" {
		t.Errorf("expected parsed provider message, got %q", provErr.Message)
	}
}

func TestLoginReturnsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "at",
			"refresh_token": "rt",
			"token_type": "bearer",
			"expires_in": 3600,
			"user": {"id": "p-1", "email": "u@example.com"}
		}`))
	}))
	defer srv.Close()

	result, err := testService(srv.URL).Login(context.Background(), "u@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.AccessToken != "at" || result.Session.ExpiresIn != 3600 {
		t.Errorf("unexpected session %+v", result.Session)
	}
	if result.Principal.Email != "u@example.com" {
		t.Errorf("unexpected principal %+v", result.Principal)
	}
}

func TestLoginBadPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	_, err := testService(srv.URL).Login(context.Background(), "u@example.com", "wrong")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := testService(srv.URL).Login(context.Background(), "u@example.com", "secret1")
	var provErr *models.IdentityProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected IdentityProviderError, got %v", err)
	}
	if provErr.Status != http.StatusBadGateway {
		t.Errorf("network failure must map to 502, got %d", provErr.Status)
	}
}
