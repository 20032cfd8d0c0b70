package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/workmate-hq/workmate_backend/models"
)

// Principal is the identity provider's view of an authenticated user
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token material minted by the provider on login
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult bundles the principal with its session
type LoginResult struct {
	Principal Principal
	Session   Session
}

// IdentityService talks to the managed auth backend. Credential storage,
// login and session issuance are delegated there; Workmate only keeps its
// own profile row per user.
type IdentityService struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewIdentityService creates a new identity service instance
func NewIdentityService() *IdentityService {
	baseURL := os.Getenv("AUTH_API_URL")
	serviceKey := os.Getenv("AUTH_SERVICE_KEY")

	if baseURL == "" || serviceKey == "" {
		log.Printf("WARNING: identity provider not fully configured:")
		if baseURL == "" {
			log.Printf("  - AUTH_API_URL is missing")
		}
		if serviceKey == "" {
			log.Printf("  - AUTH_SERVICE_KEY is missing")
		}
	}

	return &IdentityService{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateIdentity provisions a principal for the email/password pair. The
// service-role credential marks the email as confirmed, since Workmate
// already gated this call behind its own OTP verification.
func (s *IdentityService) CreateIdentity(ctx context.Context, email, password string, metadata map[string]interface{}) (*Principal, error) {
	payload := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	if metadata != nil {
		payload["user_metadata"] = metadata
	}

	var principal Principal
	if err := s.makeRequest(ctx, http.MethodPost, "/admin/users", payload, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

// Login authenticates against the provider and returns its session
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
	}

	var body struct {
		Session
		User Principal `json:"user"`
	}
	err := s.makeRequest(ctx, http.MethodPost, "/token?grant_type=password", payload, &body)
	if err != nil {
		var provErr *models.IdentityProviderError
		if errors.As(err, &provErr) && (provErr.Status == http.StatusUnauthorized || provErr.Status == http.StatusBadRequest) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	return &LoginResult{Principal: body.User, Session: body.Session}, nil
}

// makeRequest performs an HTTP request against the provider API
func (s *IdentityService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	url := s.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &models.IdentityProviderError{
			Status:  http.StatusBadGateway,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.IdentityProviderError{
			Status:  resp.StatusCode,
			Message: parseProviderMessage(respBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}

// parseProviderMessage digs the human-readable message out of a provider
// error body, falling back to the raw body
func parseProviderMessage(body []byte) string {
	var parsed struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Msg != "":
			return parsed.Msg
		case parsed.ErrorDescription != "":
			return parsed.ErrorDescription
		case parsed.Error != "":
			return parsed.Error
		}
	}
	return string(body)
}
