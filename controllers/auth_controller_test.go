package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/services"
)

type fakeOTPStore struct {
	mu    sync.Mutex
	codes []*models.EmailOTP
}

func (s *fakeOTPStore) Create(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, &models.EmailOTP{
		ID:        "otp-" + code,
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeOTPStore) HasPending(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Email == email && !c.Consumed && c.ExpiresAt.After(time.Now()) {
			return true, nil
		}
	}
	return false, nil
}

// Consume re-checks the consumed flag under the lock, like the SQL
// statement re-checks its outer predicate after acquiring the row lock.
func (s *fakeOTPStore) Consume(ctx context.Context, email, code string) (*models.EmailOTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		c := s.codes[i]
		if c.Email == email && c.Code == code && !c.Consumed && c.ExpiresAt.After(time.Now()) {
			c.Consumed = true
			copied := *c
			return &copied, nil
		}
	}
	return nil, models.ErrInvalidOrExpiredCode
}

type fakeUserStore struct {
	users  map[string]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, models.ErrUserNotFound
}

func (s *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	if _, ok := s.users[u.Email]; ok {
		return models.ErrEmailAlreadyInUse
	}
	s.nextID++
	u.ID = "user-" + time.Now().Format("150405") + "-" + string(rune('a'+s.nextID))
	stored := *u
	s.users[u.Email] = &stored
	return nil
}

func (s *fakeUserStore) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	for _, u := range s.users {
		if u.ID != id {
			continue
		}
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.PasswordHash != nil {
			u.PasswordHash = *upd.PasswordHash
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.Department != nil {
			u.Department = *upd.Department
		}
		copied := *u
		return &copied, nil
	}
	return nil, models.ErrUserNotFound
}

type fakeIdentity struct {
	created   []string
	loginErr  error
	createErr error
}

func (f *fakeIdentity) CreateIdentity(ctx context.Context, email, password string, metadata map[string]interface{}) (*services.Principal, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, email)
	return &services.Principal{ID: "principal-1", Email: email}, nil
}

func (f *fakeIdentity) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		Principal: services.Principal{ID: "principal-1", Email: email},
		Session: services.Session{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			ExpiresIn:    3600,
		},
	}, nil
}

type fakeMailer struct {
	otpCodes   []string
	welcomeErr error
	welcomeCh  chan string
}

func (m *fakeMailer) SendOTPEmail(to, code string, expiresAt time.Time) error {
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(to, name string) error {
	if m.welcomeCh != nil {
		m.welcomeCh <- to
	}
	return m.welcomeErr
}

func newAuthTest() (*AuthController, *fakeOTPStore, *fakeUserStore, *fakeIdentity, *fakeMailer) {
	otps := &fakeOTPStore{}
	users := newFakeUserStore()
	identity := &fakeIdentity{}
	mailer := &fakeMailer{}
	ac := NewAuthController(otps, users, identity, mailer, nil, zerolog.Nop())
	return ac, otps, users, identity, mailer
}

func doJSON(handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = handler(c)
	return rec
}

func TestSignupIssuesOTPWithoutProfile(t *testing.T) {
	ac, otps, users, identity, mailer := newAuthTest()

	rec := doJSON(ac.Signup, `{"email":"new@example.com","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(otps.codes) != 1 {
		t.Fatalf("expected 1 stored code, got %d", len(otps.codes))
	}
	if len(mailer.otpCodes) != 1 || mailer.otpCodes[0] != otps.codes[0].Code {
		t.Errorf("emailed code does not match stored code")
	}
	if len(otps.codes[0].Code) != 6 {
		t.Errorf("expected 6-digit code, got %q", otps.codes[0].Code)
	}
	if len(users.users) != 0 {
		t.Errorf("signup must not create a profile, got %d users", len(users.users))
	}
	if len(identity.created) != 0 {
		t.Errorf("signup must not create an identity")
	}
}

func TestSignupRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","password":"secret1"}`},
		{"short password", `{"email":"new@example.com","password":"123"}`},
		{"malformed body", `{"email":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac, otps, _, _, _ := newAuthTest()
			rec := doJSON(ac.Signup, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(otps.codes) != 0 {
				t.Errorf("no code should be stored on rejected input")
			}
		})
	}
}

func TestSignupAcceptsKnownEmail(t *testing.T) {
	// The response must not reveal whether an address already exists
	ac, _, users, _, _ := newAuthTest()
	users.users["taken@example.com"] = &models.User{ID: "u1", Email: "taken@example.com", Name: "Taken"}

	rec := doJSON(ac.Signup, `{"email":"taken@example.com","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for known email, got %d", rec.Code)
	}

	var resp models.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Message != "OTP sent to your email" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func signupAndGrabCode(t *testing.T, ac *AuthController, mailer *fakeMailer, email string) string {
	t.Helper()
	rec := doJSON(ac.Signup, `{"email":"`+email+`","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d %s", rec.Code, rec.Body.String())
	}
	return mailer.otpCodes[len(mailer.otpCodes)-1]
}

func TestVerifyOTPCreatesAccountAndLogsIn(t *testing.T) {
	ac, _, users, identity, mailer := newAuthTest()
	mailer.welcomeCh = make(chan string, 1)
	code := signupAndGrabCode(t, ac, mailer, "new@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"new@example.com","code":"`+code+`","password":"secret1","metadata":{"name":"Ada","role":"engineer","department":"R&D"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(identity.created) != 1 || identity.created[0] != "new@example.com" {
		t.Errorf("expected one identity for new@example.com, got %v", identity.created)
	}

	user, ok := users.users["new@example.com"]
	if !ok {
		t.Fatal("expected a local profile")
	}
	if user.Name != "Ada" {
		t.Errorf("expected name Ada, got %q", user.Name)
	}
	if user.Role != "engineer" || user.Department != "R&D" {
		t.Errorf("metadata not applied: role=%q department=%q", user.Role, user.Department)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Errorf("password must be stored hashed")
	}

	var resp models.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	data, _ := json.Marshal(resp.Data)
	var auth models.AuthData
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("invalid auth data: %v", err)
	}
	if auth.AccessToken != "access-token" {
		t.Errorf("expected session tokens in response, got %+v", auth)
	}
	if auth.User == nil || auth.User.PasswordHash != "" {
		t.Errorf("password hash must not serialize")
	}

	select {
	case to := <-mailer.welcomeCh:
		if to != "new@example.com" {
			t.Errorf("welcome email sent to %q", to)
		}
	case <-time.After(time.Second):
		t.Error("expected a welcome email")
	}
}

func TestVerifyOTPDefaultsNameFromEmail(t *testing.T) {
	ac, _, users, _, mailer := newAuthTest()
	code := signupAndGrabCode(t, ac, mailer, "jane.doe@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"jane.doe@example.com","code":"`+code+`","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if users.users["jane.doe@example.com"].Name != "jane.doe" {
		t.Errorf("expected defaulted name jane.doe, got %q", users.users["jane.doe@example.com"].Name)
	}
}

func TestVerifyOTPKeepsExistingName(t *testing.T) {
	ac, _, users, _, mailer := newAuthTest()
	users.users["back@example.com"] = &models.User{
		ID:    "u-existing",
		Email: "back@example.com",
		Name:  "Original Name",
	}
	code := signupAndGrabCode(t, ac, mailer, "back@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"back@example.com","code":"`+code+`","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	user := users.users["back@example.com"]
	if user.Name != "Original Name" {
		t.Errorf("existing name must survive re-verification, got %q", user.Name)
	}
	if user.PasswordHash == "" {
		t.Errorf("password hash must be refreshed")
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	ac, _, users, identity, mailer := newAuthTest()
	signupAndGrabCode(t, ac, mailer, "new@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"new@example.com","code":"000000","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(identity.created) != 0 || len(users.users) != 0 {
		t.Errorf("wrong code must not create anything")
	}
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	ac, otps, _, _, _ := newAuthTest()
	_ = otps.Create(context.Background(), "old@example.com", "123456", time.Now().Add(-time.Minute))

	rec := doJSON(ac.VerifyOTP,
		`{"email":"old@example.com","code":"123456","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for expired code, got %d", rec.Code)
	}
}

func TestVerifyOTPSingleConsumption(t *testing.T) {
	ac, _, _, identity, mailer := newAuthTest()
	code := signupAndGrabCode(t, ac, mailer, "new@example.com")
	body := `{"email":"new@example.com","code":"` + code + `","password":"secret1"}`

	if rec := doJSON(ac.VerifyOTP, body); rec.Code != http.StatusOK {
		t.Fatalf("first verify failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(ac.VerifyOTP, body); rec.Code != http.StatusBadRequest {
		t.Fatalf("second verify must fail, got %d", rec.Code)
	}
	if len(identity.created) != 1 {
		t.Errorf("identity must be created exactly once, got %d", len(identity.created))
	}
}

func TestVerifyOTPConcurrentRequestsConsumeOnce(t *testing.T) {
	ac, _, _, identity, mailer := newAuthTest()
	code := signupAndGrabCode(t, ac, mailer, "race@example.com")
	body := `{"email":"race@example.com","code":"` + code + `","password":"secret1"}`

	const workers = 8
	results := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- doJSON(ac.VerifyOTP, body).Code
		}()
	}
	wg.Wait()
	close(results)

	oks, rejections := 0, 0
	for status := range results {
		switch status {
		case http.StatusOK:
			oks++
		case http.StatusBadRequest:
			rejections++
		default:
			t.Errorf("unexpected status %d", status)
		}
	}
	if oks != 1 {
		t.Errorf("exactly one request may consume the code, got %d", oks)
	}
	if rejections != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, rejections)
	}
	if len(identity.created) != 1 {
		t.Errorf("identity must be created exactly once, got %d", len(identity.created))
	}
}

func TestVerifyOTPRejectsNonNumericCode(t *testing.T) {
	ac, _, _, _, _ := newAuthTest()
	rec := doJSON(ac.VerifyOTP,
		`{"email":"new@example.com","code":"abc123","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed code, got %d", rec.Code)
	}
}

func TestVerifyOTPWelcomeEmailFailureIsSwallowed(t *testing.T) {
	ac, _, _, _, mailer := newAuthTest()
	mailer.welcomeErr = &models.EmailDispatchError{Err: context.DeadlineExceeded}
	mailer.welcomeCh = make(chan string, 1)
	code := signupAndGrabCode(t, ac, mailer, "new@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"new@example.com","code":"`+code+`","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("welcome email failure must not fail verification, got %d", rec.Code)
	}
	<-mailer.welcomeCh
}

func TestVerifyOTPProviderRejection(t *testing.T) {
	ac, _, users, identity, mailer := newAuthTest()
	identity.createErr = &models.IdentityProviderError{Status: http.StatusUnprocessableEntity, Message: "email rejected"}
	code := signupAndGrabCode(t, ac, mailer, "new@example.com")

	rec := doJSON(ac.VerifyOTP,
		`{"email":"new@example.com","code":"`+code+`","password":"secret1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected provider status to pass through, got %d", rec.Code)
	}
	if len(users.users) != 0 {
		t.Errorf("no profile on provider rejection")
	}
}

func TestLoginBlockedWhileOTPPending(t *testing.T) {
	ac, _, _, identity, mailer := newAuthTest()
	signupAndGrabCode(t, ac, mailer, "pending@example.com")

	rec := doJSON(ac.Login, `{"email":"pending@example.com","password":"secret1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while OTP pending, got %d", rec.Code)
	}

	var resp models.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Message != "Complete OTP verification before logging in" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(identity.created) != 0 {
		t.Errorf("blocked login must not touch the provider")
	}
}

func TestLoginSucceedsAfterVerification(t *testing.T) {
	ac, _, _, _, mailer := newAuthTest()
	code := signupAndGrabCode(t, ac, mailer, "done@example.com")
	if rec := doJSON(ac.VerifyOTP,
		`{"email":"done@example.com","code":"`+code+`","password":"secret1"}`); rec.Code != http.StatusOK {
		t.Fatalf("verify failed: %d", rec.Code)
	}

	rec := doJSON(ac.Login, `{"email":"done@example.com","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ac, _, users, identity, _ := newAuthTest()
	users.users["u@example.com"] = &models.User{ID: "u1", Email: "u@example.com", Name: "U"}
	identity.loginErr = models.ErrInvalidCredentials

	rec := doJSON(ac.Login, `{"email":"u@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestResendOTPKeepsEarlierCodesValid(t *testing.T) {
	ac, otps, _, _, mailer := newAuthTest()
	first := signupAndGrabCode(t, ac, mailer, "multi@example.com")

	rec := doJSON(ac.ResendOTP, `{"email":"multi@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(otps.codes) != 2 {
		t.Fatalf("expected 2 pending codes, got %d", len(otps.codes))
	}

	// Verifying with the first code still works
	recV := doJSON(ac.VerifyOTP,
		`{"email":"multi@example.com","code":"`+first+`","password":"secret1"}`)
	if recV.Code != http.StatusOK {
		t.Fatalf("first code must remain valid, got %d: %s", recV.Code, recV.Body.String())
	}
}
