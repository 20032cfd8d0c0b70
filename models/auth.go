// models/auth.go
package models

// SignupMetadata carries optional profile fields collected at signup
type SignupMetadata struct {
	Name       string `json:"name,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
}

type SignupRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Metadata *SignupMetadata `json:"metadata,omitempty"`
}

type VerifyOTPRequest struct {
	Email    string          `json:"email"`
	Code     string          `json:"code"`
	Password string          `json:"password"`
	Metadata *SignupMetadata `json:"metadata,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

// AuthData is the payload returned on successful login / verification
type AuthData struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}
