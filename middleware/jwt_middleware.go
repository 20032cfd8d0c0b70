// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/models"
)

// SessionClaims are the claims the identity provider puts in its access
// tokens. Email is the join key to the local users table.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// Valid implements the Claims interface
func (c SessionClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	if c.Email == "" {
		return errors.New("token has no email claim")
	}
	return nil
}

// GetAuthSecret returns the shared secret the provider signs access
// tokens with
func GetAuthSecret() string {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		panic("AUTH_JWT_SECRET environment variable is required")
	}
	return secret
}

// ParseSessionToken validates a provider access token and returns its claims
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// SessionMiddleware authenticates requests with the provider-issued
// bearer token and resolves the local user profile. Every authenticated
// request must map to exactly one users row, or it is rejected.
func SessionMiddleware(db *pgxpool.Pool) echo.MiddlewareFunc {
	secret := GetAuthSecret()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing or malformed token")
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := ParseSessionToken(tokenString, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			user, err := lookupUserByEmail(c.Request().Context(), db, claims.Email)
			if err != nil {
				if errors.Is(err, models.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "No profile for authenticated user")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user")
			}

			if user.Status != "active" {
				return echo.NewHTTPError(http.StatusUnauthorized, "User account is inactive")
			}

			c.Set("user", user)
			c.Set("userId", user.ID)
			c.Set("email", user.Email)
			c.Set("isAdmin", user.IsAdmin)

			return next(c)
		}
	}
}

// AdminOnly rejects requests from non-admin users. Must run after
// SessionMiddleware.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			isAdmin, _ := c.Get("isAdmin").(bool)
			if !isAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}

// CurrentUser returns the profile resolved by SessionMiddleware
func CurrentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok || user == nil {
		return nil, errors.New("no authenticated user in context")
	}
	return user, nil
}

func lookupUserByEmail(ctx context.Context, db *pgxpool.Pool, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var u models.User
	err := db.QueryRow(ctx,
		`SELECT id, email, name, COALESCE(password_hash, ''), is_admin, role, department, status, created_at, updated_at
		 FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin,
			&u.Role, &u.Department, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
