package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/serranojoyas/backend/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthCookieName is the session cookie set at login and cleared at logout.
const AuthCookieName = "authToken"

// Machine-readable codes returned alongside 401/403 responses.
const (
	CodeNoToken                 = "NO_TOKEN"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeTokenInvalid            = "TOKEN_INVALID"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the decoded session principal attached to the request
// context. It is the only way business handlers learn who is calling.
type Identity struct {
	ID       primitive.ObjectID
	Role     string
	Email    string
	Name     string
	LastName string
}

type gateError struct {
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Role    string   `json:"role,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

func writeGateError(w http.ResponseWriter, status int, e gateError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e)
}

// Auth validates the session cookie and gates on the allowed roles. An
// empty role list admits any authenticated principal.
func Auth(tokens *service.TokenService, allowed ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				writeGateError(w, http.StatusUnauthorized, gateError{
					Message: "authentication required", Code: CodeNoToken,
				})
				return
			}
			claims, err := tokens.ParseSession(cookie.Value)
			if err != nil {
				code := CodeTokenInvalid
				if errors.Is(err, service.ErrTokenExpired) {
					code = CodeTokenExpired
				}
				writeGateError(w, http.StatusUnauthorized, gateError{
					Message: "invalid or expired session", Code: code,
				})
				return
			}
			if len(allowed) > 0 && !roleAllowed(claims.Role, allowed) {
				writeGateError(w, http.StatusForbidden, gateError{
					Message: "insufficient permissions",
					Code:    CodeInsufficientPermissions,
					Role:    claims.Role,
					Allowed: allowed,
				})
				return
			}
			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				writeGateError(w, http.StatusUnauthorized, gateError{
					Message: "invalid or expired session", Code: CodeTokenInvalid,
				})
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, Identity{
				ID:       id,
				Role:     claims.Role,
				Email:    claims.Email,
				Name:     claims.Name,
				LastName: claims.LastName,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
