package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/models"
	"github.com/serranojoyas/backend/service"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	Store  AccountStore
	Tokens *service.TokenService
	// Secure marks cookies Secure; set in production-equivalent environments.
	Secure bool
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type IdentityResponse struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

type LoginResponse struct {
	Message string           `json:"message"`
	User    IdentityResponse `json:"user"`
}

// Login verifies credentials and mints the session cookie. The lookup chain
// is admin, then employee, then customer; exactly one path can match. Admin
// bypasses the lockout tracker and uses a constant-time compare instead of
// bcrypt. Every non-admin attempt persists the lock state before the
// response goes out, so brute-force tracking survives restarts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required", "")
		return
	}

	acct, err := h.Store.ResolveAccount(r.Context(), req.Email)
	if err != nil {
		log.Printf("login: resolve account: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed", CodeServerError)
		return
	}
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "user not found", CodeUserNotFound)
		return
	}

	if acct.Kind == models.AccountAdmin {
		if subtle.ConstantTimeCompare([]byte(acct.Secret), []byte(req.Password)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid email or password", CodeInvalidCredentials)
			return
		}
	} else if !h.verifyWithLockout(w, r, acct, req.Password) {
		return
	}

	token, ttl, err := h.Tokens.IssueSession(acct.ID.Hex(), acct.Role, acct.Email, acct.Name, acct.LastName, req.RememberMe)
	if err != nil {
		log.Printf("login: issue session: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed", CodeServerError)
		return
	}
	setCookie(w, middleware.AuthCookieName, token, ttl, h.Secure)
	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "login successful",
		User: IdentityResponse{
			ID: acct.ID.Hex(), Role: acct.Role, Email: acct.Email,
			Name: acct.Name, LastName: acct.LastName,
		},
	})
}

// verifyWithLockout applies the 3-strike policy around the bcrypt compare.
// Returns true when the password matched and the counters were reset; on
// false the response has already been written.
func (h *AuthHandler) verifyWithLockout(w http.ResponseWriter, r *http.Request, acct *models.Account, password string) bool {
	now := time.Now()
	if locked, remaining := acct.Locked(now); locked {
		writeLocked(w, int(remaining.Minutes()))
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.Secret), []byte(password)); err != nil {
		attempts := acct.LoginAttempts + 1
		if attempts >= models.MaxLoginAttempts {
			lockUntil := now.Add(models.LockoutDuration)
			if err := h.Store.SetLockState(r.Context(), acct.Kind, acct.ID, attempts, &lockUntil); err != nil {
				log.Printf("login: persist lock: %v", err)
				writeError(w, http.StatusInternalServerError, "login failed", CodeServerError)
				return false
			}
			writeLocked(w, 0)
			return false
		}
		if err := h.Store.SetLockState(r.Context(), acct.Kind, acct.ID, attempts, acct.TimeOut); err != nil {
			log.Printf("login: persist attempts: %v", err)
			writeError(w, http.StatusInternalServerError, "login failed", CodeServerError)
			return false
		}
		writeError(w, http.StatusUnauthorized, "invalid email or password", CodeInvalidCredentials)
		return false
	}
	if err := h.Store.SetLockState(r.Context(), acct.Kind, acct.ID, 0, nil); err != nil {
		log.Printf("login: reset attempts: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed", CodeServerError)
		return false
	}
	return true
}

// Logout clears the session cookie. Idempotent; there is no server-side
// session state to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, middleware.AuthCookieName, h.Secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ValidateAuthToken echoes the identity the role gate decoded. Mounted
// behind Auth() with no role restriction.
func (h *AuthHandler) ValidateAuthToken(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", middleware.CodeNoToken)
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{
		ID: id.ID.Hex(), Role: id.Role, Email: id.Email,
		Name: id.Name, LastName: id.LastName,
	})
}

type ValidatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
}

// ValidatePassword checks the caller's current password, used by the
// frontends before sensitive profile changes.
func (h *AuthHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", middleware.CodeNoToken)
		return
	}
	var req ValidatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" {
		writeError(w, http.StatusBadRequest, "currentPassword required", "")
		return
	}
	acct, err := h.Store.AccountByID(r.Context(), kindForRole(id.Role), id.ID)
	if err != nil {
		log.Printf("validate password: %v", err)
		writeError(w, http.StatusInternalServerError, "validation failed", CodeServerError)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	if acct.Kind == models.AccountAdmin {
		if subtle.ConstantTimeCompare([]byte(acct.Secret), []byte(req.CurrentPassword)) != 1 {
			writeError(w, http.StatusBadRequest, "incorrect password", CodeInvalidCredentials)
			return
		}
	} else if err := bcrypt.CompareHashAndPassword([]byte(acct.Secret), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusBadRequest, "incorrect password", CodeInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}
