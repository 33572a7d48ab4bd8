package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/models"
	"github.com/serranojoyas/backend/service"
	"github.com/serranojoyas/backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// RecoveryHandler runs the three-step password recovery: request a code,
// verify it, change the password. State lives entirely in the signed
// cookie token; the verified flag is what gates the final step.
type RecoveryHandler struct {
	Store  AccountStore
	Tokens *service.TokenService
	Mail   Mailer
	Secure bool
}

type RequestCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode locates the account (customers first, then employees; the
// admin is excluded from recovery), mints a verified:false recovery token,
// and emails the 5-digit code.
func (h *RecoveryHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required", "")
		return
	}
	acct, err := h.Store.ResolveRecoveryAccount(r.Context(), req.Email)
	if err != nil {
		log.Printf("recovery: resolve account: %v", err)
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	code, err := utils.NewRecoveryCode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	token, err := h.Tokens.IssueRecovery(acct.Email, code, acct.Role, false)
	if err != nil {
		log.Printf("recovery: issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	// Cookie lifetime matches the token expiry.
	setCookie(w, recoveryCookieName, token, h.Tokens.RecoveryTTL, h.Secure)
	h.sendCode(acct, code)
	writeJSON(w, http.StatusOK, map[string]string{"message": "recovery code sent"})
}

func (h *RecoveryHandler) sendCode(acct *models.Account, code string) {
	go func() {
		if err := h.Mail.SendRecoveryCode(acct.Email, acct.Name, code); err != nil {
			log.Printf("recovery: send code: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Store.InsertEmailLog(ctx, &models.EmailLog{
			Kind:        models.EmailKindRecovery,
			ToEmail:     acct.Email,
			AccountKind: acct.Kind,
			SentAt:      time.Now(),
		}); err != nil {
			log.Printf("recovery: insert email log: %v", err)
		}
	}()
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyCode checks the submitted code against the recovery cookie. On a
// match it reissues the token with verified:true; a mismatch changes
// nothing and the old verified:false token stays in place.
func (h *RecoveryHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.recoveryClaims(w, r)
	if !ok {
		return
	}
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	if strings.TrimSpace(req.Code) != claims.Code {
		writeError(w, http.StatusBadRequest, "incorrect recovery code", "")
		return
	}
	token, err := h.Tokens.IssueRecovery(claims.Email, claims.Code, claims.Role, true)
	if err != nil {
		log.Printf("recovery: reissue token: %v", err)
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	setCookie(w, recoveryCookieName, token, h.Tokens.RecoveryTTL, h.Secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "code verified"})
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ChangePassword requires a verified:true recovery token. Only customers
// and colaborador employees can change a password this way.
func (h *RecoveryHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.recoveryClaims(w, r)
	if !ok {
		return
	}
	if !claims.Verified {
		writeError(w, http.StatusBadRequest, "recovery code not verified", CodeNotVerified)
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "newPassword required", "")
		return
	}
	var kind models.AccountKind
	switch claims.Role {
	case models.RoleCustomer:
		kind = models.AccountCustomer
	case models.RoleColaborador:
		kind = models.AccountEmployee
	default:
		writeError(w, http.StatusBadRequest, "account type cannot recover a password", CodeInvalidUserType)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	found, err := h.Store.UpdatePassword(r.Context(), kind, claims.Email, string(hash))
	if err != nil {
		log.Printf("recovery: update password: %v", err)
		writeError(w, http.StatusInternalServerError, "recovery failed", CodeServerError)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	clearCookie(w, recoveryCookieName, h.Secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// recoveryClaims decodes the recovery cookie, writing the error response
// itself when the cookie is missing, expired, or tampered with.
func (h *RecoveryHandler) recoveryClaims(w http.ResponseWriter, r *http.Request) (*service.RecoveryClaims, bool) {
	cookie, err := r.Cookie(recoveryCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "recovery token missing", middleware.CodeNoToken)
		return nil, false
	}
	claims, err := h.Tokens.ParseRecovery(cookie.Value)
	if err != nil {
		code := middleware.CodeTokenInvalid
		if errors.Is(err, service.ErrTokenExpired) {
			code = middleware.CodeTokenExpired
		}
		writeError(w, http.StatusUnauthorized, "invalid or expired recovery token", code)
		return nil, false
	}
	return claims, true
}
