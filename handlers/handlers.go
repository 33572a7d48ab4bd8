package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/serranojoyas/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Machine-readable codes for credential and recovery failures. Token and
// permission codes live in the middleware package.
const (
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotVerified        = "NOT_VERIFIED"
	CodeInvalidUserType    = "INVALID_USER_TYPE"
	CodeServerError        = "SERVER_ERROR"
)

// Cookie names for the recovery and signup-verification flows. The session
// cookie name belongs to the middleware package.
const (
	recoveryCookieName     = "tokenRecoveryCode"
	verificationCookieName = "verificationToken"
)

// AccountStore is the persistence surface the auth handlers need,
// implemented by *store.DB.
type AccountStore interface {
	ResolveAccount(ctx context.Context, email string) (*models.Account, error)
	ResolveRecoveryAccount(ctx context.Context, email string) (*models.Account, error)
	AccountByID(ctx context.Context, kind models.AccountKind, id primitive.ObjectID) (*models.Account, error)
	CreateEmployee(ctx context.Context, e *models.Employee) (primitive.ObjectID, error)
	CreateCustomer(ctx context.Context, c *models.Customer) (primitive.ObjectID, error)
	SetLockState(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, attempts int, timeOut *time.Time) error
	UpdatePassword(ctx context.Context, kind models.AccountKind, email, hash string) (bool, error)
	MarkCustomerVerified(ctx context.Context, email string) (bool, error)
	SetAvatarKey(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, key string) error
	InsertEmailLog(ctx context.Context, entry *models.EmailLog) error
}

// Mailer sends one-time-code emails, implemented by *service.MailService.
type Mailer interface {
	SendRecoveryCode(to, name, code string) error
	SendVerificationCode(to, name, code string) error
}

// AvatarStorage stores profile images, implemented by *service.S3Service.
type AvatarStorage interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type errorResponse struct {
	Message          string `json:"message"`
	Code             string `json:"code,omitempty"`
	RemainingMinutes *int   `json:"remainingMinutes,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}

func writeLocked(w http.ResponseWriter, remainingMinutes int) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Message:          "account temporarily locked",
		Code:             CodeAccountLocked,
		RemainingMinutes: &remainingMinutes,
	})
}

func setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// kindForRole maps a session role back to the account collection it came from.
func kindForRole(role string) models.AccountKind {
	switch role {
	case models.RoleAdmin:
		return models.AccountAdmin
	case models.RoleCustomer:
		return models.AccountCustomer
	default:
		return models.AccountEmployee
	}
}
