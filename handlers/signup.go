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

type SignupHandler struct {
	Store  AccountStore
	Tokens *service.TokenService
	Mail   Mailer
	Secure bool
}

type SignupEmployeeRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// Employee registers a staff account and logs it in immediately.
func (h *SignupHandler) Employee(w http.ResponseWriter, r *http.Request) {
	var req SignupEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password required", "")
		return
	}
	userType := strings.TrimSpace(strings.ToLower(req.UserType))
	if userType == "" {
		userType = models.RoleColaborador
	}
	if userType == models.RoleAdmin || userType == models.RoleCustomer {
		writeError(w, http.StatusBadRequest, "invalid userType", CodeInvalidUserType)
		return
	}
	existing, err := h.Store.ResolveAccount(r.Context(), req.Email)
	if err != nil {
		log.Printf("signup: resolve account: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use", "")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	employee := &models.Employee{
		Email:     req.Email,
		Username:  req.Username,
		Name:      req.Name,
		LastName:  req.LastName,
		Password:  string(hash),
		UserType:  userType,
		CreatedAt: time.Now(),
	}
	id, err := h.Store.CreateEmployee(r.Context(), employee)
	if err != nil {
		log.Printf("signup: create employee: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	token, ttl, err := h.Tokens.IssueSession(id.Hex(), userType, req.Email, req.Name, req.LastName, false)
	if err != nil {
		log.Printf("signup: issue session: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	setCookie(w, middleware.AuthCookieName, token, ttl, h.Secure)
	writeJSON(w, http.StatusCreated, LoginResponse{
		Message: "employee created",
		User: IdentityResponse{
			ID: id.Hex(), Role: userType, Email: req.Email,
			Name: req.Name, LastName: req.LastName,
		},
	})
}

type SignupCustomerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Password string `json:"password"`
}

// Customer registers a shopper account as unverified, sets the verification
// cookie, and emails the 6-character code. The mail is sent off the request
// goroutine: a transport failure does not roll back the created account.
func (h *SignupHandler) Customer(w http.ResponseWriter, r *http.Request) {
	var req SignupCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password required", "")
		return
	}
	existing, err := h.Store.ResolveAccount(r.Context(), req.Email)
	if err != nil {
		log.Printf("signupCustomer: resolve account: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use", "")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	customer := &models.Customer{
		Email:      req.Email,
		Username:   req.Username,
		Name:       req.Name,
		LastName:   req.LastName,
		Password:   string(hash),
		IsVerified: false,
		CreatedAt:  time.Now(),
	}
	id, err := h.Store.CreateCustomer(r.Context(), customer)
	if err != nil {
		log.Printf("signupCustomer: create customer: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	code, err := utils.NewVerificationCode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	token, err := h.Tokens.IssueVerification(req.Email, code)
	if err != nil {
		log.Printf("signupCustomer: issue verification: %v", err)
		writeError(w, http.StatusInternalServerError, "signup failed", CodeServerError)
		return
	}
	setCookie(w, verificationCookieName, token, h.Tokens.VerificationTTL, h.Secure)
	h.sendCode(req.Email, req.Name, code)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "customer created; verification code sent",
		"id":      id.Hex(),
	})
}

func (h *SignupHandler) sendCode(email, name, code string) {
	go func() {
		if err := h.Mail.SendVerificationCode(email, name, code); err != nil {
			log.Printf("signupCustomer: send verification code: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Store.InsertEmailLog(ctx, &models.EmailLog{
			Kind:        models.EmailKindVerification,
			ToEmail:     email,
			AccountKind: models.AccountCustomer,
			SentAt:      time.Now(),
		}); err != nil {
			log.Printf("signupCustomer: insert email log: %v", err)
		}
	}()
}

type VerifyEmailRequest struct {
	VerCodeRequest string `json:"verCodeRequest"`
}

// VerifyCodeEmail consumes the verification cookie: on a code match the
// customer becomes verified and the cookie is cleared.
func (h *SignupHandler) VerifyCodeEmail(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(verificationCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "verification token missing", middleware.CodeNoToken)
		return
	}
	claims, err := h.Tokens.ParseVerification(cookie.Value)
	if err != nil {
		code := middleware.CodeTokenInvalid
		if errors.Is(err, service.ErrTokenExpired) {
			code = middleware.CodeTokenExpired
		}
		writeError(w, http.StatusUnauthorized, "invalid or expired verification token", code)
		return
	}
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	if strings.TrimSpace(strings.ToLower(req.VerCodeRequest)) != claims.Code {
		writeError(w, http.StatusBadRequest, "incorrect verification code", "")
		return
	}
	found, err := h.Store.MarkCustomerVerified(r.Context(), claims.Email)
	if err != nil {
		log.Printf("verifyCodeEmail: %v", err)
		writeError(w, http.StatusInternalServerError, "verification failed", CodeServerError)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	clearCookie(w, verificationCookieName, h.Secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}
