package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/models"
	"github.com/serranojoyas/backend/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignupHandler(store *fakeStore) (*SignupHandler, *service.TokenService, *fakeMailer) {
	tokens := service.NewTokenService("test-secret")
	mailer := newFakeMailer()
	return &SignupHandler{Store: store, Tokens: tokens, Mail: mailer}, tokens, mailer
}

func TestSignupEmployee(t *testing.T) {
	store := newFakeStore()
	h, tokens, _ := newSignupHandler(store)

	rec := postJSON(t, http.HandlerFunc(h.Employee), "/api/signup", SignupEmployeeRequest{
		Email: "Eva@Shop.com", Username: "eva", Name: "Eva", LastName: "Luna",
		Password: "claveemp", UserType: "colaborador",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	claims, err := tokens.ParseSession(cookieNamed(t, rec, middleware.AuthCookieName).Value)
	require.NoError(t, err)
	assert.Equal(t, "colaborador", claims.Role)
	assert.Equal(t, "eva@shop.com", claims.Email)

	acct, err := store.ResolveAccount(context.Background(), "eva@shop.com")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, models.AccountEmployee, acct.Kind)
}

func TestSignupEmployee_RejectsReservedUserTypes(t *testing.T) {
	h, _, _ := newSignupHandler(newFakeStore())

	for _, userType := range []string{"admin", "customer"} {
		rec := postJSON(t, http.HandlerFunc(h.Employee), "/api/signup", SignupEmployeeRequest{
			Email: "x@shop.com", Username: "x", Password: "p", UserType: userType,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, CodeInvalidUserType, decodeError(t, rec).Code)
	}
}

func TestSignupEmployee_DuplicateEmail(t *testing.T) {
	store := newFakeStore()
	store.addCustomer(t, "taken@shop.com", "x")
	h, _, _ := newSignupHandler(store)

	rec := postJSON(t, http.HandlerFunc(h.Employee), "/api/signup", SignupEmployeeRequest{
		Email: "taken@shop.com", Username: "t", Password: "p",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupCustomer_SendsVerificationCode(t *testing.T) {
	store := newFakeStore()
	h, tokens, mailer := newSignupHandler(store)

	rec := postJSON(t, http.HandlerFunc(h.Customer), "/api/signupCustomer", SignupCustomerRequest{
		Email: "ana@shop.com", Username: "ana", Name: "Ana", LastName: "Serrano",
		Password: "contrasena",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	customer := store.customerByEmail("ana@shop.com")
	require.NotNil(t, customer)
	assert.False(t, customer.IsVerified)

	cookie := cookieNamed(t, rec, "verificationToken")
	claims, err := tokens.ParseVerification(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "ana@shop.com", claims.Email)
	assert.Len(t, claims.Code, 6)
	assert.Equal(t, claims.Code, mailer.waitForCode(t))
}

func TestVerifyCodeEmail(t *testing.T) {
	store := newFakeStore()
	id := store.addCustomer(t, "ana@shop.com", "contrasena")
	h, tokens, _ := newSignupHandler(store)

	tok, err := tokens.IssueVerification("ana@shop.com", "a1b2c3")
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "verificationToken", Value: tok}
	verify := http.HandlerFunc(h.VerifyCodeEmail)

	// Wrong code: 400, still unverified.
	rec := postJSON(t, verify, "/api/signupCustomer/verifyCode",
		VerifyEmailRequest{VerCodeRequest: "ffffff"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, store.customers[id].IsVerified)

	// Correct code: verified, cookie cleared.
	rec = postJSON(t, verify, "/api/signupCustomer/verifyCode",
		VerifyEmailRequest{VerCodeRequest: "a1b2c3"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.customers[id].IsVerified)
	assert.Negative(t, cookieNamed(t, rec, "verificationToken").MaxAge)
}

func TestVerifyCodeEmail_MissingCookie(t *testing.T) {
	h, _, _ := newSignupHandler(newFakeStore())

	rec := postJSON(t, http.HandlerFunc(h.VerifyCodeEmail), "/api/signupCustomer/verifyCode",
		VerifyEmailRequest{VerCodeRequest: "a1b2c3"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, middleware.CodeNoToken, decodeError(t, rec).Code)
}
