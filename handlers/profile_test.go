package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"testing"

	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestProfile_UploadAndFetchAvatar(t *testing.T) {
	store := newFakeStore()
	id := store.addCustomer(t, "ana@shop.com", "contrasena")
	tokens := service.NewTokenService("test-secret")
	avatars := newFakeAvatars()
	h := &ProfileHandler{Store: store, Avatars: avatars, MaxBytes: 1 << 20}

	tok, _, err := tokens.IssueSession(id.Hex(), "customer", "ana@shop.com", "Ana", "Serrano", false)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: middleware.AuthCookieName, Value: tok}

	body, contentType := multipartImage(t, "image", "me.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	middleware.Auth(tokens)(http.HandlerFunc(h.UploadAvatar)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, store.customers[id].AvatarS3Key)

	// The profile now links the avatar and the stream endpoint serves it.
	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	middleware.Auth(tokens)(http.HandlerFunc(h.Profile)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile ProfileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "/api/profile/avatar", profile.AvatarURL)
	require.NotNil(t, profile.IsVerified)
	assert.False(t, *profile.IsVerified)

	req = httptest.NewRequest(http.MethodGet, "/api/profile/avatar", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	middleware.Auth(tokens)(http.HandlerFunc(h.Avatar)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestProfile_UploadRejectsNonImages(t *testing.T) {
	store := newFakeStore()
	id := store.addCustomer(t, "ana@shop.com", "contrasena")
	tokens := service.NewTokenService("test-secret")
	h := &ProfileHandler{Store: store, Avatars: newFakeAvatars(), MaxBytes: 1 << 20}

	tok, _, err := tokens.IssueSession(id.Hex(), "customer", "ana@shop.com", "Ana", "Serrano", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: tok})
	rec := httptest.NewRecorder()
	middleware.Auth(tokens)(http.HandlerFunc(h.UploadAvatar)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
