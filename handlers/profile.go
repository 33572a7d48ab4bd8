package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/models"
)

type ProfileHandler struct {
	Store    AccountStore
	Avatars  AvatarStorage
	MaxBytes int64
}

type ProfileResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Username   string `json:"username,omitempty"`
	Name       string `json:"name"`
	LastName   string `json:"lastName,omitempty"`
	IsVerified *bool  `json:"isVerified,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

// Profile returns the caller's account record.
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", middleware.CodeNoToken)
		return
	}
	acct, err := h.Store.AccountByID(r.Context(), kindForRole(id.Role), id.ID)
	if err != nil {
		log.Printf("profile: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile", CodeServerError)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	resp := ProfileResponse{
		ID:       acct.ID.Hex(),
		Role:     acct.Role,
		Email:    acct.Email,
		Username: acct.Username,
		Name:     acct.Name,
		LastName: acct.LastName,
	}
	if acct.Kind == models.AccountCustomer {
		v := acct.IsVerified
		resp.IsVerified = &v
	}
	if acct.AvatarS3Key != "" {
		resp.AvatarURL = "/api/profile/avatar"
	}
	writeJSON(w, http.StatusOK, resp)
}

// UploadAvatar stores a profile image in S3 and records the key on the
// caller's account. Admin accounts have no avatar field.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", middleware.CodeNoToken)
		return
	}
	if id.Role == models.RoleAdmin {
		writeError(w, http.StatusBadRequest, "admin account has no avatar", "")
		return
	}
	if h.Avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "upload not configured (missing S3)", "")
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form", "")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image", "")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only images are allowed", "")
		return
	}
	key, err := h.Avatars.Upload(r.Context(), "avatars/", header.Filename, file, contentType)
	if err != nil {
		log.Printf("avatar upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to upload image", CodeServerError)
		return
	}
	if err := h.Store.SetAvatarKey(r.Context(), kindForRole(id.Role), id.ID, key); err != nil {
		log.Printf("avatar upload: persist key: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save image", CodeServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatarUrl": "/api/profile/avatar"})
}

// Avatar streams the caller's profile image from S3.
func (h *ProfileHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", middleware.CodeNoToken)
		return
	}
	acct, err := h.Store.AccountByID(r.Context(), kindForRole(id.Role), id.ID)
	if err != nil || acct == nil {
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
		return
	}
	if acct.AvatarS3Key == "" || h.Avatars == nil {
		writeError(w, http.StatusNotFound, "no avatar", "")
		return
	}
	body, contentType, err := h.Avatars.GetObject(r.Context(), acct.AvatarS3Key)
	if err != nil {
		log.Printf("avatar: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load avatar", CodeServerError)
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	io.Copy(w, body)
}
