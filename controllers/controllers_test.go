package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faculty-ranker-api/repository"
	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrDuplicateName, http.StatusConflict},
		{services.ErrAlreadyRated, http.StatusConflict},
		{services.ErrQuotaExceeded, http.StatusTooManyRequests},
		{&services.OTPCooldownError{Remaining: time.Minute}, http.StatusTooManyRequests},
		{services.ErrInvalidRating, http.StatusBadRequest},
		{services.ErrInvalidImageTicket, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidOTP), http.StatusBadRequest},
		{services.ErrEmailNotAllowed, http.StatusForbidden},
		{services.ErrBanned, http.StatusForbidden},
		{&services.StorageError{Op: "x", Err: errors.New("db down")}, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		respondError(c, zap.New(core), &services.StorageError{Op: "list", Err: errors.New("dial tcp: refused")})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.Len())
}

func TestReadAllLimit(t *testing.T) {
	data, err := readAllLimit(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = readAllLimit(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, services.ErrFileTooLarge)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	storage, err := services.NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	h := NewImageController(services.NewImageService(storage, services.NewTokenIssuer("secret", 1)), nil)
	r := gin.New()
	r.POST("/upload", func(c *gin.Context) {
		c.Set("userID", "u1")
		h.UploadImage(c)
	})

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	body, contentType := multipartBody(t, "image", "smith.png", png)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded services.UploadedImage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.True(t, strings.HasPrefix(uploaded.URL, "http://localhost:8080/uploads/smith-"))
	assert.True(t, strings.HasPrefix(uploaded.PublicID, "local/"))
	assert.NotEmpty(t, uploaded.Ticket)

	body, contentType = multipartBody(t, "image", "notes.txt", []byte("plain text"))
	req = httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartBody(t, "file", "smith.png", png)
	req = httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, w.Body.String())
}

func TestGoogleCallbackRedirects(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", 1)
	auth := services.NewAuthService(repository.NewMemoryStore(), tokens, nil, nil, services.AuthConfig{}, nil)
	h := NewAuthController(auth, "http://localhost:3000", nil)
	r := gin.New()
	r.GET("/google", h.GoogleLogin)
	r.GET("/callback", h.GoogleCallback)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/google", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:3000/login?error=access_denied", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?state=x&code=y", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:3000/login?error=oauth_failed", w.Header().Get("Location"))
}
