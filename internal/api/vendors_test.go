package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) registerVendor(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/accounts/register/", "", map[string]any{
		"username": "shine", "email": email, "password": "pw",
		"phone": "9000011111", "city": "Pune", "state": "MH", "pincode": "411001",
		"is_provider": true,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(s.t, true, decodeMap(s.t, rec)["is_provider"])

	rec = s.do(http.MethodPost, "/api/accounts/login/", "", map[string]string{"email": email, "password": "pw"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeMap(s.t, rec)["access"].(string)
}

func (s *testServer) postForm(path, token string, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(s.t, w.WriteField(name, value))
	}
	part, err := w.CreateFormFile("logo", "leak.png")
	require.NoError(s.t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Categories(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodGet, "/api/categories/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
			Slug string      `json:"slug"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Results)
	assert.Equal(t, "car-wash", body.Results[0].Slug)
}

func TestRouter_PasswordReset(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodPost, "/api/accounts/password-reset/", "", map[string]string{"email": "demo@tellme.local"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, issued := s.store.ResetToken("demo@tellme.local")
	assert.True(t, issued)

	rec = s.do(http.MethodPost, "/api/accounts/password-reset/", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMap(t, rec), "email")

	rec = s.do(http.MethodPost, "/api/accounts/password-reset/", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CreateProvider(t *testing.T) {
	s := newTestServer(t, false)
	token := s.registerVendor("owner@leak.example")
	var plumbingID string
	for _, c := range s.store.Categories() {
		if c.Slug == "plumbing" {
			plumbingID = itoa(c.ID)
		}
	}

	fields := map[string]string{
		"category_id":   plumbingID,
		"name":          "Leak Busters",
		"address":       "Aundh, Pune",
		"lat":           "18.56",
		"lng":           "73.80",
		"open_time":     "10:00",
		"close_time":    "12:00",
		"slot_interval": "60",
		"open_days":     `["Mon","Tue"]`,
		"charges":       "250",
		"description":   "Pipes and taps",
	}

	rec := s.postForm("/api/providers/create/", "", fields)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.postForm("/api/providers/create/", s.login(), fields)
	assert.Equal(t, http.StatusForbidden, rec.Code, "customers cannot onboard")

	rec = s.postForm("/api/providers/create/", token, fields)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeMap(t, rec)
	assert.Equal(t, "Leak Busters", created["name"])
	assert.Equal(t, "/media/providers/leak.png", created["logo"])
	assert.Equal(t, []any{"Mon", "Tue"}, created["open_days"])
	assert.Equal(t, "10:00:00", created["open_time"])

	rec = s.do(http.MethodGet, "/api/services/providers/by-service/?slug=plumbing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Leak Busters")

	rec = s.postForm("/api/providers/create/", token, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "one profile per vendor")
}

func TestRouter_CreateProviderValidation(t *testing.T) {
	s := newTestServer(t, false)
	token := s.registerVendor("owner@leak.example")
	base := map[string]string{"name": "Leak Busters", "open_time": "09:00", "close_time": "18:00", "slot_interval": "30"}

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"interval not a number", "slot_interval", "half-hour"},
		{"days not json", "open_days", "Mon,Tue"},
		{"unknown category", "category_id", "999"},
		{"malformed category", "category_id", "abc"},
		{"closes before opening", "close_time", "08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := make(map[string]string, len(base)+1)
			for k, v := range base {
				fields[k] = v
			}
			fields[tt.field] = tt.value
			rec := s.postForm("/api/providers/create/", token, fields)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}
