package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellme/internal/core"
	"tellme/internal/observability/metrics"
	"tellme/internal/tokens"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler, creds *core.Credentials) (*Client, *tokens.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokens.NewMemoryStore(creds)
	client := New(store, Options{BaseURL: server.URL, Timeout: 5 * time.Second, Logger: quietLogger()})
	return client, store
}

// refreshingBackend accepts "Bearer new" on /bookings/ and issues "new" on refresh
type refreshingBackend struct {
	resourceCalls atomic.Int32
	refreshCalls  atomic.Int32
	refreshStatus int
	refreshBody   string
	refreshDelay  time.Duration
	alwaysReject  bool

	mu     sync.Mutex
	bodies []string
}

func (b *refreshingBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/accounts/refresh/":
		b.refreshCalls.Add(1)
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		status := b.refreshStatus
		if status == 0 {
			status = http.StatusOK
		}
		body := b.refreshBody
		if body == "" {
			body = `{"access":"new"}`
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	case "/bookings/":
		b.resourceCalls.Add(1)
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, string(data))
		b.mu.Unlock()

		if b.alwaysReject || r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1,"status":"pending"}`)
	default:
		http.NotFound(w, r)
	}
}

func bookingCall() Request {
	return Request{
		Method: http.MethodPost,
		Path:   "/bookings/",
		JSON:   map[string]any{"service": 5, "date": "2025-03-10"},
		Auth:   AuthRequired,
	}
}

func TestDo_BearerHeaderOnlyWhenTokenPresent(t *testing.T) {
	var seen []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		if present {
			seen = append(seen, r.Header.Get("Authorization"))
		} else {
			seen = append(seen, "<none>")
		}
		_, _ = io.WriteString(w, `{}`)
	})

	client, store := newTestClient(t, handler, nil)
	ctx := context.Background()

	_, err := client.Do(ctx, Request{Path: "/services/", Auth: AuthOptional})
	require.NoError(t, err)

	store.Set(ctx, core.Credentials{AccessToken: "abc", RefreshToken: "r"})
	_, err = client.Do(ctx, Request{Path: "/services/", Auth: AuthOptional})
	require.NoError(t, err)

	_, err = client.Do(ctx, Request{Path: "/bookings/slots/", Auth: AuthNone})
	require.NoError(t, err)

	assert.Equal(t, []string{"<none>", "Bearer abc", "<none>"}, seen)
}

func TestDo_AuthRequiredFailsFastWithoutToken(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	client, _ := newTestClient(t, handler, &core.Credentials{RefreshToken: "only-refresh"})

	_, err := client.Do(context.Background(), bookingCall())
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDo_RefreshesAndRetriesOnce(t *testing.T) {
	backend := &refreshingBackend{}
	client, store := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	resp, err := client.Do(context.Background(), bookingCall())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	assert.Equal(t, int32(2), backend.resourceCalls.Load())
	assert.Equal(t, int32(1), backend.refreshCalls.Load())

	creds := store.Get(context.Background())
	require.NotNil(t, creds)
	assert.Equal(t, "new", creds.AccessToken)
	assert.Equal(t, "r1", creds.RefreshToken, "refresh token must survive an access-only refresh")

	require.Len(t, backend.bodies, 2)
	assert.Equal(t, backend.bodies[0], backend.bodies[1], "retry must resend identical body bytes")
	assert.JSONEq(t, `{"service":5,"date":"2025-03-10"}`, backend.bodies[0])
}

func TestDo_StoresRotatedRefreshToken(t *testing.T) {
	backend := &refreshingBackend{refreshBody: `{"access":"new","refresh":"r2"}`}
	client, store := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	_, err := client.Do(context.Background(), bookingCall())
	require.NoError(t, err)
	assert.Equal(t, "r2", store.Get(context.Background()).RefreshToken)
}

func TestDo_SecondUnauthorizedStopsAfterOneRetry(t *testing.T) {
	backend := &refreshingBackend{alwaysReject: true}
	client, store := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	_, err := client.Do(context.Background(), bookingCall())
	assert.ErrorIs(t, err, core.ErrSessionExpired)
	assert.Equal(t, int32(2), backend.resourceCalls.Load())
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Nil(t, store.Get(context.Background()))
}

func TestDo_UnauthorizedWithoutRefreshToken(t *testing.T) {
	backend := &refreshingBackend{}
	client, store := newTestClient(t, backend, &core.Credentials{AccessToken: "old"})

	_, err := client.Do(context.Background(), bookingCall())
	assert.ErrorIs(t, err, core.ErrSessionExpired)
	assert.Equal(t, int32(1), backend.resourceCalls.Load())
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	assert.Nil(t, store.Get(context.Background()))
}

func TestDo_RefreshFailure(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCleared bool
	}{
		{"refresh rejected", http.StatusUnauthorized, `{"detail":"Token is blacklisted"}`, true},
		{"refresh server error", http.StatusBadGateway, `bad gateway`, false},
		{"refresh without access", http.StatusOK, `{}`, false},
		{"refresh garbage", http.StatusOK, `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &refreshingBackend{refreshStatus: tt.status, refreshBody: tt.body}
			client, store := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

			_, err := client.Do(context.Background(), bookingCall())
			assert.ErrorIs(t, err, core.ErrSessionExpired)
			assert.Equal(t, int32(1), backend.resourceCalls.Load())
			if tt.wantCleared {
				assert.Nil(t, store.Get(context.Background()))
			} else {
				assert.Equal(t, "old", store.Get(context.Background()).AccessToken)
			}
		})
	}
}

func TestDo_ExpiredSessionStopsResendingDeadToken(t *testing.T) {
	backend := &refreshingBackend{refreshStatus: http.StatusUnauthorized, refreshBody: `{"detail":"Token is blacklisted"}`}
	client, _ := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	_, err := client.Do(context.Background(), bookingCall())
	assert.ErrorIs(t, err, core.ErrSessionExpired)

	_, err = client.Do(context.Background(), bookingCall())
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, int32(1), backend.resourceCalls.Load())
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
}

func TestDo_UnauthorizedOnPublicRequestIsHTTPError(t *testing.T) {
	backend := &refreshingBackend{}
	client, _ := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	req := bookingCall()
	req.Auth = AuthNone
	_, err := client.Do(context.Background(), req)

	httpErr, ok := core.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
}

func TestDo_UnauthorizedOptionalRequestWithoutToken(t *testing.T) {
	backend := &refreshingBackend{}
	client, _ := newTestClient(t, backend, nil)

	req := bookingCall()
	req.Auth = AuthOptional
	_, err := client.Do(context.Background(), req)

	httpErr, ok := core.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
}

func TestDo_OtherStatusesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"detail":"Slot already booked"}`)
	})
	client, _ := newTestClient(t, handler, &core.Credentials{AccessToken: "a", RefreshToken: "r"})

	_, err := client.Do(context.Background(), bookingCall())
	httpErr, ok := core.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, httpErr.Status)
	assert.Equal(t, "Slot already booked", httpErr.Detail())
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(tokens.NewMemoryStore(nil), Options{BaseURL: baseURL, Logger: quietLogger()})
	_, err := client.Do(context.Background(), Request{Path: "/bookings/slots/"})

	var netErr *core.NetworkError
	require.True(t, errors.As(err, &netErr), "expected NetworkError, got %v", err)
	assert.Equal(t, "GET /bookings/slots/", netErr.Op)
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	backend := &refreshingBackend{refreshDelay: 50 * time.Millisecond}
	client, _ := newTestClient(t, backend, &core.Credentials{AccessToken: "old", RefreshToken: "r1"})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(context.Background(), bookingCall())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
}

func TestDo_SetsRequestIDAndQuery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get(RequestIDHeader), "req_"))
		assert.Equal(t, "7", r.URL.Query().Get("provider_id"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `[{"label":"9:00 AM - 10:00 AM"}]`)
	})
	client, _ := newTestClient(t, handler, nil)

	var slots []map[string]string
	err := client.DoJSON(context.Background(), Request{
		Path:  "/bookings/slots/",
		Query: map[string][]string{"provider_id": {"7"}},
	}, &slots)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "9:00 AM - 10:00 AM", slots[0]["label"])
}

func TestDo_MultipartBodyResentOnRetry(t *testing.T) {
	var attempts atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accounts/refresh/" {
			_, _ = io.WriteString(w, `{"access":"new"}`)
			return
		}
		attempts.Add(1)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "home", r.FormValue("type"))
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(file)
		assert.Equal(t, "front.jpg", header.Filename)
		assert.Equal(t, "jpegbytes", string(data))

		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":3}`)
	})
	client, _ := newTestClient(t, handler, &core.Credentials{AccessToken: "old", RefreshToken: "r"})

	form := &Multipart{}
	form.Add("type", "home")
	form.AddFile("image", "front.jpg", []byte("jpegbytes"))

	resp, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/barcodes/orders/", Form: form, Auth: AuthRequired})
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())

	var out struct {
		ID core.ID `json:"id"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, core.ID("3"), out.ID)
}

func TestDo_RejectsJSONAndForm(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler(), nil)
	_, err := client.Do(context.Background(), Request{Path: "/x/", JSON: map[string]string{}, Form: &Multipart{}})
	assert.Error(t, err)
}

func TestDo_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := New(tokens.NewMemoryStore(nil), Options{
		BaseURL:           server.URL,
		RequestsPerSecond: 0.001,
		Burst:             1,
		Logger:            quietLogger(),
	})

	_, err := client.Do(context.Background(), Request{Path: "/services/"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, Request{Path: "/services/"})
	var netErr *core.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestDo_RecordsMetrics(t *testing.T) {
	backend := &refreshingBackend{}
	server := httptest.NewServer(backend)
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	client := New(tokens.NewMemoryStore(&core.Credentials{AccessToken: "old", RefreshToken: "r"}), Options{
		BaseURL: server.URL,
		Logger:  quietLogger(),
		Metrics: m,
	})

	_, err := client.Do(context.Background(), bookingCall())
	require.NoError(t, err)

	// 401 and 201 on /bookings/, 200 on the refresh endpoint
	n, err := testutil.GatherAndCount(reg, "tellme_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = testutil.GatherAndCount(reg, "tellme_client_token_refresh_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResponse_Decode(t *testing.T) {
	var v map[string]any
	require.NoError(t, (&Response{Status: http.StatusNoContent}).Decode(&v))
	assert.Nil(t, v)

	err := (&Response{Status: 200, Body: []byte("<html>")}).Decode(&v)
	assert.Error(t, err)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/barcodes/orders/:id/verify_payment/", endpointLabel("/barcodes/orders/42/verify_payment/"))
	assert.Equal(t, "/bookings/slots/", endpointLabel("/bookings/slots/"))
}

func TestAuthMode_String(t *testing.T) {
	assert.Equal(t, "none", AuthNone.String())
	assert.Equal(t, "required", AuthRequired.String())
	assert.Equal(t, "AuthMode(9)", AuthMode(9).String())
}
