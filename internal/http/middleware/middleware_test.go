package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/auth-service/internal/service"
)

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errEnvelope struct {
	Error apiError `json:"error"`
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m1-end")
		})
	}

	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m2-end")
		})
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	chain := Chain(final, m1, m2)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_Generate(t *testing.T) {
	var seenID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, RequestID())
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get("X-Request-Id")
	require.NotEmpty(t, respID)
	require.Len(t, respID, 32) // 16 байт → 32 hex-символа
	require.Equal(t, respID, seenID)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, given, r.Header.Get("X-Request-Id"))
		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, RequestID())
	rr := httptest.NewRecorder()
	req := makeReq("/rid")
	req.Header.Set("X-Request-Id", given)
	chain.ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get("X-Request-Id"))
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom at /secret/path with sensitive data")
	})

	chain := Chain(h, Recover())
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "internal", env.Error.Code)
	// Детали паники не утекают на клиент.
	require.NotContains(t, rr.Body.String(), "sensitive")
}

func TestTimeout_SetsDeadline(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, Timeout(time.Second))
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, makeReq("/t"))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTimeout_NoopWhenZero(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, Timeout(0))
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, makeReq("/t"))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTimeout_RespectsExistingDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var gotDL time.Time
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDL, _ = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, Timeout(time.Millisecond))
	rr := httptest.NewRecorder()
	req := makeReq("/t").WithContext(parent)
	chain.ServeHTTP(rr, req)

	wantDL, _ := parent.Deadline()
	require.WithinDuration(t, wantDL, gotDL, time.Millisecond)
}

// staticValidator — TokenValidator с фиксированным ответом.
type staticValidator struct {
	uid   uuid.UUID
	email string
	err   error
}

func (v staticValidator) ValidateToken(context.Context, string) (uuid.UUID, string, error) {
	return v.uid, v.email, v.err
}

func TestAuthn_ValidToken_PutsIdentityIntoContext(t *testing.T) {
	uid := uuid.New()
	v := staticValidator{uid: uid, email: "user@example.com"}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, ok := UserIDFrom(r.Context())
		require.True(t, ok)
		require.Equal(t, uid, gotID)

		gotEmail, ok := EmailFrom(r.Context())
		require.True(t, ok)
		require.Equal(t, "user@example.com", gotEmail)

		w.WriteHeader(http.StatusOK)
	})

	chain := Chain(h, Authn(v))
	rr := httptest.NewRecorder()
	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	chain.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthn_MissingOrMalformedHeader(t *testing.T) {
	v := staticValidator{uid: uuid.New(), email: "user@example.com"}

	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be reached")
	})
	chain := Chain(h, Authn(v))

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcg==", "token-without-scheme"} {
		rr := httptest.NewRecorder()
		req := makeReq("/me")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		chain.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
	}
}

func TestAuthn_InvalidToken(t *testing.T) {
	v := staticValidator{err: fmt.Errorf("service.token.validateAccessToken: %w", service.ErrInvalidToken)}

	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be reached")
	})
	chain := Chain(h, Authn(v))

	rr := httptest.NewRecorder()
	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer expired.jwt")
	chain.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "unauthenticated", env.Error.Code)
}
