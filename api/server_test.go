package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
	"github.com/Sakshi-Saware/BookSwap/market"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.New(kvstore.NewMemory(0), kvstore.WithLogger(log))
	t.Cleanup(func() { store.Close() })

	m := market.New(store, market.Options{Logger: log, PasswordCost: bcrypt.MinCost})
	fx, err := market.DefaultFixtures()
	require.NoError(t, err)
	_, err = m.Initialize(context.Background(), fx)
	require.NoError(t, err)

	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	return New(m, tokens, log, opts...)
}

func call(t *testing.T, s *Server, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func login(t *testing.T, s *Server, email string) string {
	t.Helper()
	code, body := call(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "123456",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var sess session
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "alex@mail.com")

	code, body := call(t, s, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var u market.User
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "u_alex", u.ID)
	assert.Empty(t, u.PasswordHash)

	code, _ = call(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alex@mail.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	code, _ := call(t, s, http.MethodPost, "/api/books", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, s, http.MethodGet, "/api/wishlist", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, s, http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestBookNotFound(t *testing.T) {
	s := newTestServer(t)
	code, body := call(t, s, http.MethodGet, "/api/books/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(body), "not found")
}

func TestRequestFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alex := login(t, s, "alex@mail.com")
	neha := login(t, s, "neha@mail.com")

	code, body := call(t, s, http.MethodPost, "/api/books", alex, map[string]any{
		"title": "Sapiens", "author": "Harari", "genre": "History, Anthropology", "deposit": 80,
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var book market.Book
	require.NoError(t, json.Unmarshal(body, &book))
	assert.Equal(t, "u_alex", book.OwnerID)
	assert.Equal(t, []string{"History", "Anthropology"}, book.Genre)

	draft := map[string]any{"bookId": book.ID, "type": "Borrow"}
	code, body = call(t, s, http.MethodPost, "/api/requests", neha, draft)
	require.Equal(t, http.StatusCreated, code, string(body))
	var req market.Request
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, 80, req.Deposit)

	code, _ = call(t, s, http.MethodPost, "/api/requests", neha, draft)
	assert.Equal(t, http.StatusConflict, code)

	path := "/api/requests/" + req.ID + "/status"
	code, _ = call(t, s, http.MethodPut, path, neha, map[string]string{"status": "Accepted"})
	assert.Equal(t, http.StatusForbidden, code, "requester cannot accept")

	code, _ = call(t, s, http.MethodPut, path, alex, map[string]string{"status": "Returned"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = call(t, s, http.MethodPut, path, alex, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = call(t, s, http.MethodGet, "/api/notifications", neha, nil)
	require.Equal(t, http.StatusOK, code)
	var notes []market.Notification
	require.NoError(t, json.Unmarshal(body, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, book.ID, notes[0].BookID)
}

func TestOnlyOwnerEditsBook(t *testing.T) {
	s := newTestServer(t)
	neha := login(t, s, "neha@mail.com")

	code, _ := call(t, s, http.MethodDelete, "/api/books/book_alchemist", neha, nil)
	assert.Equal(t, http.StatusForbidden, code)

	alex := login(t, s, "alex@mail.com")
	code, _ = call(t, s, http.MethodDelete, "/api/books/book_alchemist", alex, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestEventRSVPOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ron := login(t, s, "ron@mail.com")

	code, body := call(t, s, http.MethodPost, "/api/events/ev_meet_1/rsvp", ron, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var e market.Event
	require.NoError(t, json.Unmarshal(body, &e))
	require.Len(t, e.Attendees, 1)
	assert.Equal(t, market.Attendee{ID: "u_ron", Name: "Ron Das", Status: market.AttendeePending}, e.Attendees[0])

	code, _ = call(t, s, http.MethodPost, "/api/events/nope/rsvp", ron, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTokenService(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.Error(t, err)

	ts, err := NewTokenService("k", time.Minute)
	require.NoError(t, err)
	raw, err := ts.Issue("u1", "reader")
	require.NoError(t, err)
	claims, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "reader", claims.Role)

	ts.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = ts.Parse(raw)
	assert.Error(t, err, "expired token accepted")

	other, err := NewTokenService("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Parse(raw)
	assert.Error(t, err)
}

const providerKey = "provider-key"

func assertion(t *testing.T, key string, claims ExternalClaims) string {
	t.Helper()
	if claims.Issuer == "" {
		claims.Issuer = "https://id.example"
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return raw
}

func newExternalServer(t *testing.T) *Server {
	t.Helper()
	v, err := NewExternalVerifier(providerKey, "https://id.example", "")
	require.NoError(t, err)
	return newTestServer(t, WithExternalVerifier(v))
}

func externalLogin(t *testing.T, s *Server, raw string) (int, session) {
	t.Helper()
	code, body := call(t, s, http.MethodPost, "/api/auth/external", "", map[string]string{"assertion": raw})
	var sess session
	if code == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &sess))
	}
	return code, sess
}

func TestExternalSignInRejectsUnsignedIdentity(t *testing.T) {
	s := newExternalServer(t)

	code, _ := call(t, s, http.MethodPost, "/api/auth/external", "", map[string]string{
		"externalId": "u_neha", "email": "alex@mail.com",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	forged := assertion(t, "wrong-key", ExternalClaims{
		Email: "alex@mail.com", EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u_alex"},
	})
	code, _ = externalLogin(t, s, forged)
	assert.Equal(t, http.StatusUnauthorized, code)

	expired := assertion(t, providerKey, ExternalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "g-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	code, _ = externalLogin(t, s, expired)
	assert.Equal(t, http.StatusUnauthorized, code)

	otherIssuer := assertion(t, providerKey, ExternalClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "g-1", Issuer: "https://evil.example"},
	})
	code, _ = externalLogin(t, s, otherIssuer)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestExternalSignInNeverResolvesLocalIDs(t *testing.T) {
	s := newExternalServer(t)

	code, sess := externalLogin(t, s, assertion(t, providerKey, ExternalClaims{
		Name: "Mallory", RegisteredClaims: jwt.RegisteredClaims{Subject: "u_neha"},
	}))
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, "u_neha", sess.User.ID)

	// An unverified email cannot claim an existing account.
	code, _ = externalLogin(t, s, assertion(t, providerKey, ExternalClaims{
		Email: "alex@mail.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "g-2"},
	}))
	assert.Equal(t, http.StatusConflict, code)

	code, sess = externalLogin(t, s, assertion(t, providerKey, ExternalClaims{
		Email: "alex@mail.com", EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "g-3"},
	}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u_alex", sess.User.ID)
}

func TestExternalRouteOffWithoutVerifier(t *testing.T) {
	s := newTestServer(t)
	code, _ := call(t, s, http.MethodPost, "/api/auth/external", "", map[string]string{"externalId": "u_alex"})
	assert.NotEqual(t, http.StatusOK, code)
	assert.NotEqual(t, http.StatusCreated, code)
}
