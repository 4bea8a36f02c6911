package server_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-members-gateway/internal/config"
	"github.com/jrsteele09/go-members-gateway/server"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/stretchr/testify/require"
)

const (
	cookieName  = "sid"
	annEmail    = "ann@x.com"
	annName     = "Ann"
	annPassword = "secret1"
	bobEmail    = "bob@x.com"
	bobName     = "Bob"
	bobPassword = "secret2"
)

// flakyUserRepo wraps the in-memory store and fails every call while down is set
type flakyUserRepo struct {
	*users.InMemoryUserRepo
	down atomic.Bool
}

var errDown = fmt.Errorf("connection refused")

func (f *flakyUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if f.down.Load() {
		return nil, errDown
	}
	return f.InMemoryUserRepo.GetByEmail(ctx, email)
}

func (f *flakyUserRepo) Insert(ctx context.Context, u *users.User) error {
	if f.down.Load() {
		return errDown
	}
	return f.InMemoryUserRepo.Insert(ctx, u)
}

func (f *flakyUserRepo) List(ctx context.Context) ([]*users.User, error) {
	if f.down.Load() {
		return nil, errDown
	}
	return f.InMemoryUserRepo.List(ctx)
}

type testFixture struct {
	userRepo    *flakyUserRepo
	sessionRepo *sessions.InMemoryRepo
	ts          *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "DEV")
	t.Setenv("PASSWORD_HASH_COST", "4")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SESSION_COOKIE_NAME", cookieName)
	t.Setenv("MAX_BODY_BYTES", "2048")

	c, err := config.New()
	require.NoError(t, err)

	f := &testFixture{
		userRepo:    &flakyUserRepo{InMemoryUserRepo: users.NewInMemoryUserRepo()},
		sessionRepo: sessions.NewInMemoryRepo(),
	}
	srv, err := server.New(c, server.Repos{Users: f.userRepo, Sessions: f.sessionRepo})
	require.NoError(t, err)

	f.ts = httptest.NewServer(srv)
	t.Cleanup(f.ts.Close)
	return f
}

// newClient returns a browser-like client with its own cookie jar that does not follow redirects
func (f *testFixture) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type response struct {
	status   int
	body     string
	location string
	header   http.Header
}

func read(t *testing.T, resp *http.Response, err error) response {
	t.Helper()
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{
		status:   resp.StatusCode,
		body:     string(body),
		location: resp.Header.Get("Location"),
		header:   resp.Header,
	}
}

func (f *testFixture) get(t *testing.T, c *http.Client, path string) response {
	t.Helper()
	resp, err := c.Get(f.ts.URL + path)
	return read(t, resp, err)
}

func (f *testFixture) postForm(t *testing.T, c *http.Client, path string, form url.Values) response {
	t.Helper()
	resp, err := c.PostForm(f.ts.URL+path, form)
	return read(t, resp, err)
}

func (f *testFixture) postJSON(t *testing.T, c *http.Client, path, body string) response {
	t.Helper()
	resp, err := c.Post(f.ts.URL+path, "application/json; charset=UTF-8", strings.NewReader(body))
	return read(t, resp, err)
}

func (f *testFixture) signup(t *testing.T, c *http.Client, name, email, password string) response {
	t.Helper()
	return f.postForm(t, c, server.RouteSignupSubmit, url.Values{"name": {name}, "email": {email}, "password": {password}})
}

func (f *testFixture) login(t *testing.T, c *http.Client, email, password string) response {
	t.Helper()
	return f.postForm(t, c, server.RouteLoginSubmit, url.Values{"email": {email}, "password": {password}})
}

func (f *testFixture) sessionCookie(t *testing.T, c *http.Client) *http.Cookie {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == cookieName {
			return ck
		}
	}
	return nil
}

// clientWithCookie builds a fresh client presenting only the given session cookie
func (f *testFixture) clientWithCookie(t *testing.T, ck *http.Cookie) *http.Client {
	t.Helper()
	c := f.newClient(t)
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: ck.Name, Value: ck.Value, Path: "/"}})
	return c
}

func TestLanding(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	resp := f.get(t, c, "/")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.body, `href="/signup"`)
	require.Contains(t, resp.body, `href="/login"`)
	require.NotNil(t, f.sessionCookie(t, c), "first contact issues an anonymous session")

	f.signup(t, c, annName, annEmail, annPassword)
	resp = f.get(t, c, "/")
	require.Contains(t, resp.body, "Go to Members Area")
	require.Contains(t, resp.body, `href="/logout"`)
}

func TestSessionCookieAttributes(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := http.Get(f.ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var sid *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == cookieName {
			sid = ck
		}
	}
	require.NotNil(t, sid)
	require.True(t, sid.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, sid.SameSite)
	require.Equal(t, "/", sid.Path)
}

func TestSignup(t *testing.T) {
	t.Run("first user is admin and lands on members", func(t *testing.T) {
		f := setupTestFixture(t)
		c := f.newClient(t)

		resp := f.signup(t, c, annName, annEmail, annPassword)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteMembers, resp.location)

		resp = f.get(t, c, server.RouteMembers)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, annName)
		require.Regexp(t, `/images/image_[123]\.svg`, resp.body)

		resp = f.get(t, c, server.RouteAdmin)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, annEmail)
	})

	t.Run("second user is a plain user", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signup(t, f.newClient(t), annName, annEmail, annPassword)

		bob := f.newClient(t)
		resp := f.signup(t, bob, bobName, bobEmail, bobPassword)
		require.Equal(t, http.StatusSeeOther, resp.status)

		resp = f.get(t, bob, server.RouteAdmin)
		require.Equal(t, http.StatusForbidden, resp.status)
		require.Equal(t, "Forbidden", strings.TrimSpace(resp.body))

		stored, err := f.userRepo.GetByEmail(context.Background(), bobEmail)
		require.NoError(t, err)
		require.Equal(t, users.RoleUser, stored.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signup(t, f.newClient(t), annName, annEmail, annPassword)

		c := f.newClient(t)
		resp := f.signup(t, c, "Impostor", annEmail, "whatever")
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "User with email ann@x.com already exists")
		require.Contains(t, resp.body, `<a href="/signup">Try again</a>`)

		resp = f.get(t, c, server.RouteMembers)
		require.Equal(t, http.StatusSeeOther, resp.status, "failed signup stays anonymous")
	})

	t.Run("invalid input", func(t *testing.T) {
		f := setupTestFixture(t)
		c := f.newClient(t)

		resp := f.signup(t, c, annName, "not-an-email", annPassword)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "must be a valid email")
		require.Contains(t, resp.body, "Try again")

		resp = f.signup(t, c, "", annEmail, annPassword)
		require.Contains(t, resp.body, "is not allowed to be empty")

		n, err := f.userRepo.Count(context.Background())
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("password is never stored in plaintext", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signup(t, f.newClient(t), annName, annEmail, annPassword)

		stored, err := f.userRepo.GetByEmail(context.Background(), annEmail)
		require.NoError(t, err)
		require.NotContains(t, stored.PasswordHash, annPassword)
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signup(t, f.newClient(t), annName, annEmail, annPassword)

		c := f.newClient(t)
		resp := f.login(t, c, annEmail, annPassword)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteMembers, resp.location)

		resp = f.get(t, c, server.RouteMembers)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, annName)
	})

	t.Run("wrong password and unknown email render the same message", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signup(t, f.newClient(t), annName, annEmail, annPassword)

		c := f.newClient(t)
		wrong := f.login(t, c, annEmail, "wrong-password")
		unknown := f.login(t, c, "nobody@x.com", annPassword)

		for _, resp := range []response{wrong, unknown} {
			require.Equal(t, http.StatusOK, resp.status)
			require.Contains(t, resp.body, "Invalid email/password combination")
			require.Contains(t, resp.body, `<a href="/login">Try again</a>`)
		}

		resp := f.get(t, c, server.RouteMembers)
		require.Equal(t, http.StatusSeeOther, resp.status)
	})

	t.Run("login replaces the session id", func(t *testing.T) {
		f := setupTestFixture(t)
		c := f.newClient(t)
		f.signup(t, c, annName, annEmail, annPassword)
		before := f.sessionCookie(t, c)
		require.NotNil(t, before)

		f.login(t, c, annEmail, annPassword)

		resp := f.get(t, f.clientWithCookie(t, before), server.RouteMembers)
		require.Equal(t, http.StatusSeeOther, resp.status, "the pre-login token no longer authenticates")

		resp = f.get(t, c, server.RouteMembers)
		require.Equal(t, http.StatusOK, resp.status)
	})
}

func TestMembers_Anonymous(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, f.newClient(t), server.RouteMembers)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteIndex, resp.location)
}

func TestTamperedCookie(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signup(t, c, annName, annEmail, annPassword)

	ck := f.sessionCookie(t, c)
	require.NotNil(t, ck)
	forged := &http.Cookie{Name: ck.Name, Value: ck.Value + "x"}

	resp := f.get(t, f.clientWithCookie(t, forged), server.RouteMembers)
	require.Equal(t, http.StatusSeeOther, resp.status)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signup(t, c, annName, annEmail, annPassword)
	ck := f.sessionCookie(t, c)

	resp := f.get(t, c, server.RouteLogout)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteIndex, resp.location)

	resp = f.get(t, c, server.RouteMembers)
	require.Equal(t, http.StatusSeeOther, resp.status)

	resp = f.get(t, f.clientWithCookie(t, ck), server.RouteMembers)
	require.Equal(t, http.StatusSeeOther, resp.status, "a destroyed session cannot be replayed")
}

func TestAdmin_RoleChanges(t *testing.T) {
	setup := func(t *testing.T) (*testFixture, *http.Client, *http.Client) {
		f := setupTestFixture(t)
		admin := f.newClient(t)
		f.signup(t, admin, annName, annEmail, annPassword)
		bob := f.newClient(t)
		f.signup(t, bob, bobName, bobEmail, bobPassword)
		return f, admin, bob
	}

	t.Run("promote then demote", func(t *testing.T) {
		f, admin, _ := setup(t)

		resp := f.postJSON(t, admin, server.RoutePromoteUser, `{"userId":"bob@x.com"}`)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "Role updated")

		stored, err := f.userRepo.GetByEmail(context.Background(), bobEmail)
		require.NoError(t, err)
		require.Equal(t, users.RoleAdmin, stored.Role)

		resp = f.postJSON(t, admin, server.RouteDemoteUser, `{"userId":"bob@x.com"}`)
		require.Equal(t, http.StatusOK, resp.status)

		stored, err = f.userRepo.GetByEmail(context.Background(), bobEmail)
		require.NoError(t, err)
		require.Equal(t, users.RoleUser, stored.Role)
	})

	t.Run("open sessions keep their role until the next login", func(t *testing.T) {
		f, admin, bob := setup(t)

		f.postJSON(t, admin, server.RoutePromoteUser, `{"userId":"bob@x.com"}`)

		resp := f.get(t, bob, server.RouteAdmin)
		require.Equal(t, http.StatusForbidden, resp.status)

		f.login(t, bob, bobEmail, bobPassword)
		resp = f.get(t, bob, server.RouteAdmin)
		require.Equal(t, http.StatusOK, resp.status)
	})

	t.Run("unknown user reports no change", func(t *testing.T) {
		f, admin, _ := setup(t)

		resp := f.postJSON(t, admin, server.RoutePromoteUser, `{"userId":"ghost@x.com"}`)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "No change: user ghost@x.com not found")
	})

	t.Run("malformed body", func(t *testing.T) {
		f, admin, _ := setup(t)

		resp := f.postJSON(t, admin, server.RoutePromoteUser, `not json`)
		require.Equal(t, http.StatusBadRequest, resp.status)

		resp = f.postJSON(t, admin, server.RoutePromoteUser, `{}`)
		require.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("non-admin is forbidden and nothing changes", func(t *testing.T) {
		f, _, bob := setup(t)

		resp := f.postJSON(t, bob, server.RouteDemoteUser, `{"userId":"ann@x.com"}`)
		require.Equal(t, http.StatusForbidden, resp.status)

		stored, err := f.userRepo.GetByEmail(context.Background(), annEmail)
		require.NoError(t, err)
		require.Equal(t, users.RoleAdmin, stored.Role)
	})

	t.Run("anonymous is sent to the landing page", func(t *testing.T) {
		f, _, _ := setup(t)

		resp := f.postJSON(t, f.newClient(t), server.RoutePromoteUser, `{"userId":"bob@x.com"}`)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteIndex, resp.location)

		resp = f.get(t, f.newClient(t), server.RouteAdmin)
		require.Equal(t, http.StatusSeeOther, resp.status)
	})
}

func TestStoreUnavailable(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.newClient(t)
	f.signup(t, admin, annName, annEmail, annPassword)

	f.userRepo.down.Store(true)

	resp := f.login(t, f.newClient(t), annEmail, annPassword)
	require.Equal(t, http.StatusServiceUnavailable, resp.status)
	require.NotContains(t, resp.body, errDown.Error())
	require.NotContains(t, resp.body, "Invalid email/password combination")

	resp = f.signup(t, f.newClient(t), bobName, bobEmail, bobPassword)
	require.Equal(t, http.StatusServiceUnavailable, resp.status)

	resp = f.get(t, admin, server.RouteAdmin)
	require.Equal(t, http.StatusServiceUnavailable, resp.status)
}

func TestRequestBodyLimit(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.postForm(t, f.newClient(t), server.RouteLoginSubmit, url.Values{
		"email":    {annEmail},
		"password": {strings.Repeat("x", 4096)},
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.status)

	t.Run("json role change", func(t *testing.T) {
		admin := f.newClient(t)
		f.signup(t, admin, annName, annEmail, annPassword)

		body := `{"userId":"` + strings.Repeat("x", 4096) + `@x.com"}`
		resp := f.postJSON(t, admin, server.RoutePromoteUser, body)
		require.Equal(t, http.StatusRequestEntityTooLarge, resp.status)
		require.Contains(t, resp.body, "Request body too large")
	})
}

func TestNotFound(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, f.newClient(t), "/no/such/page")
	require.Equal(t, http.StatusNotFound, resp.status)
	require.Contains(t, resp.body, "Page not found")

	resp = f.get(t, f.newClient(t), "/css/missing.css")
	require.Equal(t, http.StatusNotFound, resp.status)
}

func TestOperationalRoutes(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	resp := f.get(t, c, server.RouteHealthz)
	require.Equal(t, http.StatusOK, resp.status)
	require.JSONEq(t, `{"status":"ok"}`, resp.body)

	f.get(t, c, "/")
	resp = f.get(t, c, server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.body, "http_requests_total")

	resp = f.get(t, c, "/css/style.css")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.header.Get("Content-Type"), "text/css")

	resp = f.get(t, c, "/js/promoteDemote.js")
	require.Equal(t, http.StatusOK, resp.status)

	resp = f.get(t, c, "/images/image_1.svg")
	require.Equal(t, http.StatusOK, resp.status)
}

func TestSecurityHeaders(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, f.newClient(t), "/")
	require.Equal(t, "SAMEORIGIN", resp.header.Get("X-Frame-Options"))
	require.NotEmpty(t, resp.header.Get("X-Request-ID"))
}
