package auth

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/gatehouse/internal/pages"
	"github.com/yourusername/gatehouse/internal/session"
	"github.com/yourusername/gatehouse/internal/users"
)

// countingRepository は FindByUsername の呼び出し回数を数えます。
type countingRepository struct {
	users.Repository
	finds   int
	findErr error
}

func (r *countingRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindByUsername(ctx, username)
}

type testApp struct {
	router   *gin.Engine
	users    *users.MemoryRepository
	repo     *countingRepository
	store    *session.MemoryStore
	sessions *session.Manager
	hasher   *Hasher
	logs     *bytes.Buffer
	now      time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &testApp{
		users:  users.NewMemoryRepository(),
		store:  session.NewMemoryStore(),
		hasher: NewHasher(bcrypt.MinCost),
		logs:   &bytes.Buffer{},
		now:    time.Now(),
	}
	app.repo = &countingRepository{Repository: app.users}

	var err error
	app.sessions, err = session.NewManager(app.store, session.WithClock(func() time.Time { return app.now }))
	require.NoError(t, err)

	manager, err := NewManager(app.repo, app.sessions, app.hasher, Options{
		Logger:      log.New(app.logs, "", 0),
		ImagePicker: func() string { return "picture2.png" },
	})
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(pages.Templates())
	router.Use(Sessions(NewCookieStore("test-secret", app.sessions.TTL(), false)))
	router.POST("/submitUser", manager.SubmitUser)
	router.POST("/submitLogin", manager.SubmitLogin)
	router.GET("/loggedIn", manager.RequireLogin(), manager.LoggedIn)
	router.GET("/logout", manager.Logout)
	app.router = router
	return app
}

func (a *testApp) seedUser(t *testing.T, name, username, password string) {
	t.Helper()
	hashed, err := a.hasher.Hash(password)
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), &users.User{
		Name: name, Email: "seed@example.com", Username: username, Password: hashed,
	}))
}

func (a *testApp) post(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) onlySession(t *testing.T) *session.Record {
	t.Helper()
	ids := a.store.IDs()
	require.Len(t, ids, 1)
	record, err := a.store.Load(context.Background(), ids[0])
	require.NoError(t, err)
	require.NotNil(t, record)
	return record
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", SessionCookieName)
	return nil
}

func registrationForm(name, email, username, password string) url.Values {
	return url.Values{"name": {name}, "email": {email}, "username": {username}, "password": {password}}
}

func loginForm(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func TestSubmitUserCreatesUserAndSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.post("/submitUser", registrationForm("Ann", "a@b.com", "ann1", "abc123"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/loggedIn", rec.Header().Get("Location"))

	user, err := app.users.FindByUsername(context.Background(), "ann1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "a@b.com", user.Email)
	assert.NotEqual(t, "abc123", user.Password)
	assert.True(t, app.hasher.Verify("abc123", user.Password))

	record := app.onlySession(t)
	assert.True(t, record.Authenticated)
	assert.Equal(t, "ann1", record.Username)
	assert.Equal(t, "Ann", record.Name)

	page := app.get("/loggedIn", sessionCookie(t, rec))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Welcome Ann")
	assert.Contains(t, page.Body.String(), "picture2.png")
}

func TestSubmitUserRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"reserved username", registrationForm("Ann", "a@b.com", "admin", "abc123")},
		{"password with space", registrationForm("Ann", "a@b.com", "ann1", "abc 123")},
		{"bad email", registrationForm("Ann", "nope", "ann1", "abc123")},
		{"short name", registrationForm("An", "a@b.com", "ann1", "abc123")},
		{"missing fields", url.Values{"username": {"ann1"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)

			rec := app.post("/submitUser", tc.form)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/createUser", rec.Header().Get("Location"))
			assert.Equal(t, 0, app.users.Len())
			assert.Equal(t, 0, app.store.Len())
			assert.Contains(t, app.logs.String(), "Error with validation")
		})
	}
}

func TestSubmitUserRejectsDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "Ann", "ann1", "abc123")

	rec := app.post("/submitUser", registrationForm("Other", "o@b.com", "ann1", "xyz789"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/createUser", rec.Header().Get("Location"))
	assert.Equal(t, 1, app.users.Len())
	assert.Equal(t, 0, app.store.Len())
}

func TestSubmitLoginSuccess(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "Ann", "ann1", "abc123")

	rec := app.post("/submitLogin", loginForm("ann1", "abc123"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/loggedIn", rec.Header().Get("Location"))

	record := app.onlySession(t)
	assert.True(t, record.Authenticated)
	assert.Equal(t, "ann1", record.Username)
	assert.Equal(t, "Ann", record.Name)

	page := app.get("/loggedIn", sessionCookie(t, rec))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Welcome Ann")
}

func TestSubmitLoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		logLine string
	}{
		{"unknown user", loginForm("nobody", "abc123"), "User Not Found"},
		{"wrong password", loginForm("ann1", "wrong1"), "Wrong Password"},
		{"invalid input", loginForm("ann 1", "abc123"), "Not valid input"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.seedUser(t, "Ann", "ann1", "abc123")

			rec := app.post("/submitLogin", tc.form)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.Equal(t, 0, app.store.Len())
			assert.Contains(t, app.logs.String(), tc.logLine)
		})
	}
}

func TestSubmitLoginValidatesBeforeLookup(t *testing.T) {
	app := newTestApp(t)

	app.post("/submitLogin", loginForm("admin", "abc123"))
	assert.Equal(t, 0, app.repo.finds)

	app.post("/submitLogin", loginForm("ann1", "abc123"))
	assert.Equal(t, 1, app.repo.finds)
}

func TestSubmitLoginStoreFailure(t *testing.T) {
	app := newTestApp(t)
	app.repo.findErr = errors.New("connection refused")

	rec := app.post("/submitLogin", loginForm("ann1", "abc123"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, app.logs.String(), "connection refused")
}

func TestSubmitLoginReplacesPreviousSession(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "Ann", "ann1", "abc123")

	first := app.post("/submitLogin", loginForm("ann1", "abc123"))
	require.Equal(t, 1, app.store.Len())

	second := app.post("/submitLogin", loginForm("ann1", "abc123"), sessionCookie(t, first))
	require.Equal(t, http.StatusFound, second.Code)
	assert.Equal(t, 1, app.store.Len())
}

func TestLoggedInRequiresSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/loggedIn")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoggedInRejectsExpiredSession(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "Ann", "ann1", "abc123")

	rec := app.post("/submitLogin", loginForm("ann1", "abc123"))
	cookie := sessionCookie(t, rec)

	app.now = app.now.Add(session.DefaultTTL)
	page := app.get("/loggedIn", cookie)
	require.Equal(t, http.StatusFound, page.Code)
	assert.Equal(t, "/login", page.Header().Get("Location"))
	assert.Equal(t, 0, app.store.Len())
}

func TestLogoutIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "Ann", "ann1", "abc123")

	cookie := sessionCookie(t, app.post("/submitLogin", loginForm("ann1", "abc123")))

	for i := 0; i < 2; i++ {
		rec := app.get("/logout", cookie)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	}
	assert.Equal(t, 0, app.store.Len())

	page := app.get("/loggedIn", cookie)
	assert.Equal(t, http.StatusFound, page.Code)
	assert.Equal(t, "/login", page.Header().Get("Location"))

	rec := app.get("/logout")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestNewManagerRequiresDependencies(t *testing.T) {
	sessions, err := session.NewManager(session.NewMemoryStore())
	require.NoError(t, err)

	_, err = NewManager(nil, sessions, nil, Options{})
	require.Error(t, err)

	_, err = NewManager(users.NewMemoryRepository(), nil, nil, Options{})
	require.Error(t, err)

	m, err := NewManager(users.NewMemoryRepository(), sessions, nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, m.hasher)
}
