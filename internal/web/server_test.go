package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"civicReporting/internal/auth"
	"civicReporting/internal/config"
	"civicReporting/internal/metrics"
	"civicReporting/internal/testutil"
	"civicReporting/internal/upload"
	"civicReporting/models"
	"civicReporting/repository"
)

var appSeq atomic.Int64

type testApp struct {
	srv       *httptest.Server
	db        *sql.DB
	issues    *repository.IssueRepository
	auth      *auth.Service
	uploadDir string
	metrics   *metrics.Metrics
}

func newTestApp(t *testing.T, opts ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d := testutil.OpenInMemoryDB(t, fmt.Sprintf("web_%s_%d", name, appSeq.Add(1)))
	users := repository.NewUserRepository(d)
	issues := repository.NewIssueRepository(d)
	svc, err := auth.NewService(users, auth.PasswordHasher{Cost: bcrypt.MinCost})
	require.NoError(t, err)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	store, err := upload.NewDiskStore(uploadDir)
	require.NoError(t, err)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			SessionSecret: "test-session-secret",
			SessionMaxAge: time.Hour,
			JWTSecret:     "test-jwt-secret",
			TokenTTL:      time.Hour,
		},
		Upload: config.UploadConfig{
			Dir:               uploadDir,
			AllowedExtensions: upload.DefaultExtensions,
			MaxBytes:          1 << 20,
			MaxRequestBytes:   4 << 20,
			Backend:           config.BackendDisk,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	m := metrics.New("civic")
	router, err := NewRouter(Deps{
		Config:  cfg,
		Auth:    svc,
		Issues:  issues,
		Intake:  upload.NewIntake(store, upload.Options{AllowedExtensions: cfg.Upload.AllowedExtensions, MaxBytes: cfg.Upload.MaxBytes}),
		Metrics: m,
		Logger:  zap.NewNop(),
		Store:   d,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, db: d, issues: issues, auth: svc, uploadDir: uploadDir, metrics: m}
}

func (a *testApp) url(p string) string { return a.srv.URL + p }

func (a *testApp) countIssues(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, a.db.QueryRow(`SELECT COUNT(*) FROM issues`).Scan(&n))
	return n
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	return resp
}

func registerAndLogin(t *testing.T, a *testApp, name, email, password string) *http.Client {
	t.Helper()
	c := testutil.NewBrowser(t)
	resp := testutil.PostForm(t, c, a.url("/register"), url.Values{"name": {name}, "email": {email}, "password": {password}})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp = testutil.PostForm(t, c, a.url("/login"), url.Values{"email": {email}, "password": {password}})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	return c
}

func report(t *testing.T, a *testApp, c *http.Client, title string, files ...testutil.FormFile) *http.Response {
	t.Helper()
	return testutil.PostMultipart(t, c, a.url("/report"), map[string]string{
		"title":       title,
		"description": "Large " + strings.ToLower(title),
		"location":    "Main St",
	}, files...)
}

func TestEndToEnd_AliceReportsPothole(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := testutil.PostMultipart(t, c, a.url("/report"), map[string]string{
		"title":       "Pothole",
		"description": "Large pothole",
		"location":    "Main St",
	})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = get(t, c, a.url("/dashboard"))
	page := body(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(page, `class="issue"`))
	assert.Contains(t, page, `<td class="issue-title">Pothole</td>`)
	assert.Contains(t, page, `<td class="issue-status">pending</td>`)
	assert.NotContains(t, page, "issue-photo")

	user, err := repository.NewUserRepository(a.db).GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	issues, err := a.issues.ListByOwner(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Pothole", issues[0].Title)
	assert.Equal(t, models.IssueStatusPending, issues[0].Status)
	assert.Nil(t, issues[0].PhotoPath)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NewBrowser(t)
	form := url.Values{"name": {"Alice"}, "email": {"alice@x.com"}, "password": {"pw123"}}

	resp := testutil.PostForm(t, c, a.url("/register"), form)
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = testutil.PostForm(t, c, a.url("/register"), form)
	page := body(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, page, "Email already exists")
	assert.Contains(t, page, `action="/register"`)

	var n int
	require.NoError(t, a.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, "alice@x.com").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRegister_Validation(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NewBrowser(t)
	for _, form := range []url.Values{
		{"name": {"   "}, "email": {"a@x.com"}, "password": {"pw"}},
		{"name": {"A"}, "email": {"not-an-email"}, "password": {"pw"}},
		{"name": {"A"}, "email": {"a@x.com"}},
	} {
		resp := testutil.PostForm(t, c, a.url("/register"), form)
		body(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "form %v", form)
	}
	var n int
	require.NoError(t, a.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	a := newTestApp(t)
	registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	wrongPassword := testutil.PostForm(t, testutil.NewBrowser(t), a.url("/login"), url.Values{"email": {"alice@x.com"}, "password": {"nope"}})
	wrongBody := body(t, wrongPassword)
	unknownEmail := testutil.PostForm(t, testutil.NewBrowser(t), a.url("/login"), url.Values{"email": {"nobody@x.com"}, "password": {"nope"}})
	unknownBody := body(t, unknownEmail)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, wrongPassword.StatusCode, unknownEmail.StatusCode)
	assert.Equal(t, wrongBody, unknownBody)
	assert.Contains(t, wrongBody, "Invalid credentials")
}

func TestLogin_FailureDoesNotAuthenticate(t *testing.T) {
	a := newTestApp(t)
	registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	c := testutil.NewBrowser(t)
	body(t, testutil.PostForm(t, c, a.url("/login"), url.Values{"email": {"alice@x.com"}, "password": {"wrong"}}))
	resp := get(t, c, a.url("/dashboard"))
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestGuards_AnonymousIsRedirected(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NewBrowser(t)

	for _, p := range []string{"/dashboard", "/report"} {
		resp := get(t, c, a.url(p))
		body(t, resp)
		assert.Equal(t, http.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/login", resp.Header.Get("Location"), p)
	}

	resp := report(t, a, c, "Pothole")
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Zero(t, a.countIssues(t))

	resp = get(t, c, a.url("/admin_dashboard"))
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin_login", resp.Header.Get("Location"))

	resp = get(t, c, a.url("/uploads/anything.jpg"))
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestAdminDashboard_NonAdminRedirected(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := get(t, c, a.url("/admin_dashboard"))
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin_login", resp.Header.Get("Location"))

	// The admin form refuses regular accounts even with the right password.
	resp = testutil.PostForm(t, c, a.url("/admin_login"), url.Values{"email": {"alice@x.com"}, "password": {"pw123"}})
	page := body(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, page, "Invalid admin credentials")
}

func TestDashboards_OwnershipScoping(t *testing.T) {
	a := newTestApp(t)
	alice := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")
	bob := registerAndLogin(t, a, "Bob", "bob@x.com", "pw456")

	body(t, report(t, a, alice, "AliceHole"))
	body(t, report(t, a, bob, "BobBins"))

	alicePage := body(t, get(t, alice, a.url("/dashboard")))
	assert.Contains(t, alicePage, "AliceHole")
	assert.NotContains(t, alicePage, "BobBins")

	bobPage := body(t, get(t, bob, a.url("/dashboard")))
	assert.Contains(t, bobPage, "BobBins")
	assert.NotContains(t, bobPage, "AliceHole")

	_, err := a.auth.CreateUser(context.Background(), "Root", "root@x.com", "adminpw", models.RoleAdmin)
	require.NoError(t, err)
	admin := testutil.NewBrowser(t)
	resp := testutil.PostForm(t, admin, a.url("/admin_login"), url.Values{"email": {"root@x.com"}, "password": {"adminpw"}})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin_dashboard", resp.Header.Get("Location"))

	resp = get(t, admin, a.url("/admin_dashboard"))
	adminPage := body(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, adminPage, "AliceHole")
	assert.Contains(t, adminPage, "BobBins")
}

func TestReport_PhotoHandling(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := report(t, a, c, "Exe", testutil.FormFile{Field: "photo", Filename: "photo.exe", Content: []byte("MZ")})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	page := body(t, get(t, c, a.url("/dashboard")))
	assert.Contains(t, page, "The photo was not attached")

	resp = report(t, a, c, "Jpg", testutil.FormFile{Field: "photo", Filename: "photo.jpg", Content: []byte("jpegbytes")})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	all, err := a.issues.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Exe", all[0].Title)
	assert.Nil(t, all[0].PhotoPath)
	assert.Equal(t, "Jpg", all[1].Title)
	require.NotNil(t, all[1].PhotoPath)
	assert.Equal(t, filepath.Join(a.uploadDir, "photo.jpg"), *all[1].PhotoPath)

	data, err := os.ReadFile(*all[1].PhotoPath)
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(data))

	resp = get(t, c, a.url("/uploads/photo.jpg"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpegbytes", body(t, resp))

	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected photo must not be written")
}

func TestReport_RequiresFields(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := testutil.PostMultipart(t, c, a.url("/report"), map[string]string{
		"title":       "   ",
		"description": "desc",
		"location":    "Main St",
	})
	page := body(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, page, "Title, description and location are required")
	assert.Contains(t, page, "Main St")

	resp = testutil.PostForm(t, c, a.url("/report"), url.Values{"title": {"Only title"}})
	body(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, a.countIssues(t))
}

func TestReport_URLEncodedWithoutPhoto(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")
	resp := testutil.PostForm(t, c, a.url("/report"), url.Values{"title": {"Garbage"}, "description": {"Bins"}, "location": {"Elm St"}})
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 1, a.countIssues(t))
}

func TestLogout_ClearsSession(t *testing.T) {
	a := newTestApp(t)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp, err := c.Post(a.url("/logout"), "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	body(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp = get(t, c, a.url("/dashboard"))
	body(t, resp)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestPublicPages(t *testing.T) {
	a := newTestApp(t)
	c := testutil.NewBrowser(t)
	for _, p := range []string{"/", "/register", "/login", "/admin_login"} {
		resp := get(t, c, a.url(p))
		body(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}

	resp := get(t, c, a.url("/healthz"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body(t, resp))

	resp = get(t, c, a.url("/metrics"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "civic_http_requests_total")
}

func TestAPI_TokenAndIssues(t *testing.T) {
	a := newTestApp(t)
	alice := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")
	body(t, report(t, a, alice, "Pothole"))
	_, err := a.auth.CreateUser(context.Background(), "Root", "root@x.com", "adminpw", models.RoleAdmin)
	require.NoError(t, err)

	token := func(email, password string) (int, string) {
		resp, err := http.Post(a.url("/api/v1/token"), "application/json",
			strings.NewReader(`{"email":"`+email+`","password":"`+password+`"}`))
		require.NoError(t, err)
		var out tokenResponse
		raw := body(t, resp)
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.Unmarshal([]byte(raw), &out))
		}
		return resp.StatusCode, out.Token
	}
	list := func(tok, scope string) (int, []models.Issue) {
		req, err := http.NewRequest(http.MethodGet, a.url("/api/v1/issues?scope="+scope), nil)
		require.NoError(t, err)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var out struct {
			Issues []models.Issue `json:"issues"`
		}
		raw := body(t, resp)
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.Unmarshal([]byte(raw), &out))
		}
		return resp.StatusCode, out.Issues
	}

	status, _ := token("alice@x.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, aliceTok := token("alice@x.com", "pw123")
	require.Equal(t, http.StatusOK, status)
	status, issues := list(aliceTok, "mine")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, issues, 1)
	assert.Equal(t, "Pothole", issues[0].Title)

	status, _ = list(aliceTok, "all")
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = list("", "mine")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = list(aliceTok, "everything")
	assert.Equal(t, http.StatusBadRequest, status)

	status, adminTok := token("root@x.com", "adminpw")
	require.Equal(t, http.StatusOK, status)
	status, issues = list(adminTok, "all")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, issues, 1)
	status, issues = list(adminTok, "mine")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, issues)
}

func TestNewRouter_RequiresDependencies(t *testing.T) {
	_, err := NewRouter(Deps{})
	assert.Error(t, err)
}

type fakeObjects map[string]string

func (f fakeObjects) Open(_ context.Context, ref string) (io.ReadCloser, int64, string, error) {
	data, ok := f[strings.TrimPrefix(ref, "/")]
	if !ok {
		return nil, 0, "", upload.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), int64(len(data)), "image/png", nil
}

func TestObjectPhotos_ServedThroughReader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testutil.OpenInMemoryDB(t, "web_object_photos")
	svc, err := auth.NewService(repository.NewUserRepository(d), auth.PasswordHasher{Cost: bcrypt.MinCost})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "Alice", "alice@x.com", "pw123")
	require.NoError(t, err)

	cfg := &config.Config{
		Auth:   config.AuthConfig{SessionSecret: "s", SessionMaxAge: time.Hour, JWTSecret: "j", TokenTTL: time.Hour},
		Upload: config.UploadConfig{Backend: config.BackendMinio, AllowedExtensions: upload.DefaultExtensions},
	}
	router, err := NewRouter(Deps{
		Config:  cfg,
		Auth:    svc,
		Issues:  repository.NewIssueRepository(d),
		Intake:  upload.NewIntake(&upload.DiskStore{Dir: t.TempDir()}, upload.Options{}),
		Store:   d,
		Objects: fakeObjects{"civic-photos/a.png": "png"},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := testutil.NewBrowser(t)
	body(t, testutil.PostForm(t, c, srv.URL+"/login", url.Values{"email": {"alice@x.com"}, "password": {"pw123"}}))

	resp := get(t, c, srv.URL+"/uploads/civic-photos/a.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "png", body(t, resp))

	resp = get(t, c, srv.URL+"/uploads/civic-photos/missing.png")
	body(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func smallUploadLimits(cfg *config.Config) {
	cfg.Upload.MaxBytes = 1 << 10
	cfg.Upload.MaxRequestBytes = 256 << 10
}

func TestReport_PhotoOverLimitIsDroppedButIssueSaved(t *testing.T) {
	a := newTestApp(t, smallUploadLimits)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := report(t, a, c, "Big", testutil.FormFile{Field: "photo", Filename: "big.jpg", Content: bytes.Repeat([]byte("x"), 2<<10)})
	body(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	page := body(t, get(t, c, a.url("/dashboard")))
	assert.Contains(t, page, "The photo was not attached: the file is too large")

	all, err := a.issues.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Big", all[0].Title)
	assert.Nil(t, all[0].PhotoPath)

	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReport_BodyOverRequestCapIsRefused(t *testing.T) {
	a := newTestApp(t, smallUploadLimits)
	c := registerAndLogin(t, a, "Alice", "alice@x.com", "pw123")

	resp := report(t, a, c, "Huge", testutil.FormFile{Field: "photo", Filename: "huge.jpg", Content: bytes.Repeat([]byte("x"), 1<<20)})
	page := body(t, resp)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, page, "the report was not saved")
	assert.Zero(t, a.countIssues(t))
}

func TestSessionCookie_SecureFlagFollowsConfig(t *testing.T) {
	setCookies := func(a *testApp) string {
		resp := testutil.PostForm(t, testutil.NewBrowser(t), a.url("/register"),
			url.Values{"name": {"Alice"}, "email": {"alice@x.com"}, "password": {"pw123"}})
		body(t, resp)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		return strings.Join(resp.Header.Values("Set-Cookie"), "\n")
	}

	plain := setCookies(newTestApp(t))
	assert.Contains(t, plain, SessionName+"=")
	assert.NotContains(t, plain, "Secure")

	secure := setCookies(newTestApp(t, func(cfg *config.Config) { cfg.Auth.CookieSecure = true }))
	assert.Contains(t, secure, SessionName+"=")
	assert.Contains(t, secure, "Secure")
}

func TestNewRouter_GinModeFollowsDebug(t *testing.T) {
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })
	d := testutil.OpenInMemoryDB(t, "web_gin_mode")
	svc, err := auth.NewService(repository.NewUserRepository(d), auth.PasswordHasher{Cost: bcrypt.MinCost})
	require.NoError(t, err)
	build := func(debug bool) {
		cfg := &config.Config{
			Server: config.ServerConfig{Debug: debug},
			Auth:   config.AuthConfig{SessionSecret: "s", SessionMaxAge: time.Hour},
			Upload: config.UploadConfig{Backend: config.BackendDisk, Dir: t.TempDir()},
		}
		_, err := NewRouter(Deps{
			Config: cfg,
			Auth:   svc,
			Issues: repository.NewIssueRepository(d),
			Intake: upload.NewIntake(&upload.DiskStore{Dir: cfg.Upload.Dir}, upload.Options{}),
			Store:  d,
		})
		require.NoError(t, err)
	}

	gin.SetMode(gin.DebugMode)
	build(false)
	assert.Equal(t, gin.ReleaseMode, gin.Mode())

	build(true)
	assert.Equal(t, gin.DebugMode, gin.Mode())
}
