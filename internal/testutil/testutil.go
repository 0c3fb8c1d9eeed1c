package testutil

import (
	"bytes"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"

	"civicReporting/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The name isolates databases between tests; the handle is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache so every pooled connection sees the same database.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// GenerateJWTHS256 returns a signed JWT with the claims used by the token API.
func GenerateJWTHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// NewBrowser returns an HTTP client that keeps cookies and does not follow redirects,
// so tests can assert on Location headers.
func NewBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// PostForm submits an url-encoded form.
func PostForm(t *testing.T, c *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post %s: %v", target, err)
	}
	return resp
}

// FormFile describes a file part for PostMultipart.
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// PostMultipart submits a multipart form with optional file parts.
func PostMultipart(t *testing.T, c *http.Client, target string, fields map[string]string, files ...FormFile) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	resp, err := c.Post(target, w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post %s: %v", target, err)
	}
	return resp
}
