package web

import (
	"embed"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"civicReporting/internal/auth"
	"civicReporting/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Flash categories.
const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashError   = "error"
)

var flashCategories = []string{flashSuccess, flashWarning, flashError}

type flash struct {
	Category string
	Message  string
}

// page is the data every template receives.
type page struct {
	Title    string
	Action   string
	Accept   string
	Identity auth.Identity
	Flashes  []flash
	Issues   []models.Issue
	Form     any
}

func loadTemplates(photoURL func(*string) string) (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"photoURL": photoURL,
		"formatTime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04")
		},
	}).ParseFS(templatesFS, "templates/*.html")
}

// diskPhotoURL maps a stored disk path to its /uploads URL.
func diskPhotoURL(p *string) string {
	if p == nil || *p == "" {
		return ""
	}
	return "/uploads/" + filepath.Base(*p)
}

// objectPhotoURL is used for object storage, where the reference is "<bucket>/<key>".
func objectPhotoURL(p *string) string {
	if p == nil {
		return ""
	}
	return "/uploads/" + strings.TrimPrefix(*p, "/")
}

func addFlash(c *gin.Context, category, msg string) {
	sessions.Default(c).AddFlash(msg, category)
}

// render drains pending flashes into p and writes the template. The session is
// saved first because it sets a cookie header.
func (h *Handler) render(c *gin.Context, status int, name string, p page) {
	s := sessions.Default(c)
	for _, cat := range flashCategories {
		for _, f := range s.Flashes(cat) {
			if msg, ok := f.(string); ok {
				p.Flashes = append(p.Flashes, flash{Category: cat, Message: msg})
			}
		}
	}
	if err := s.Save(); err != nil {
		h.logger.Warn("save session", zap.Error(err))
	}
	p.Identity = identity(c)
	c.HTML(status, name, p)
}

// redirect saves the session (flashes, login state) and issues a 302.
func (h *Handler) redirect(c *gin.Context, location string) {
	if err := sessions.Default(c).Save(); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, location)
}
