package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"civicReporting/internal/auth"
	"civicReporting/internal/config"
	"civicReporting/internal/metrics"
	"civicReporting/internal/upload"
	"civicReporting/models"
	"civicReporting/repository"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ObjectReader is satisfied by *upload.MinioStore.
type ObjectReader interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, int64, string, error)
}

// Handler bundles dependencies of the HTML and JSON surfaces.
type Handler struct {
	cfg     *config.Config
	auth    *auth.Service
	issues  repository.IssueRepositoryI
	intake  *upload.Intake
	metrics *metrics.Metrics
	logger  *zap.Logger
	store   Pinger
	objects ObjectReader
}

const (
	msgInvalidCredentials      = "Invalid credentials"
	msgInvalidAdminCredentials = "Invalid admin credentials"
)

func (h *Handler) index(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", page{Title: "Home"})
}

func (h *Handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", page{Title: "Register"})
}

func (h *Handler) register(c *gin.Context) {
	var in registerInput
	if err := bindForm(c, &in); err != nil {
		h.logger.Debug("invalid registration", zap.Strings("fields", invalidFields(err)))
		h.metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		addFlash(c, flashError, "Please provide a name, a valid email and a password")
		h.render(c, http.StatusBadRequest, "register.html", page{Title: "Register", Form: in})
		return
	}

	u, err := h.auth.Register(c.Request.Context(), in.Name, in.Email, in.Password)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		h.metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		addFlash(c, flashError, "Email already exists")
		h.render(c, http.StatusConflict, "register.html", page{Title: "Register", Form: in})
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		h.metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		addFlash(c, flashError, "Password must be at most 72 bytes")
		h.render(c, http.StatusBadRequest, "register.html", page{Title: "Register", Form: in})
		return
	case err != nil:
		h.metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		h.fail(c, err)
		return
	}

	h.metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
	addFlash(c, flashSuccess, "Registration successful")
	h.redirect(c, "/login")
}

func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", page{Title: "Log in", Action: "/login"})
}

func (h *Handler) login(c *gin.Context) {
	lp := page{Title: "Log in", Action: "/login"}
	var in loginInput
	if err := bindForm(c, &in); err != nil {
		h.loginFailed(c, "user", msgInvalidCredentials, lp)
		return
	}
	u, err := h.auth.Login(c.Request.Context(), in.Email, in.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.loginFailed(c, "user", msgInvalidCredentials, lp)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	s := sessions.Default(c)
	s.Set(auth.SessionUserIDKey, u.ID)
	s.Set(auth.SessionRoleKey, string(u.Role))
	h.metrics.LoginsTotal.WithLabelValues("user", "ok").Inc()
	h.logger.Info("user logged in", zap.Int64("user_id", u.ID))
	h.redirect(c, "/dashboard")
}

func (h *Handler) adminLoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", page{Title: "Admin log in", Action: "/admin_login"})
}

func (h *Handler) adminLogin(c *gin.Context) {
	lp := page{Title: "Admin log in", Action: "/admin_login"}
	var in loginInput
	if err := bindForm(c, &in); err != nil {
		h.loginFailed(c, "admin", msgInvalidAdminCredentials, lp)
		return
	}
	u, err := h.auth.AdminLogin(c.Request.Context(), in.Email, in.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.loginFailed(c, "admin", msgInvalidAdminCredentials, lp)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	s := sessions.Default(c)
	s.Set(auth.SessionAdminIDKey, u.ID)
	s.Set(auth.SessionRoleKey, string(models.RoleAdmin))
	h.metrics.LoginsTotal.WithLabelValues("admin", "ok").Inc()
	h.logger.Info("admin logged in", zap.Int64("user_id", u.ID))
	h.redirect(c, "/admin_dashboard")
}

// loginFailed renders the same response for unknown emails, wrong passwords and
// malformed submissions.
func (h *Handler) loginFailed(c *gin.Context, kind, msg string, p page) {
	h.metrics.LoginsTotal.WithLabelValues(kind, "invalid").Inc()
	addFlash(c, flashError, msg)
	h.render(c, http.StatusUnauthorized, "login.html", p)
}

func (h *Handler) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	addFlash(c, flashSuccess, "You have been logged out")
	h.redirect(c, "/")
}

func (h *Handler) dashboard(c *gin.Context) {
	issues, err := h.issues.ListByOwner(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", page{Title: "My issues", Issues: issues})
}

func (h *Handler) adminDashboard(c *gin.Context) {
	issues, err := h.issues.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", page{Title: "All issues", Issues: issues})
}

func (h *Handler) reportForm(c *gin.Context) {
	h.render(c, http.StatusOK, "report.html", page{Title: "Report an issue", Accept: h.acceptAttr()})
}

func (h *Handler) report(c *gin.Context) {
	ctx := c.Request.Context()
	owner := identity(c).UserID
	// Photos up to MaxRequestBytes are read and then dropped by the intake if they
	// exceed MaxBytes; larger bodies refuse the whole report.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.requestLimit())

	var in reportInput
	if err := bindForm(c, &in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.PhotosRejected.WithLabelValues("request").Inc()
			h.logger.Warn("report body over limit", zap.Int64("user_id", owner), zap.Int64("limit", tooLarge.Limit))
			addFlash(c, flashError, "The upload is too large; the report was not saved")
			h.render(c, http.StatusRequestEntityTooLarge, "report.html", page{Title: "Report an issue", Accept: h.acceptAttr(), Form: in})
			return
		}
		h.logger.Debug("invalid report", zap.Int64("user_id", owner), zap.Strings("fields", invalidFields(err)))
		addFlash(c, flashError, "Title, description and location are required")
		h.render(c, http.StatusBadRequest, "report.html", page{Title: "Report an issue", Accept: h.acceptAttr(), Form: in})
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		h.fail(c, err)
		return
	}
	photo, err := h.intake.Accept(ctx, fh)
	switch {
	case errors.Is(err, upload.ErrUnsupportedFileType):
		h.metrics.PhotosRejected.WithLabelValues("type").Inc()
		h.logger.Warn("photo rejected", zap.Int64("user_id", owner), zap.Error(err))
		addFlash(c, flashWarning, "The photo was not attached: only "+strings.Join(h.cfg.Upload.AllowedExtensions, ", ")+" files are accepted")
	case errors.Is(err, upload.ErrFileTooLarge):
		h.metrics.PhotosRejected.WithLabelValues("size").Inc()
		h.logger.Warn("photo rejected", zap.Int64("user_id", owner), zap.Error(err))
		addFlash(c, flashWarning, "The photo was not attached: the file is too large")
	case err != nil:
		h.fail(c, err)
		return
	}

	issue, err := h.issues.Create(ctx, &models.Issue{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		PhotoPath:   photo,
		UserID:      owner,
	})
	if err != nil {
		if photo != nil {
			h.logger.Error("issue insert failed after photo was stored; orphaned photo", zap.String("photo", *photo))
		}
		h.fail(c, err)
		return
	}

	h.metrics.IssuesReported.WithLabelValues(boolLabel(photo != nil)).Inc()
	h.logger.Info("issue reported", zap.Int64("issue_id", issue.ID), zap.Int64("user_id", owner), zap.Bool("photo", photo != nil))
	addFlash(c, flashSuccess, "Issue reported")
	h.redirect(c, "/dashboard")
}

func (h *Handler) healthz(c *gin.Context) {
	if err := h.store.PingContext(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// objectPhoto streams a photo kept in object storage.
func (h *Handler) objectPhoto(c *gin.Context) {
	rc, size, contentType, err := h.objects.Open(c.Request.Context(), c.Param("ref"))
	if errors.Is(err, upload.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Warn("open photo", zap.String("ref", c.Param("ref")), zap.Error(err))
		c.Status(http.StatusBadGateway)
		return
	}
	defer rc.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, nil)
}

// fail logs err and renders the generic 500 page.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	h.render(c, http.StatusInternalServerError, "error.html", page{Title: "Error"})
}

// requestLimit is the report body cap. Configs built without Load fall back to
// four times the photo limit.
func (h *Handler) requestLimit() int64 {
	if n := h.cfg.Upload.MaxRequestBytes; n > 0 {
		return n
	}
	if n := h.cfg.Upload.MaxBytes; n > 0 {
		return 4 * n
	}
	return 64 << 20
}

func (h *Handler) acceptAttr() string {
	exts := make([]string, 0, len(h.cfg.Upload.AllowedExtensions))
	for _, e := range h.cfg.Upload.AllowedExtensions {
		exts = append(exts, "."+strings.ToLower(e))
	}
	return strings.Join(exts, ",")
}

func boolLabel(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
