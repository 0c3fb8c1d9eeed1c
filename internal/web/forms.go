package web

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type registerInput struct {
	Name     string `form:"name" binding:"required,max=100"`
	Email    string `form:"email" binding:"required,email,max=254"`
	Password string `form:"password" binding:"required,max=72"`
}

func (in *registerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

type loginInput struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (in *loginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

// reportInput holds the text fields of a report; the photo is read separately.
type reportInput struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"required,max=5000"`
	Location    string `form:"location" binding:"required,max=500"`
}

func (in *reportInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
}

type normalizer interface {
	normalize()
}

// bindForm binds the request form into in, trims it and validates again so
// whitespace-only values fail the required rules.
func bindForm(c *gin.Context, in normalizer) error {
	if err := c.ShouldBind(in); err != nil {
		return err
	}
	in.normalize()
	return binding.Validator.ValidateStruct(in)
}

// invalidFields lists the form fields that failed validation, for logging.
func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, strings.ToLower(fe.Field())+":"+fe.Tag())
	}
	return out
}
