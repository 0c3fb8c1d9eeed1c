// Package upload validates and stores photos attached to issue reports.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedFileType is returned when the filename extension is not allowed.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned when the upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
)

// DefaultExtensions are the image types accepted when none are configured.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif"}

// Intake accepts at most one photo per report.
type Intake struct {
	store       Store
	allowed     map[string]struct{}
	maxBytes    int64
	uniqueNames bool
}

// Options configures an Intake. Zero values fall back to defaults.
type Options struct {
	AllowedExtensions []string
	MaxBytes          int64
	// UniqueNames prefixes stored names with a UUID. When false, an upload whose
	// sanitised name matches an earlier one replaces it.
	UniqueNames bool
}

// NewIntake creates an Intake storing into store.
func NewIntake(store Store, opts Options) *Intake {
	exts := opts.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}
	return &Intake{store: store, allowed: allowed, maxBytes: opts.MaxBytes, uniqueNames: opts.UniqueNames}
}

// Allowed reports whether filename has an accepted extension.
func (in *Intake) Allowed(filename string) bool {
	_, ok := in.allowed[Extension(filename)]
	return ok
}

// Accept stores fh and returns its reference. A nil header yields nil, nil.
func (in *Intake) Accept(ctx context.Context, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	raw := strings.ReplaceAll(fh.Filename, `\`, "/")
	if !in.Allowed(raw) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fh.Filename)
	}
	// A name made only of non-Latin letters sanitises down to its extension.
	ext := Extension(raw)
	name := SanitizeFilename(fh.Filename)
	if Extension(name) != ext {
		name = uuid.NewString() + "." + ext
	}
	if in.maxBytes > 0 && fh.Size > in.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fh.Size, in.maxBytes)
	}
	if in.uniqueNames {
		name = uuid.NewString() + "_" + name
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ref, err := in.store.Save(ctx, name, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
