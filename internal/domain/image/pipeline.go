package image

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	platformerrors "hotel-admin-go/internal/platform/errors"
)

// Pipeline reads uploads from streams and turns validation failures into field errors.
type Pipeline struct {
	validator *SecurityValidator
}

// NewPipeline constructs an upload pipeline.
func NewPipeline(logger Logger) *Pipeline {
	return &Pipeline{validator: NewSecurityValidator(logger)}
}

// Read buffers r, refusing to read past limits.MaxFileSize, and validates the result.
func (p *Pipeline) Read(field, name string, r io.Reader, limits Limits) (*Upload, error) {
	if r == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	limit := limits.MaxFileSize
	if limit <= 0 {
		limit = AvatarLimits().MaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	up := &Upload{Name: name, Data: data, ContentType: http.DetectContentType(data)}
	if err := p.Check(field, up, limits); err != nil {
		return nil, err
	}
	return up, nil
}

// Check validates an upload already in memory. A nil upload is accepted: uploads are optional.
func (p *Pipeline) Check(field string, up *Upload, limits Limits) error {
	if up == nil {
		return nil
	}
	res := p.validator.Validate(*up, limits)
	if res.IsValid {
		return nil
	}
	return platformerrors.Invalid("image.check", "invalid upload", []platformerrors.FieldError{
		{Field: field, Messages: []string{message(res.Error, limits)}},
	})
}

func message(err error, limits Limits) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("Le fichier ne doit pas dépasser %d Mo", limits.MaxFileSize/(1024*1024))
	case errors.Is(err, ErrFormat), errors.Is(err, ErrCorrupted), errors.Is(err, ErrSuspicious):
		return "Format accepté : JPEG, PNG, GIF ou WEBP"
	case errors.Is(err, ErrDimensions):
		return "Image trop grande"
	case errors.Is(err, ErrEmpty):
		return "Le fichier est vide"
	default:
		return "Fichier invalide"
	}
}
