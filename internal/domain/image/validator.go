package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Logger is the subset of the platform logger used here.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

var (
	ErrEmpty       = errors.New("empty image payload")
	ErrTooLarge    = errors.New("file size exceeds limit")
	ErrFormat      = errors.New("unsupported image format")
	ErrCorrupted   = errors.New("image cannot be decoded")
	ErrDimensions  = errors.New("image dimensions exceed limit")
	ErrSuspicious  = errors.New("potential malicious content detected")
)

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// SecurityValidator checks uploads before they are sent to the backend.
type SecurityValidator struct {
	logger Logger
}

// NewSecurityValidator constructs a new validator instance.
func NewSecurityValidator(logger Logger) *SecurityValidator {
	return &SecurityValidator{logger: logger}
}

// Validate runs size, format, signature and decode checks against limits.
func (v *SecurityValidator) Validate(up Upload, limits Limits) ValidationResult {
	result := ValidationResult{FileSize: int64(len(up.Data))}

	if len(up.Data) == 0 {
		result.Error = ErrEmpty
		return result
	}
	if limits.MaxFileSize > 0 && int64(len(up.Data)) > limits.MaxFileSize {
		result.Error = fmt.Errorf("%w: %d bytes (max %d bytes)", ErrTooLarge, len(up.Data), limits.MaxFileSize)
		result.SecurityRisk = "file too large"
		v.warn("detected oversized image: name=%s size=%d max_size=%d", up.Name, len(up.Data), limits.MaxFileSize)
		return result
	}

	declared := up.Ext()
	if declared != "" && !isFormatAllowed(declared, limits.AllowedFormats) {
		result.Error = fmt.Errorf("%w: %s", ErrFormat, declared)
		result.SecurityRisk = "unapproved format"
		return result
	}
	if scanForMaliciousContent(up.Data) {
		result.Error = ErrSuspicious
		result.SecurityRisk = "suspicious content"
		v.warn("rejected suspicious upload: name=%s header=%x", up.Name, up.Data[:min(len(up.Data), 8)])
		return result
	}

	cfg, actual, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrCorrupted, err)
		result.SecurityRisk = "corrupted image data"
		if declared != "" && !validSignature(up.Data, declared) {
			v.warn("file signature mismatch: declared_format=%s actual_header=%x", declared, up.Data[:min(len(up.Data), 16)])
		}
		return result
	}
	result.Format = actual
	if !isFormatAllowed(actual, limits.AllowedFormats) {
		result.Error = fmt.Errorf("%w: %s", ErrFormat, actual)
		result.SecurityRisk = "unapproved format"
		return result
	}
	if (limits.MaxWidth > 0 && cfg.Width > limits.MaxWidth) || (limits.MaxHeight > 0 && cfg.Height > limits.MaxHeight) {
		result.Error = fmt.Errorf("%w: %dx%d (max %dx%d)", ErrDimensions, cfg.Width, cfg.Height, limits.MaxWidth, limits.MaxHeight)
		result.SecurityRisk = "dimensions too large"
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	if v.logger != nil {
		v.logger.Debug("image validation success: format=%s width=%d height=%d size=%d",
			result.Format, result.Width, result.Height, result.FileSize)
	}
	return result
}

func (v *SecurityValidator) warn(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Warn(msg, args...)
	}
}

func isFormatAllowed(format string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = defaultFormats
	}
	format = strings.ToLower(format)
	for _, f := range allowed {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func validSignature(data []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok {
		return true
	}
	return bytes.HasPrefix(data, signature)
}

func scanForMaliciousContent(data []byte) bool {
	suspicious := [][]byte{
		{0x4D, 0x5A},             // PE executable
		{0x25, 0x50, 0x44, 0x46}, // PDF
		{0x50, 0x4B, 0x03, 0x04}, // zip
		{0x1F, 0x8B, 0x08},       // gzip
	}
	for _, sig := range suspicious {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	head := strings.ToLower(string(data[:min(len(data), 1024)]))
	return strings.Contains(head, "<svg") || strings.Contains(head, "<script")
}
