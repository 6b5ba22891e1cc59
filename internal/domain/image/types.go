package image

import "path/filepath"

// Upload is an image file chosen by the user, held in memory until sent.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ext returns the lower-cased extension without the dot.
func (u Upload) Ext() string {
	ext := filepath.Ext(u.Name)
	if ext == "" {
		return ""
	}
	return lower(ext[1:])
}

// Limits bounds what an upload may contain.
type Limits struct {
	MaxFileSize    int64
	MaxWidth       int
	MaxHeight      int
	AllowedFormats []string
}

var defaultFormats = []string{"jpeg", "jpg", "png", "gif", "webp"}

// PhotoLimits applies to hotel photos: 10MB.
func PhotoLimits() Limits {
	return Limits{MaxFileSize: 10 * 1024 * 1024, MaxWidth: 8192, MaxHeight: 8192, AllowedFormats: defaultFormats}
}

// AvatarLimits applies to user avatars: 5MB.
func AvatarLimits() Limits {
	return Limits{MaxFileSize: 5 * 1024 * 1024, MaxWidth: 8192, MaxHeight: 8192, AllowedFormats: defaultFormats}
}

// ValidationResult captures the outcome of security validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
