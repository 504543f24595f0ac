package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxImageSize is the largest photo accepted for line art conversion (10 MiB).
const MaxImageSize = 10 << 20

var (
	ErrUnsupportedFormat = errors.New("only JPG, PNG and WEBP photos are supported")
	ErrScriptableContent = errors.New("HTML, XML and SVG content is not allowed")
	ErrFileTooLarge      = errors.New("the photo is larger than 10 MiB")
	ErrEmptyFile         = errors.New("the photo is empty")
)

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against the photo whitelist. Returns the detected mime type or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	if len(head) == 0 {
		return "", ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowedExt[ext]
	if !ok {
		return "", ErrUnsupportedFormat
	}

	detected := http.DetectContentType(head)

	// Block scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") ||
		detected == "image/svg+xml" {
		return "", ErrScriptableContent
	}

	if detected != expected {
		return "", ErrUnsupportedFormat
	}
	return detected, nil
}

// ValidateSize rejects empty and oversized uploads.
func ValidateSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxImageSize {
		return ErrFileTooLarge
	}
	return nil
}

// Extension returns the canonical file extension for a validated mime type.
func Extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
