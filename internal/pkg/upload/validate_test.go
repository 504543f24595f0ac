package upload

import (
	"errors"
	"testing"
)

var (
	pngHead  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHead = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	webpHead = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
)

func TestValidateImageBySniff(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		head     []byte
		wantMime string
		wantErr  error
	}{
		{"png", "photo.PNG", pngHead, "image/png", nil},
		{"jpeg", "photo.jpeg", jpegHead, "image/jpeg", nil},
		{"webp", "photo.webp", webpHead, "image/webp", nil},
		{"gif extension", "photo.gif", []byte("GIF89a"), "", ErrUnsupportedFormat},
		{"png named jpg", "photo.jpg", pngHead, "", ErrUnsupportedFormat},
		{"html disguised", "photo.png", []byte("<html><script>alert(1)</script>"), "", ErrScriptableContent},
		{"empty", "photo.png", nil, "", ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := ValidateImageBySniff(tt.filename, tt.head)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if mime != tt.wantMime {
				t.Fatalf("mime = %q, want %q", mime, tt.wantMime)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize(MaxImageSize); err != nil {
		t.Fatalf("max size should be accepted: %v", err)
	}
	if err := ValidateSize(MaxImageSize + 1); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if err := ValidateSize(0); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestExtension(t *testing.T) {
	if Extension("image/jpeg") != ".jpg" || Extension("image/webp") != ".webp" || Extension("text/plain") != "" {
		t.Fatalf("unexpected extension mapping")
	}
}
