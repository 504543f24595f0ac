package coloring

import (
	"fmt"
	"path/filepath"
	"time"
)

// Directory layout below the storage root
const (
	OriginalDir   = "uploads/original"
	LineArtDir    = "uploads/coloring"
	PreviewDir    = "uploads/preview"
	ThumbnailsDir = "uploads/thumbnails"
)

// ThumbnailWidth is the width of the gallery thumbnail.
const ThumbnailWidth = 400

// Files are the paths of one page, relative to the storage root.
type Files struct {
	LineArt   string
	Preview   string
	Thumbnail string
}

// All returns the generated files in upload order.
func (f Files) All() []string {
	return []string{f.LineArt, f.Preview, f.Thumbnail}
}

func datePath(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d", t.Year(), int(t.Month()), t.Day())
}

// OriginalPath is where the uploaded photo is kept.
// Format: uploads/original/YYYY/MM/DD/<uuid><ext>
func OriginalPath(pageUUID, ext string, t time.Time) string {
	return filepath.ToSlash(filepath.Join(OriginalDir, datePath(t), pageUUID+ext))
}

// OutputFiles returns the generated file paths for a page.
func OutputFiles(pageUUID string, t time.Time) Files {
	day := datePath(t)
	return Files{
		LineArt:   filepath.ToSlash(filepath.Join(LineArtDir, day, pageUUID+".png")),
		Preview:   filepath.ToSlash(filepath.Join(PreviewDir, day, pageUUID+".webp")),
		Thumbnail: filepath.ToSlash(filepath.Join(ThumbnailsDir, day, pageUUID+"_thumb.webp")),
	}
}
