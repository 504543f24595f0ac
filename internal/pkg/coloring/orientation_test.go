package coloring

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOrientation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))

	tests := []struct {
		orientation int
		w, h        int
	}{
		{1, 4, 2},
		{2, 4, 2},
		{3, 4, 2},
		{5, 2, 4},
		{6, 2, 4},
		{8, 2, 4},
		{42, 4, 2},
	}
	for _, tt := range tests {
		got := ApplyOrientation(img, tt.orientation).Bounds()
		assert.Equal(t, tt.w, got.Dx(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.h, got.Dy(), "orientation %d", tt.orientation)
	}
}

func TestReadOrientationWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
	assert.Equal(t, 1, ReadOrientation(&buf))
}
