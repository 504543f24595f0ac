package coloring

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squarePhoto is a white canvas with a filled black square in the middle.
func squarePhoto(size, from, to int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= from && x < to && y >= from && y < to {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func countBlack(img *image.NRGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 0 {
			n++
		}
	}
	return n
}

func TestParseDetail(t *testing.T) {
	d, err := ParseDetail("")
	require.NoError(t, err)
	assert.Equal(t, DetailMedium, d)

	d, err = ParseDetail(" Bold ")
	require.NoError(t, err)
	assert.Equal(t, DetailBold, d)

	_, err = ParseDetail("extreme")
	assert.ErrorIs(t, err, ErrInvalidDetail)

	assert.Equal(t, []Detail{DetailSoft, DetailMedium, DetailBold}, Details())
}

func TestToLineArtOutlinesShapes(t *testing.T) {
	photo := squarePhoto(96, 32, 64)

	for _, detail := range Details() {
		t.Run(string(detail), func(t *testing.T) {
			art := ToLineArt(photo, detail)
			require.Equal(t, photo.Bounds(), art.Bounds())

			assert.Greater(t, countBlack(art), 0, "edges of the square should be drawn")
			// flat areas stay paper white
			assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, art.NRGBAAt(4, 4))
			assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, art.NRGBAAt(48, 48))

			// output is strictly two-tone
			for i := 0; i < len(art.Pix); i += 4 {
				v := art.Pix[i]
				if v != 0 && v != 255 {
					t.Fatalf("pixel %d has grey value %d", i/4, v)
				}
			}
		})
	}
}

func TestToLineArtFitsPrintSize(t *testing.T) {
	wide := image.NewNRGBA(image.Rect(0, 0, 3000, 60))
	art := ToLineArt(wide, DetailMedium)
	assert.Equal(t, MaxPrintEdge, art.Bounds().Dx())
	assert.Equal(t, 50, art.Bounds().Dy())
}
