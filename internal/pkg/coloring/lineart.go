package coloring

import (
	"errors"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Detail is the line density requested for a page.
type Detail string

const (
	DetailSoft   Detail = "soft"
	DetailMedium Detail = "medium"
	DetailBold   Detail = "bold"
)

// MaxPrintEdge is the longest edge of a generated page (A4 at 300 dpi).
const MaxPrintEdge = 2480

var ErrInvalidDetail = errors.New("unknown line detail level")

type detailParams struct {
	blurSigma float64
	// inverted pixels darker than threshold become lines
	threshold uint8
}

var detailLevels = map[Detail]detailParams{
	DetailSoft:   {blurSigma: 1.5, threshold: 215},
	DetailMedium: {blurSigma: 1.0, threshold: 230},
	DetailBold:   {blurSigma: 0.6, threshold: 240},
}

// edgeKernel is an 8-neighbour Laplacian.
var edgeKernel = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// Details lists the levels in display order.
func Details() []Detail {
	return []Detail{DetailSoft, DetailMedium, DetailBold}
}

// ParseDetail accepts a level name; empty input means medium.
func ParseDetail(s string) (Detail, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DetailMedium, nil
	}
	d := Detail(s)
	if _, ok := detailLevels[d]; !ok {
		return "", ErrInvalidDetail
	}
	return d, nil
}

// ToLineArt converts a photo into black outlines on white paper.
func ToLineArt(img image.Image, detail Detail) *image.NRGBA {
	params, ok := detailLevels[detail]
	if !ok {
		params = detailLevels[DetailMedium]
	}

	src := imaging.Fit(img, MaxPrintEdge, MaxPrintEdge, imaging.Lanczos)
	gray := imaging.Grayscale(src)
	blurred := imaging.Blur(gray, params.blurSigma)
	edges := imaging.Convolve3x3(blurred, edgeKernel, nil)
	inverted := imaging.Invert(edges)

	return imaging.AdjustFunc(inverted, func(c color.NRGBA) color.NRGBA {
		if c.R < params.threshold {
			return color.NRGBA{A: 255}
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	})
}
