package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/meteopl/internal/series"
)

// PNGOptions sets the raster size. Zero values use 1200x630.
type PNGOptions struct {
	Width  int
	Height int
}

const (
	defaultWidth  = 1200
	defaultHeight = 630
	margin        = 48
	lineHeight    = 13
)

var (
	background = color.RGBA{255, 255, 255, 255}
	ink        = color.RGBA{33, 37, 41, 255}
	grid       = color.RGBA{206, 212, 218, 255}
)

var palette = []color.RGBA{
	{13, 110, 253, 255},
	{220, 53, 69, 255},
	{25, 135, 84, 255},
	{255, 193, 7, 255},
	{111, 66, 193, 255},
	{13, 202, 240, 255},
	{253, 126, 20, 255},
	{108, 117, 125, 255},
}

// basicfont only covers Latin-1, so Polish letters are folded to ASCII.
var asciiFold = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n", "ó", "o", "ś", "s", "ź", "z", "ż", "z",
	"Ą", "A", "Ć", "C", "Ę", "E", "Ł", "L", "Ń", "N", "Ó", "O", "Ś", "S", "Ź", "Z", "Ż", "Z",
	"²", "2",
)

type bar struct {
	label string
	value float64
}

// RenderPNG draws the dataset as a bar chart: the first series of a line
// dataset, every slice of a pie or radar dataset, or the points of a
// scatter dataset.
func RenderPNG(w io.Writer, ds series.Dataset, opts PNGOptions) error {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	title := ds.Title
	switch {
	case len(ds.Scatter) > 0:
		drawScatter(img, ds.Scatter)
	case len(ds.Slices) > 0:
		bars := make([]bar, len(ds.Slices))
		for i, s := range ds.Slices {
			bars[i] = bar{label: s.Name, value: s.Value}
		}
		drawBars(img, bars, true)
	case len(ds.Series) > 0 && len(ds.Series[0].Points) > 0:
		s := ds.Series[0]
		bars := make([]bar, len(s.Points))
		for i, p := range s.Points {
			bars[i] = bar{label: p.X, value: p.Y}
		}
		title = fmt.Sprintf("%s - %s [%s]", ds.Title, s.Name, s.Unit)
		drawBars(img, bars, false)
	default:
		return fmt.Errorf("render %s: %w", ds.Kind, ErrNothingToExport)
	}
	drawText(img, title, margin, margin/2+lineHeight/2, ink)

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func plotArea(img *image.RGBA) image.Rectangle {
	b := img.Bounds()
	return image.Rect(b.Min.X+margin*2, b.Min.Y+margin, b.Max.X-margin, b.Max.Y-margin*2)
}

func drawBars(img *image.RGBA, bars []bar, labelEvery bool) {
	area := plotArea(img)
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.value)
		hi = math.Max(hi, b.value)
	}
	if hi == lo {
		hi = lo + 1
	}
	y := func(v float64) int {
		return area.Max.Y - int(math.Round((v-lo)/(hi-lo)*float64(area.Dy())))
	}

	zero := y(0)
	fill(img, image.Rect(area.Min.X, zero, area.Max.X, zero+1), grid)
	drawText(img, strconv.FormatFloat(hi, 'f', 1, 64), margin/2, area.Min.Y+lineHeight/2, ink)
	drawText(img, strconv.FormatFloat(lo, 'f', 1, 64), margin/2, area.Max.Y, ink)

	slot := float64(area.Dx()) / float64(len(bars))
	gap := int(math.Max(1, slot/5))
	step := 1
	if !labelEvery {
		step = max(1, len(bars)/10)
	}
	for i, b := range bars {
		x0 := area.Min.X + int(float64(i)*slot)
		x1 := area.Min.X + int(float64(i+1)*slot) - gap
		if x1 <= x0 {
			x1 = x0 + 1
		}
		top, bottom := y(b.value), zero
		if top > bottom {
			top, bottom = bottom, top
		}
		fill(img, image.Rect(x0, top, x1, max(bottom, top+1)), palette[i%len(palette)])
		if i%step == 0 {
			drawText(img, b.label, x0, area.Max.Y+lineHeight+4, ink)
		}
	}
}

func drawScatter(img *image.RGBA, pts []series.XY) {
	area := plotArea(img)
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	fill(img, image.Rect(area.Min.X, area.Max.Y, area.Max.X, area.Max.Y+1), grid)
	fill(img, image.Rect(area.Min.X, area.Min.Y, area.Min.X+1, area.Max.Y), grid)
	for _, p := range pts {
		x := area.Min.X + int((p.X-minX)/(maxX-minX)*float64(area.Dx()))
		y := area.Max.Y - int((p.Y-minY)/(maxY-minY)*float64(area.Dy()))
		fill(img, image.Rect(x-2, y-2, x+3, y+3), palette[0])
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(asciiFold.Replace(text))
}
