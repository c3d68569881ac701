// Package render draws the XY projection of a registration run (the
// reference cloud, the aligned moving cloud, and the winning base/quad) to
// PNG or SVG, for visual debugging. It is an external collaborator:
// registration never imports it.
package render

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/kwv/fourpcs/registration"
)

var (
	colorReference = color.RGBA{40, 90, 220, 255}
	colorAligned   = color.RGBA{220, 60, 40, 255}
	colorBase      = color.RGBA{40, 170, 80, 255}
	colorQuad      = color.RGBA{230, 150, 30, 255}
)

// canvasRenderer is satisfied by both the rasterizer and the SVG writer,
// mirroring the shared render-path interface used for dual PNG/SVG output.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Scatter renders the reference cloud, the aligned moving cloud, and an
// optional base/quad highlight, all projected onto the XY plane.
type Scatter struct {
	Reference registration.Cloud
	Aligned   registration.Cloud
	Base      *[4]registration.Point
	Quad      *[4]registration.Point

	PointRadius float64
	Padding     float64
	Resolution  canvas.Resolution
}

// NewScatter returns a Scatter configured with this codebase's rendering
// defaults.
func NewScatter(reference, aligned registration.Cloud) *Scatter {
	return &Scatter{
		Reference:   reference,
		Aligned:     aligned,
		PointRadius: 1.5,
		Padding:     20,
		Resolution:  canvas.DPI(150),
	}
}

func (s *Scatter) bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	for _, cloud := range []registration.Cloud{s.Reference, s.Aligned} {
		for _, p := range cloud {
			x, y := p.Pos[0], p.Pos[1]
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if minX > maxX {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

func (s *Scatter) renderToCanvas(r canvasRenderer, minX, minY, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	bgStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	r.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(x, y float64) (float64, float64) {
		return x - minX + s.Padding, y - minY + s.Padding
	}

	drawCloud := func(cloud registration.Cloud, col color.RGBA) {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: col}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		for _, p := range cloud {
			cx, cy := toCanvas(p.Pos[0], p.Pos[1])
			dot := canvas.Circle(s.PointRadius).Translate(cx, cy)
			r.RenderPath(dot, style, canvas.Identity)
		}
	}
	drawCloud(s.Reference, colorReference)
	drawCloud(s.Aligned, colorAligned)

	drawQuad := func(pts *[4]registration.Point, col color.RGBA) {
		if pts == nil {
			return
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: col}
		style.StrokeWidth = 1.5

		path := &canvas.Path{}
		for i, p := range pts {
			cx, cy := toCanvas(p.Pos[0], p.Pos[1])
			if i == 0 {
				path.MoveTo(cx, cy)
			} else {
				path.LineTo(cx, cy)
			}
		}
		path.Close()
		r.RenderPath(path, style, canvas.Identity)
	}
	drawQuad(s.Base, colorBase)
	drawQuad(s.Quad, colorQuad)
}

// WritePNG rasterizes the scatter to w as a PNG.
func (s *Scatter) WritePNG(w io.Writer) error {
	minX, minY, maxX, maxY := s.bounds()
	width := (maxX - minX) + 2*s.Padding
	height := (maxY - minY) + 2*s.Padding
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: nothing to draw")
	}

	rast := rasterizer.New(width, height, s.Resolution, canvas.DefaultColorSpace)
	s.renderToCanvas(rast, minX, minY, width, height)
	return png.Encode(w, rast)
}

// WriteSVG renders the scatter to w as SVG.
func (s *Scatter) WriteSVG(w io.Writer) error {
	minX, minY, maxX, maxY := s.bounds()
	width := (maxX - minX) + 2*s.Padding
	height := (maxY - minY) + 2*s.Padding
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: nothing to draw")
	}

	svgRenderer := svg.New(w, width, height, nil)
	s.renderToCanvas(svgRenderer, minX, minY, width, height)
	return svgRenderer.Close()
}
