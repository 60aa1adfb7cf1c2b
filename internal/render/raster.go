// SPDX-License-Identifier: MIT

package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Palette, standard CSS values.
var (
	colForest      = color.RGBA{34, 139, 34, 255}   // forestgreen
	colPlain       = color.RGBA{144, 238, 144, 255} // lightgreen
	colHills       = color.RGBA{154, 205, 50, 255}  // yellowgreen
	colMountains   = color.RGBA{160, 82, 45, 255}   // sienna
	colDesert      = color.RGBA{244, 164, 96, 255}  // sandybrown
	colWater       = color.RGBA{173, 216, 230, 255} // lightblue
	colLeisure     = color.RGBA{50, 205, 50, 255}   // limegreen
	colResidential = color.RGBA{211, 211, 211, 255} // lightgray
	colUnknown     = color.RGBA{220, 220, 220, 255} // gainsboro

	colDarkGray  = color.RGBA{169, 169, 169, 255}
	colLightGray = color.RGBA{211, 211, 211, 255}
	colGray      = color.RGBA{128, 128, 128, 255}
	colBlack     = color.RGBA{0, 0, 0, 255}

	colDarkRed   = color.RGBA{139, 0, 0, 255}
	colRed       = color.RGBA{255, 0, 0, 255}
	colOrange    = color.RGBA{255, 165, 0, 255}
	colYellow    = color.RGBA{255, 255, 0, 255}
	colWhite     = color.RGBA{255, 255, 255, 255}
	colRosyBrown = color.RGBA{188, 143, 143, 255}
	colBrown     = color.RGBA{165, 42, 42, 255}
	colCoral     = color.RGBA{255, 127, 80, 255}
)

func geoColor(kind GeoKind) color.RGBA {
	switch kind {
	case GeoForest:
		return colForest
	case GeoPlain:
		return colPlain
	case GeoHills:
		return colHills
	case GeoMountains:
		return colMountains
	case GeoDesert:
		return colDesert
	case GeoWater:
		return colWater
	case GeoLeisure:
		return colLeisure
	case GeoResidential:
		return colResidential
	}
	return colUnknown
}

// roadPens maps a road kind to its foreground and background pen.
// The background is stroked first and slightly wider, giving the
// casing effect.
type roadPen struct {
	fg      color.RGBA
	fgWidth float64
	bg      color.RGBA
	bgWidth float64
}

var roadPens = map[RoadKind]roadPen{
	RoadMotorway:    {colDarkRed, 2.0, colYellow, 2.2},
	RoadTrunk:       {colRed, 1.8, colYellow, 2.0},
	RoadPrimary:     {colOrange, 1.8, colYellow, 2.0},
	RoadSecondary:   {colOrange, 1.6, colYellow, 1.8},
	RoadTertiary:    {colYellow, 1.6, colYellow, 1.8},
	RoadResidential: {colWhite, 1.6, colDarkGray, 1.8},
	RoadTrack:       {colRosyBrown, 1.4, colBrown, 1.5},
	RoadUnknown:     {colCoral, 0.2, colYellow, 0.4},
}

// canvas wraps a gg context with the world-to-pixel transform.
type canvas struct {
	dc     *gg.Context
	minX   float64
	minY   float64
	scale  float64
	height float64
	face   font.Face // nil = labels are skipped
}

// rasterize fills a white width x height canvas and draws the queue
// in ascending z-index. The scale is uniform so aspect is preserved;
// the vertical axis is flipped into screen orientation.
func rasterize(q *shapeQueue, bounds Box, width, height int, face font.Face) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetColor(colWhite)
	dc.Clear()

	if q.Len() == 0 || bounds.Empty() {
		return dc
	}

	dx := bounds.MaxX - bounds.MinX
	dy := bounds.MaxY - bounds.MinY
	var scale float64
	switch {
	case dx > 0 && dy > 0:
		scale = math.Min(float64(width)/dx, float64(height)/dy)
	case dx > 0:
		scale = float64(width) / dx
	case dy > 0:
		scale = float64(height) / dy
	default:
		scale = 1
	}

	c := &canvas{
		dc:     dc,
		minX:   bounds.MinX,
		minY:   bounds.MinY,
		scale:  scale,
		height: float64(height),
		face:   face,
	}

	for q.Len() > 0 {
		shape := q.pop()
		if len(shape.points()) < 2 {
			continue
		}
		shape.draw(c)
	}
	return dc
}

// xy transforms a world point into canvas pixels.
func (c *canvas) xy(p Pt) (float64, float64) {
	return (p.X - c.minX) * c.scale, c.height - (p.Y-c.minY)*c.scale
}

func (c *canvas) trace(pts []Pt) {
	x, y := c.xy(pts[0])
	c.dc.MoveTo(x, y)
	for _, p := range pts[1:] {
		x, y = c.xy(p)
		c.dc.LineTo(x, y)
	}
}

func (c *canvas) stroke(pts []Pt, col color.Color, width float64) {
	c.trace(pts)
	c.dc.SetColor(col)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (s *geoFeature) draw(c *canvas) {
	col := geoColor(s.kind)
	if !s.polygon {
		c.stroke(s.pts, col, 1.2)
		return
	}
	c.trace(s.pts)
	c.dc.ClosePath()
	if s.kind == GeoLeisure {
		c.dc.SetColor(color.NRGBA{col.R, col.G, col.B, 51}) // 20% alpha
		c.dc.FillPreserve()
		c.dc.SetColor(col)
		c.dc.SetLineWidth(1.2)
		c.dc.Stroke()
		return
	}
	c.dc.SetColor(col)
	c.dc.Fill()
}

func (s *waterway) draw(c *canvas) {
	if s.polygon {
		c.trace(s.pts)
		c.dc.ClosePath()
		c.dc.SetColor(colWater)
		c.dc.Fill()
		return
	}
	c.stroke(s.pts, colWater, 1.2)
}

func (s *railway) draw(c *canvas) {
	c.stroke(s.pts, colDarkGray, 2.0)
	c.dc.SetDash(2, 4, 2)
	c.stroke(s.pts, colLightGray, 1.2)
	c.dc.SetDash()
}

func (s *border) draw(c *canvas) {
	c.stroke(s.pts, colGray, 2.0)
}

func (s *road) draw(c *canvas) {
	if s.polygon {
		return
	}
	pen := roadPens[s.kind]
	c.stroke(s.pts, pen.bg, pen.bgWidth)
	c.stroke(s.pts, pen.fg, pen.fgWidth)
}

func (s *label) draw(c *canvas) {
	if c.face == nil || s.text == "" {
		return
	}
	c.dc.SetFontFace(c.face)
	c.dc.SetColor(colBlack)
	x, y := c.xy(s.pts[0])
	c.dc.DrawString(s.text, x, y)
}
