// SPDX-License-Identifier: MIT

package render

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"rastermap/internal/geo"
	"rastermap/internal/mapfile"
)

// Renderer rasterizes geographic queries against a map file store.
// A Renderer is safe for concurrent use; each request keeps its own
// queue and canvas.
type Renderer struct {
	face font.Face
}

// NewRenderer creates a renderer. fontPath names a TTF used for
// place labels at 12 points; when empty, labels are not drawn.
func NewRenderer(fontPath string) (*Renderer, error) {
	r := &Renderer{}
	if fontPath == "" {
		log.Printf("no label font configured, place names will not be drawn")
		return r, nil
	}
	face, err := gg.LoadFontFace(fontPath, 12)
	if err != nil {
		return nil, fmt.Errorf("render: loading font %s: %w", fontPath, err)
	}
	r.face = face
	return r, nil
}

// Render draws all features of store intersecting the box onto a
// size x size canvas and returns the encoded PNG. A query matching
// nothing yields an all-white image. Cancellation is observed
// between tiles.
func (r *Renderer) Render(ctx context.Context, store *mapfile.Store,
	minLon, minLat, maxLon, maxLat float64, size int) ([]byte, error) {

	box := geo.BoundingBox{
		MinLat: minLat, MinLon: minLon,
		MaxLat: maxLat, MaxLon: maxLon,
	}

	tess := NewTessellator()
	err := store.ForEachFeature(ctx, box, func(f *mapfile.FeatureData) bool {
		tess.Add(f)
		return true
	})
	if err != nil {
		return nil, err
	}

	dc := rasterize(&tess.queue, tess.Bounds(), size, size, r.face)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("render: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
