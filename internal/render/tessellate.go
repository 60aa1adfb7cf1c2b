// SPDX-License-Identifier: MIT

package render

import (
	"log"

	"rastermap/internal/classify"
	"rastermap/internal/geo"
	"rastermap/internal/mapfile"
)

// Z-indices of the draw order, low drawn first.
const (
	zLanduse     = 7
	zDesert      = 9
	zPlain       = 10
	zForest      = 11
	zHills       = 12
	zMountains   = 13
	zBorder      = 30
	zWater       = 40
	zLeisure     = 41
	zResidential = 41
	zRailway     = 45
	zRoad        = 50
	zLabel       = 60
)

// Tessellator converts classified features into shapes on the render
// queue and tracks the projected bounds of everything it accepted.
type Tessellator struct {
	queue  shapeQueue
	bounds Box

	// Misses counts features whose render type no level of the
	// taxonomy dispatch could handle.
	Misses int
}

func NewTessellator() *Tessellator {
	return &Tessellator{bounds: NewBox()}
}

// Bounds returns the bounding box over the projected coordinates of
// all accepted shapes.
func (t *Tessellator) Bounds() Box { return t.bounds }

// Add projects the feature into world units and builds exactly one
// shape for it, or drops it. Dispatch walks the taxonomy hierarchy:
// leaf, then subcategory, category and general class.
func (t *Tessellator) Add(f *mapfile.FeatureData) {
	pts := make([]Pt, len(f.Coordinates))
	for i, c := range f.Coordinates {
		pts[i] = Pt{X: geo.MercatorX(c.Lon), Y: geo.MercatorY(c.Lat)}
	}

	shape, z, ok := t.shapeFor(f, pts)
	if !ok {
		return
	}
	for _, p := range pts {
		t.bounds.Update(p)
	}
	t.queue.push(shape, z)
}

func (t *Tessellator) shapeFor(f *mapfile.FeatureData, pts []Pt) (Shape, int, bool) {
	rt := f.RenderType
	isPolygon := f.Geometry == geo.Polygon

	switch rt {
	case classify.PlaceName:
		return &label{text: f.Label, pts: pts}, zLabel, true
	case classify.Waterway:
		return &waterway{polygon: isPolygon, pts: pts}, zWater, true
	case classify.LUNForest:
		return &geoFeature{kind: GeoForest, polygon: isPolygon, pts: pts}, zForest, true
	case classify.LUNPlain:
		return &geoFeature{kind: GeoPlain, polygon: isPolygon, pts: pts}, zPlain, true
	case classify.LUNHills:
		return &geoFeature{kind: GeoHills, polygon: isPolygon, pts: pts}, zHills, true
	case classify.LUNMountains:
		return &geoFeature{kind: GeoMountains, polygon: isPolygon, pts: pts}, zMountains, true
	case classify.LUNDesert:
		return &geoFeature{kind: GeoDesert, polygon: isPolygon, pts: pts}, zDesert, true
	case classify.LUNWater:
		return &geoFeature{kind: GeoWater, polygon: isPolygon, pts: pts}, zWater, true
	}

	switch rt.Subcategory() {
	case classify.LULeisure:
		return &geoFeature{kind: GeoLeisure, polygon: isPolygon, pts: pts}, zLeisure, true
	}

	switch rt.Category() {
	case classify.LUResidential:
		return &geoFeature{kind: GeoResidential, polygon: isPolygon, pts: pts}, zResidential, true
	}

	switch rt.General() {
	case classify.Unknown:
		return nil, 0, false
	case classify.Highway:
		return &road{kind: roadKind(rt), polygon: isPolygon, pts: pts}, zRoad, true
	case classify.Railway:
		return &railway{pts: pts}, zRailway, true
	case classify.Border:
		return &border{pts: pts}, zBorder, true
	case classify.Landuse:
		return &geoFeature{kind: GeoUnknown, polygon: isPolygon, pts: pts}, zLanduse, true
	}

	t.Misses++
	log.Printf("no renderer for type %d (feature %d)", rt, f.ID)
	return nil, 0, false
}

func roadKind(rt classify.RenderType) RoadKind {
	switch rt.Subcategory() {
	case classify.HMotorway:
		return RoadMotorway
	case classify.HTrunk:
		return RoadTrunk
	case classify.HPrimary:
		return RoadPrimary
	case classify.HSecondary:
		return RoadSecondary
	case classify.HTertiary:
		return RoadTertiary
	case classify.HResidential:
		return RoadResidential
	case classify.HTrack:
		return RoadTrack
	}
	return RoadUnknown
}
