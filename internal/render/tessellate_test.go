// SPDX-License-Identifier: MIT

package render

import (
	"math"
	"testing"

	"rastermap/internal/classify"
	"rastermap/internal/geo"
	"rastermap/internal/mapfile"
)

func lineFeature(rt classify.RenderType) *mapfile.FeatureData {
	return &mapfile.FeatureData{
		ID:       1,
		Geometry: geo.Polyline,
		Coordinates: []geo.LatLon{
			{Lat: 47.0, Lon: 8.0},
			{Lat: 47.1, Lon: 8.1},
		},
		RenderType: rt,
	}
}

func polygonFeature(rt classify.RenderType) *mapfile.FeatureData {
	return &mapfile.FeatureData{
		ID:       2,
		Geometry: geo.Polygon,
		Coordinates: []geo.LatLon{
			{Lat: 47.0, Lon: 8.0},
			{Lat: 47.0, Lon: 8.2},
			{Lat: 47.2, Lon: 8.1},
		},
		RenderType: rt,
	}
}

func popOne(t *testing.T, tess *Tessellator) (Shape, int) {
	t.Helper()
	if tess.queue.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", tess.queue.Len())
	}
	it := tess.queue.items[0]
	return it.shape, it.z
}

func TestTessellateZIndex(t *testing.T) {
	tests := []struct {
		rt    classify.RenderType
		wantZ int
	}{
		{classify.PlaceName, 60},
		{classify.Waterway, 40},
		{classify.LUNForest, 11},
		{classify.LUNPlain, 10},
		{classify.LUNHills, 12},
		{classify.LUNMountains, 13},
		{classify.LUNDesert, 9},
		{classify.LUNWater, 40},
		{classify.LULeisure, 41},
		{classify.LUResidential, 41},
		{classify.Highway, 50},
		{classify.HPrimary, 50},
		{classify.Railway, 45},
		{classify.RTram, 45},
		{classify.Border, 30},
		{classify.Landuse, 7},
	}
	for _, tc := range tests {
		tess := NewTessellator()
		tess.Add(lineFeature(tc.rt))
		_, z := popOne(t, tess)
		if z != tc.wantZ {
			t.Errorf("type %d: z = %d, want %d", tc.rt, z, tc.wantZ)
		}
	}
}

func TestTessellateUnknownDropped(t *testing.T) {
	tess := NewTessellator()
	tess.Add(lineFeature(classify.Unknown))
	if tess.queue.Len() != 0 {
		t.Error("unknown features must be dropped")
	}
	if tess.Misses != 0 {
		t.Error("dropping unknown is not a dispatch miss")
	}
	if !tess.Bounds().Empty() {
		t.Error("dropped features must not grow the bounds")
	}
}

func TestTessellateDispatchMiss(t *testing.T) {
	tess := NewTessellator()
	tess.Add(polygonFeature(classify.Building))
	if tess.queue.Len() != 0 {
		t.Error("unhandled general class must be dropped")
	}
	if tess.Misses != 1 {
		t.Errorf("Misses = %d, want 1", tess.Misses)
	}
}

// The fountain leaf has no dedicated style and resolves through the
// category fallback into a residential area shape.
func TestTessellateFountainFallback(t *testing.T) {
	tess := NewTessellator()
	tess.Add(polygonFeature(classify.LURFountain))
	shape, z := popOne(t, tess)
	gf, ok := shape.(*geoFeature)
	if !ok {
		t.Fatalf("shape = %T, want *geoFeature", shape)
	}
	if gf.kind != GeoResidential {
		t.Errorf("kind = %d, want residential", gf.kind)
	}
	if z != 41 {
		t.Errorf("z = %d, want 41", z)
	}
}

func TestTessellateRoadKinds(t *testing.T) {
	tests := []struct {
		rt   classify.RenderType
		want RoadKind
	}{
		{classify.HMotorway, RoadMotorway},
		{classify.HTrunk, RoadTrunk},
		{classify.HPrimary, RoadPrimary},
		{classify.HSecondary, RoadSecondary},
		{classify.HTertiary, RoadTertiary},
		{classify.HResidential, RoadResidential},
		{classify.HTrack, RoadTrack},
		{classify.HService, RoadUnknown},
		{classify.Highway, RoadUnknown},
	}
	for _, tc := range tests {
		tess := NewTessellator()
		tess.Add(lineFeature(tc.rt))
		shape, _ := popOne(t, tess)
		rd, ok := shape.(*road)
		if !ok {
			t.Fatalf("type %d: shape = %T, want *road", tc.rt, shape)
		}
		if rd.kind != tc.want {
			t.Errorf("type %d: road kind = %d, want %d", tc.rt, rd.kind, tc.want)
		}
	}
}

func TestTessellateProjection(t *testing.T) {
	tess := NewTessellator()
	tess.Add(lineFeature(classify.Border))
	shape, _ := popOne(t, tess)
	pts := shape.points()
	if pts[0].X != 8.0 {
		t.Errorf("X = %g, want 8.0", pts[0].X)
	}
	wantY := geo.MercatorY(47.0)
	if math.Abs(pts[0].Y-wantY) > 1e-12 {
		t.Errorf("Y = %g, want %g", pts[0].Y, wantY)
	}

	b := tess.Bounds()
	if b.MinX != 8.0 || b.MaxX != 8.1 {
		t.Errorf("bounds X = [%g,%g], want [8.0,8.1]", b.MinX, b.MaxX)
	}
	if b.MinY != geo.MercatorY(47.0) || b.MaxY != geo.MercatorY(47.1) {
		t.Errorf("bounds Y = [%g,%g]", b.MinY, b.MaxY)
	}
}

func TestTessellateWaterwayGeometry(t *testing.T) {
	tess := NewTessellator()
	tess.Add(polygonFeature(classify.Waterway))
	shape, z := popOne(t, tess)
	ww, ok := shape.(*waterway)
	if !ok {
		t.Fatalf("shape = %T, want *waterway", shape)
	}
	if !ww.polygon {
		t.Error("polygon geometry should yield a polygon waterway")
	}
	if z != 40 {
		t.Errorf("z = %d, want 40", z)
	}
}

func TestQueueStableOrder(t *testing.T) {
	var q shapeQueue
	a := &border{pts: []Pt{{0, 0}, {1, 1}}}
	b := &border{pts: []Pt{{2, 2}, {3, 3}}}
	c := &border{pts: []Pt{{4, 4}, {5, 5}}}
	q.push(a, 30)
	q.push(b, 30)
	q.push(c, 7)

	if got := q.pop(); got != c {
		t.Error("lowest z must pop first")
	}
	if got := q.pop(); got != a {
		t.Error("equal z must keep insertion order")
	}
	if got := q.pop(); got != b {
		t.Error("equal z must keep insertion order")
	}
}
