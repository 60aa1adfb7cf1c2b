// SPDX-License-Identifier: MIT

// Package render turns classified map features into drawable shapes
// and rasterizes them onto a canvas. Shapes carry world coordinates
// (Mercator-projected) and a z-index; the compositor drains them back
// to front.
package render

import (
	"container/heap"
	"math"
)

// Pt is a point in projected world units.
type Pt struct {
	X, Y float64
}

// Box is the running bounding box of all projected shape coordinates.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewBox returns a box seeded so that the first Update defines it.
func NewBox() Box {
	return Box{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

func (b *Box) Update(p Pt) {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
}

// Empty reports whether no point was ever added.
func (b Box) Empty() bool {
	return b.MinX > b.MaxX
}

// GeoKind selects the style of an area or terrain feature.
type GeoKind int

const (
	GeoUnknown GeoKind = iota
	GeoForest
	GeoPlain
	GeoHills
	GeoMountains
	GeoDesert
	GeoWater
	GeoLeisure
	GeoResidential
)

// RoadKind selects the pen pair of a road.
type RoadKind int

const (
	RoadUnknown RoadKind = iota
	RoadMotorway
	RoadTrunk
	RoadPrimary
	RoadSecondary
	RoadTertiary
	RoadResidential
	RoadTrack
)

// Shape is one drawable element. Implementations live in raster.go
// next to their pens.
type Shape interface {
	points() []Pt
	draw(c *canvas)
}

type geoFeature struct {
	kind    GeoKind
	polygon bool
	pts     []Pt
}

type road struct {
	kind    RoadKind
	polygon bool
	pts     []Pt
}

type railway struct {
	pts []Pt
}

type waterway struct {
	polygon bool
	pts     []Pt
}

type border struct {
	pts []Pt
}

type label struct {
	text string
	pts  []Pt
}

func (s *geoFeature) points() []Pt { return s.pts }
func (s *road) points() []Pt       { return s.pts }
func (s *railway) points() []Pt    { return s.pts }
func (s *waterway) points() []Pt   { return s.pts }
func (s *border) points() []Pt     { return s.pts }
func (s *label) points() []Pt      { return s.pts }

// shapeQueue is a stable min-heap over (z, insertion sequence), so
// equal z-indices keep their insertion order.
type shapeQueue struct {
	items []queueItem
	seq   int
}

type queueItem struct {
	shape Shape
	z     int
	seq   int
}

func (q *shapeQueue) Len() int { return len(q.items) }

func (q *shapeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.z != b.z {
		return a.z < b.z
	}
	return a.seq < b.seq
}

func (q *shapeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *shapeQueue) Push(x any) { q.items = append(q.items, x.(queueItem)) }

func (q *shapeQueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

func (q *shapeQueue) push(s Shape, z int) {
	heap.Push(q, queueItem{shape: s, z: z, seq: q.seq})
	q.seq++
}

func (q *shapeQueue) pop() Shape {
	return heap.Pop(q).(queueItem).shape
}
