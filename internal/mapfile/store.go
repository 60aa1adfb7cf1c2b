// SPDX-License-Identifier: MIT

package mapfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"

	"rastermap/internal/classify"
	"rastermap/internal/geo"
)

// ErrFormat reports a structurally broken map file at Open: a file
// shorter than its header, an unsupported version, or a tile count
// that exceeds the mapped region. Tiles and features with offsets
// outside the region are skipped during iteration, not reported.
// I/O failures are wrapped separately.
var ErrFormat = errors.New("mapfile: bad format")

// Store gives read access to a memory-mapped map file. The mapping is
// created at Open, never written, and released by Close. A Store may
// be used from multiple goroutines concurrently; each ForEachFeature
// call keeps its own iteration state.
type Store struct {
	data      []byte
	tileCount int32
}

// Open memory-maps the map file at path and validates its header.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapfile: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mapfile: %w", err)
	}
	size := fi.Size()
	if size < fileHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, shorter than file header", ErrFormat, size)
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		return nil, fmt.Errorf("mapfile: mmap %s: %w", path, err)
	}

	hdr := parseFileHeader(data)
	if hdr.Version != SupportedVersion {
		munmapFile(data)
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, hdr.Version)
	}
	if hdr.TileCount < 0 ||
		fileHeaderSize+int64(hdr.TileCount)*tileEntrySize > size {
		munmapFile(data)
		return nil, fmt.Errorf("%w: tile count %d exceeds mapped size %d",
			ErrFormat, hdr.TileCount, size)
	}

	return &Store{data: data, tileCount: hdr.TileCount}, nil
}

// Close releases the mapping. The Store must not be used afterwards.
func (s *Store) Close() error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	return munmapFile(data)
}

// TileCount returns the number of tiles declared by the file header.
func (s *Store) TileCount() int { return int(s.tileCount) }

// TileInfo summarizes one tile for inspection tools.
type TileInfo struct {
	ID          int32
	Offset      uint64
	Features    int
	Coordinates int
	Strings     int
	Characters  int
	Valid       bool
}

// Tiles walks the tile index and returns a summary per tile.
func (s *Store) Tiles() []TileInfo {
	infos := make([]TileInfo, 0, s.tileCount)
	for i := int32(0); i < s.tileCount; i++ {
		e := parseTileEntry(s.data[fileHeaderSize+int64(i)*tileEntrySize:])
		info := TileInfo{ID: e.ID, Offset: e.Offset}
		if e.Offset+tileHeaderSize <= uint64(len(s.data)) {
			th := parseTileHeader(s.data[e.Offset:])
			info.Features = int(th.FeaturesCount)
			info.Coordinates = int(th.CoordinatesCount)
			info.Strings = int(th.StringCount)
			info.Characters = int(th.CharactersCount)
			info.Valid = s.validTile(th, e.Offset)
		}
		infos = append(infos, info)
	}
	return infos
}

// lookupTile scans the tile index for id. Realistic files hold a few
// hundred tiles, so a linear scan is fine.
func (s *Store) lookupTile(id int32) (tileHeader, uint64, bool) {
	for i := int32(0); i < s.tileCount; i++ {
		e := parseTileEntry(s.data[fileHeaderSize+int64(i)*tileEntrySize:])
		if e.ID != id {
			continue
		}
		if e.Offset+tileHeaderSize > uint64(len(s.data)) {
			return tileHeader{}, 0, false
		}
		return parseTileHeader(s.data[e.Offset:]), e.Offset, true
	}
	return tileHeader{}, 0, false
}

// validTile checks that every region the tile header points at lies
// inside the mapped file.
func (s *Store) validTile(th tileHeader, offset uint64) bool {
	size := uint64(len(s.data))
	if th.FeaturesCount < 0 || th.CoordinatesCount < 0 ||
		th.StringCount < 0 || th.CharactersCount < 0 {
		return false
	}
	if offset+tileHeaderSize+uint64(th.FeaturesCount)*featureSize > size {
		return false
	}
	if th.CoordinatesOffset+uint64(th.CoordinatesCount)*coordinateSize > size {
		return false
	}
	if th.StringsOffset+uint64(th.StringCount)*stringEntrySize > size {
		return false
	}
	if th.CharactersOffset+uint64(th.CharactersCount)*2 > size {
		return false
	}
	return true
}

// FeatureData is the borrowed view of one feature handed to the
// iteration callback. Coordinates and Properties alias iteration
// buffers and are only valid until the callback returns.
type FeatureData struct {
	ID          int64
	Geometry    geo.GeometryType
	Coordinates []geo.LatLon
	Label       string
	Properties  classify.Properties
	RenderType  classify.RenderType
}

// Visitor receives one feature at a time; returning false stops the
// whole iteration.
type Visitor func(*FeatureData) bool

var utf16Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// iterState is the per-call scratch space of ForEachFeature, so the
// hot loop reuses its buffers across features.
type iterState struct {
	coords []geo.LatLon
	props  classify.Properties
	decode func([]byte) (string, error)
}

func newIterState() *iterState {
	dec := utf16Codec.NewDecoder()
	return &iterState{
		decode: func(b []byte) (string, error) {
			out, err := dec.Bytes(b)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}
}

// ForEachFeature visits every feature in the tiles covering box that
// has at least one coordinate inside the box, edges inclusive. The
// filter is coarse: geometry may extend beyond the box and is clipped
// at rasterization. Tiles are visited in planner order, features in
// storage order. Cancellation is observed between tiles; the visitor
// stops iteration by returning false. Features with broken offsets
// are skipped, missing tiles are not an error.
func (s *Store) ForEachFeature(ctx context.Context, box geo.BoundingBox, visit Visitor) error {
	if s.data == nil {
		return fmt.Errorf("mapfile: store is closed")
	}

	st := newIterState()
	for _, id := range geo.TilesForBoundingBox(box.MinLat, box.MinLon, box.MaxLat, box.MaxLon) {
		if err := ctx.Err(); err != nil {
			return err
		}
		th, offset, ok := s.lookupTile(id)
		if !ok || !s.validTile(th, offset) {
			continue
		}
		stop, err := s.visitTile(th, offset, box, st, visit)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *Store) visitTile(th tileHeader, offset uint64, box geo.BoundingBox, st *iterState, visit Visitor) (bool, error) {
	featuresBase := offset + tileHeaderSize
	for i := int32(0); i < th.FeaturesCount; i++ {
		ft := parseFeature(s.data[featuresBase+uint64(i)*featureSize:])

		if ft.CoordinateOffset < 0 || ft.CoordinateCount < 0 ||
			ft.CoordinateOffset+ft.CoordinateCount > th.CoordinatesCount {
			continue
		}
		if !s.anyCoordinateInBox(th, ft, box) {
			continue
		}

		st.coords = st.coords[:0]
		for k := int32(0); k < ft.CoordinateCount; k++ {
			st.coords = append(st.coords, s.coordinate(th, ft.CoordinateOffset+k))
		}

		props, ok := s.properties(th, ft, st)
		if !ok {
			continue
		}

		label, ok := s.label(th, ft, props, st)
		if !ok {
			continue
		}

		data := FeatureData{
			ID:          ft.ID,
			Geometry:    ft.Geometry,
			Coordinates: st.coords,
			Label:       label,
			Properties:  props,
			RenderType:  classify.Classify(props, ft.Geometry),
		}
		if !visit(&data) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) coordinate(th tileHeader, index int32) geo.LatLon {
	b := s.data[th.CoordinatesOffset+uint64(index)*coordinateSize:]
	return geo.LatLon{
		Lat: float64FromBytes(b[0:8]),
		Lon: float64FromBytes(b[8:16]),
	}
}

func (s *Store) anyCoordinateInBox(th tileHeader, ft feature, box geo.BoundingBox) bool {
	for k := int32(0); k < ft.CoordinateCount; k++ {
		if box.Contains(s.coordinate(th, ft.CoordinateOffset+k)) {
			return true
		}
	}
	return false
}

// stringAt materializes string entry index from the tile's UTF-16
// character pool.
func (s *Store) stringAt(th tileHeader, index int32, st *iterState) (string, bool) {
	if index < 0 || index >= th.StringCount {
		return "", false
	}
	e := parseStringEntry(s.data[th.StringsOffset+uint64(index)*stringEntrySize:])
	if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > th.CharactersCount {
		return "", false
	}
	raw := s.data[th.CharactersOffset+uint64(e.Offset)*2:][:uint64(e.Length)*2]
	str, err := st.decode(raw)
	if err != nil {
		return "", false
	}
	return str, true
}

// properties materializes the ordered key-value bag of ft. Keys live
// at even string-entry positions, values at odd ones.
func (s *Store) properties(th tileHeader, ft feature, st *iterState) (classify.Properties, bool) {
	if ft.PropertyCount < 0 || ft.PropertiesOffset < 0 ||
		ft.PropertiesOffset+ft.PropertyCount*2 > th.StringCount {
		return nil, false
	}
	st.props = st.props[:0]
	for j := int32(0); j < ft.PropertyCount; j++ {
		key, ok := s.stringAt(th, ft.PropertiesOffset+j*2, st)
		if !ok {
			return nil, false
		}
		value, ok := s.stringAt(th, ft.PropertiesOffset+j*2+1, st)
		if !ok {
			return nil, false
		}
		st.props = append(st.props, classify.Property{Key: key, Value: value})
	}
	return st.props, true
}

// label prefers the value of the "name" property and falls back to
// the feature's intrinsic label string, if any.
func (s *Store) label(th tileHeader, ft feature, props classify.Properties, st *iterState) (string, bool) {
	for _, p := range props {
		if p.Key == "name" {
			return p.Value, true
		}
	}
	if ft.LabelOffset < 0 {
		return "", true
	}
	return s.stringAt(th, ft.LabelOffset, st)
}
