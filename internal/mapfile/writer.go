// SPDX-License-Identifier: MIT

package mapfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf16"

	"github.com/orcaman/writerseeker"

	"rastermap/internal/classify"
	"rastermap/internal/geo"
)

// Feature is the writer-side description of one map feature.
type Feature struct {
	ID          int64
	Geometry    geo.GeometryType
	Coordinates []geo.LatLon
	Label       string // empty = no intrinsic label
	Properties  []classify.Property
}

// Builder assembles a map file in the packed on-disk layout. It is
// the counterpart of Store and exists for fixture preparation and
// tests; converting raw survey data into features is someone else's
// job.
type Builder struct {
	tiles []*TileBuilder
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Tile returns the builder for the given tile id, creating it on
// first use. Tiles are written in the order of first use.
func (b *Builder) Tile(id int32) *TileBuilder {
	for _, t := range b.tiles {
		if t.id == id {
			return t
		}
	}
	t := &TileBuilder{id: id, interned: make(map[string]int32)}
	b.tiles = append(b.tiles, t)
	return t
}

// TileBuilder accumulates the features, coordinate pool, string
// entries and character pool of one tile.
type TileBuilder struct {
	id       int32
	features []feature
	coords   []geo.LatLon
	entries  []stringEntry
	chars    []uint16
	interned map[string]int32 // text -> offset into chars, in code units
}

// addString appends a string entry for text, sharing character pool
// space with earlier identical strings. Returns the entry index.
func (t *TileBuilder) addString(text string) int32 {
	units := utf16.Encode([]rune(text))
	start, ok := t.interned[text]
	if !ok {
		start = int32(len(t.chars))
		t.chars = append(t.chars, units...)
		t.interned[text] = start
	}
	t.entries = append(t.entries, stringEntry{Offset: start, Length: int32(len(units))})
	return int32(len(t.entries)) - 1
}

// AddFeature appends one feature to the tile.
func (t *TileBuilder) AddFeature(f Feature) {
	rec := feature{
		ID:               f.ID,
		Geometry:         f.Geometry,
		LabelOffset:      -1,
		CoordinateOffset: int32(len(t.coords)),
		CoordinateCount:  int32(len(f.Coordinates)),
		PropertyCount:    int32(len(f.Properties)),
	}
	t.coords = append(t.coords, f.Coordinates...)

	// Keys and values must occupy consecutive entries, keys at even
	// positions relative to the start.
	rec.PropertiesOffset = int32(len(t.entries))
	for _, p := range f.Properties {
		t.addString(p.Key)
		t.addString(p.Value)
	}
	if f.Label != "" {
		rec.LabelOffset = t.addString(f.Label)
	}
	t.features = append(t.features, rec)
}

// WriteTo writes the assembled file. The tile index is patched in
// after the tile blocks are laid out, which needs a seekable target.
func (b *Builder) WriteTo(w io.WriteSeeker) error {
	var buf [tileHeaderSize]byte
	pos := int64(0)

	write := func(p []byte) error {
		n, err := w.Write(p)
		pos += int64(n)
		return err
	}

	binary.LittleEndian.PutUint64(buf[0:8], uint64(SupportedVersion))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(b.tiles)))
	if err := write(buf[:fileHeaderSize]); err != nil {
		return err
	}

	// Placeholder index, patched below.
	indexPos := pos
	zero := make([]byte, tileEntrySize)
	for range b.tiles {
		if err := write(zero); err != nil {
			return err
		}
	}

	offsets := make([]uint64, len(b.tiles))
	for i, t := range b.tiles {
		offsets[i] = uint64(pos)
		if err := t.write(w, &pos); err != nil {
			return fmt.Errorf("tile %d: %w", t.id, err)
		}
	}

	end := pos
	if _, err := w.Seek(indexPos, io.SeekStart); err != nil {
		return err
	}
	for i, t := range b.tiles {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(t.id))
		binary.LittleEndian.PutUint64(buf[4:12], offsets[i])
		if _, err := w.Write(buf[:tileEntrySize]); err != nil {
			return err
		}
	}
	_, err := w.Seek(end, io.SeekStart)
	return err
}

func (t *TileBuilder) write(w io.Writer, pos *int64) error {
	var buf [tileHeaderSize]byte

	write := func(p []byte) error {
		n, err := w.Write(p)
		*pos += int64(n)
		return err
	}

	tileOff := uint64(*pos)
	coordsOff := tileOff + tileHeaderSize + uint64(len(t.features))*featureSize
	stringsOff := coordsOff + uint64(len(t.coords))*coordinateSize
	charsOff := stringsOff + uint64(len(t.entries))*stringEntrySize

	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(t.features)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(t.coords)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(t.entries)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(t.chars)))
	binary.LittleEndian.PutUint64(buf[16:24], coordsOff)
	binary.LittleEndian.PutUint64(buf[24:32], stringsOff)
	binary.LittleEndian.PutUint64(buf[32:40], charsOff)
	if err := write(buf[:tileHeaderSize]); err != nil {
		return err
	}

	for _, f := range t.features {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(f.ID))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(f.LabelOffset))
		buf[12] = byte(f.Geometry)
		binary.LittleEndian.PutUint32(buf[13:17], uint32(f.CoordinateOffset))
		binary.LittleEndian.PutUint32(buf[17:21], uint32(f.CoordinateCount))
		binary.LittleEndian.PutUint32(buf[21:25], uint32(f.PropertiesOffset))
		binary.LittleEndian.PutUint32(buf[25:29], uint32(f.PropertyCount))
		if err := write(buf[:featureSize]); err != nil {
			return err
		}
	}

	for _, c := range t.coords {
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(c.Lat))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(c.Lon))
		if err := write(buf[:coordinateSize]); err != nil {
			return err
		}
	}

	for _, e := range t.entries {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Offset))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Length))
		if err := write(buf[:stringEntrySize]); err != nil {
			return err
		}
	}

	for _, u := range t.chars {
		binary.LittleEndian.PutUint16(buf[0:2], u)
		if err := write(buf[:2]); err != nil {
			return err
		}
	}
	return nil
}

// Bytes assembles the file in memory.
func (b *Builder) Bytes() ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}
	if err := b.WriteTo(ws); err != nil {
		return nil, err
	}
	return io.ReadAll(ws.Reader())
}
