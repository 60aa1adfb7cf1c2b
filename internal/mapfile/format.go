// SPDX-License-Identifier: MIT

// Package mapfile reads preprocessed binary map files. A map file is
// a memory-mapped sequence of packed little-endian records:
//
//	FileHeader | TileHeaderEntry[tileCount] | Tile...
//
// and each tile is
//
//	TileBlockHeader | MapFeature[featuresCount] | Coordinate[...] |
//	StringEntry[...] | char16[...]
//
// Structs are 1-byte packed; the character pool stores UTF-16 code
// units, and string entry offsets count code units, not bytes.
package mapfile

import (
	"encoding/binary"
	"math"

	"rastermap/internal/geo"
)

// SupportedVersion is the only file header version this reader
// accepts.
const SupportedVersion = 1

// Packed record sizes in bytes.
const (
	fileHeaderSize  = 12 // version i64, tileCount i32
	tileEntrySize   = 12 // id i32, offsetInBytes u64
	tileHeaderSize  = 40 // 4 x i32 counts, 3 x u64 offsets
	featureSize     = 29
	coordinateSize  = 16
	stringEntrySize = 8
)

// fileHeader is the fixed prefix of every map file.
type fileHeader struct {
	Version   int64
	TileCount int32
}

func parseFileHeader(b []byte) fileHeader {
	return fileHeader{
		Version:   int64(binary.LittleEndian.Uint64(b[0:8])),
		TileCount: int32(binary.LittleEndian.Uint32(b[8:12])),
	}
}

// tileEntry is one row of the tile index.
type tileEntry struct {
	ID     int32
	Offset uint64
}

func parseTileEntry(b []byte) tileEntry {
	return tileEntry{
		ID:     int32(binary.LittleEndian.Uint32(b[0:4])),
		Offset: binary.LittleEndian.Uint64(b[4:12]),
	}
}

// tileHeader describes one tile block. The three offsets are absolute
// byte positions in the file; the feature records start directly
// after the header.
type tileHeader struct {
	FeaturesCount     int32
	CoordinatesCount  int32
	StringCount       int32
	CharactersCount   int32
	CoordinatesOffset uint64
	StringsOffset     uint64
	CharactersOffset  uint64
}

func parseTileHeader(b []byte) tileHeader {
	return tileHeader{
		FeaturesCount:     int32(binary.LittleEndian.Uint32(b[0:4])),
		CoordinatesCount:  int32(binary.LittleEndian.Uint32(b[4:8])),
		StringCount:       int32(binary.LittleEndian.Uint32(b[8:12])),
		CharactersCount:   int32(binary.LittleEndian.Uint32(b[12:16])),
		CoordinatesOffset: binary.LittleEndian.Uint64(b[16:24]),
		StringsOffset:     binary.LittleEndian.Uint64(b[24:32]),
		CharactersOffset:  binary.LittleEndian.Uint64(b[32:40]),
	}
}

// feature is one packed MapFeature record.
type feature struct {
	ID               int64
	LabelOffset      int32 // string entry index, -1 = no label
	Geometry         geo.GeometryType
	CoordinateOffset int32
	CoordinateCount  int32
	PropertiesOffset int32 // string entry index of the first key
	PropertyCount    int32
}

func parseFeature(b []byte) feature {
	return feature{
		ID:               int64(binary.LittleEndian.Uint64(b[0:8])),
		LabelOffset:      int32(binary.LittleEndian.Uint32(b[8:12])),
		Geometry:         geo.GeometryType(b[12]),
		CoordinateOffset: int32(binary.LittleEndian.Uint32(b[13:17])),
		CoordinateCount:  int32(binary.LittleEndian.Uint32(b[17:21])),
		PropertiesOffset: int32(binary.LittleEndian.Uint32(b[21:25])),
		PropertyCount:    int32(binary.LittleEndian.Uint32(b[25:29])),
	}
}

// stringEntry points into the tile's character pool. Offset and
// Length are in UTF-16 code units.
type stringEntry struct {
	Offset int32
	Length int32
}

func parseStringEntry(b []byte) stringEntry {
	return stringEntry{
		Offset: int32(binary.LittleEndian.Uint32(b[0:4])),
		Length: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

func float64FromBytes(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
