// SPDX-License-Identifier: MIT

package classify

import (
	"strings"

	"rastermap/internal/geo"
)

// Property is one key-value tag of a map feature. Properties keep
// their storage order; rules below always read the first matching
// key.
type Property struct {
	Key   string
	Value string
}

// Properties is the ordered tag bag of one feature.
type Properties []Property

// get returns the value of the first property whose key equals key.
func (pp Properties) get(key string) (string, bool) {
	for _, p := range pp {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// getPrefix returns the value of the first property whose key starts
// with prefix.
func (pp Properties) getPrefix(prefix string) (string, bool) {
	for _, p := range pp {
		if strings.HasPrefix(p.Key, prefix) {
			return p.Value, true
		}
	}
	return "", false
}

var highwayValues = map[string]RenderType{
	"motorway":      HMotorway,
	"trunk":         HTrunk,
	"primary":       HPrimary,
	"secondary":     HSecondary,
	"tertiary":      HTertiary,
	"residential":   HResidential,
	"living_street": HResidential,
	"service":       HService,
	"track":         HTrack,
}

var railwayValues = map[string]RenderType{
	"rail":         RMainline,
	"subway":       RSubway,
	"light_rail":   RLightRail,
	"tram":         RTram,
	"narrow_gauge": RNarrowGauge,
	"monorail":     RMonorail,
	"preserved":    RPreserved,
	"miniature":    RMiniature,
	"funicular":    RFunicular,
}

func oneOf(v string, set ...string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Classify resolves a tag bag plus geometry type to a single render
// type. The rule order is behavioral: a highway tag always wins over
// waterway and railway tags on the same feature.
func Classify(props Properties, gt geo.GeometryType) RenderType {
	if v, ok := props.get("highway"); ok {
		if rt, ok := highwayValues[v]; ok {
			return rt
		}
		return Highway
	}

	if _, ok := props.getPrefix("water"); ok && gt != geo.Point {
		return Waterway
	}

	if v, ok := props.get("railway"); ok {
		if rt, ok := railwayValues[v]; ok {
			return rt
		}
		return Railway
	}

	if v, ok := props.getPrefix("boundary"); ok && strings.HasPrefix(v, "administrative") {
		if lvl, ok := props.getPrefix("admin_level"); ok && lvl == "2" {
			return Border
		}
	}

	if gt != geo.Point {
		if v, ok := props.getPrefix("place"); ok &&
			oneOf(v, "city", "town", "locality", "hamlet") {
			return PlaceName
		}
	}

	if v, ok := props.getPrefix("boundary"); ok && strings.HasPrefix(v, "forest") {
		return LUNForest
	}

	if v, ok := props.getPrefix("landuse"); ok {
		if strings.HasPrefix(v, "forest") || strings.HasPrefix(v, "orchard") {
			return LUNForest
		}
		if oneOf(v, "residential", "cemetery", "industrial", "commercial",
			"square", "construction", "military", "quarry", "brownfield") {
			return LUResidential
		}
		if gt == geo.Polygon && oneOf(v, "form", "meadow", "grass", "greenfield",
			"recreation_ground", "winter_sports", "allotments") {
			return LUNPlain
		}
		if gt == geo.Polygon && oneOf(v, "reservoir", "basin") {
			return LUNWater
		}
	}

	if gt == geo.Polygon {
		if _, ok := props.getPrefix("building"); ok {
			return LUResidential
		}
		if v, ok := props.getPrefix("amenity"); ok {
			if v == "fountain" {
				return LURFountain
			}
			return LUResidential
		}
		if _, ok := props.getPrefix("leisure"); ok {
			return LULeisure
		}
		if v, ok := props.getPrefix("natural"); ok {
			switch {
			case oneOf(v, "fell", "grassland", "heath", "moor", "scrub", "wetland"):
				return LUNPlain
			case oneOf(v, "wood", "tree_row"):
				return LUNForest
			case oneOf(v, "bare_rock", "rock", "scree"):
				return LUNMountains
			case oneOf(v, "beach", "sand"):
				return LUNDesert
			case v == "water":
				return LUNWater
			}
			return LUNatural
		}
	}

	return Unknown
}
