// SPDX-License-Identifier: MIT

package classify

import (
	"testing"

	"rastermap/internal/geo"
)

func props(kv ...string) Properties {
	pp := make(Properties, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pp = append(pp, Property{Key: kv[i], Value: kv[i+1]})
	}
	return pp
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
		gt    geo.GeometryType
		want  RenderType
	}{
		{"motorway", props("highway", "motorway"), geo.Polyline, HMotorway},
		{"living street", props("highway", "living_street"), geo.Polyline, HResidential},
		{"unlisted highway", props("highway", "cycleway"), geo.Polyline, Highway},
		{"highway wins over waterway", props("highway", "primary", "waterway", "river"), geo.Polyline, HPrimary},
		{"waterway", props("waterway", "river"), geo.Polyline, Waterway},
		{"water key prefix", props("water", "lake"), geo.Polygon, Waterway},
		{"waterway point excluded", props("waterway", "river"), geo.Point, Unknown},
		{"mainline rail", props("railway", "rail"), geo.Polyline, RMainline},
		{"tram", props("railway", "tram"), geo.Polyline, RTram},
		{"unlisted railway", props("railway", "platform"), geo.Polyline, Railway},
		{"border needs admin level", props("boundary", "administrative"), geo.Polyline, Unknown},
		{"border", props("boundary", "administrative", "admin_level", "2"), geo.Polyline, Border},
		{"border wrong level", props("boundary", "administrative", "admin_level", "4"), geo.Polyline, Unknown},
		{"place city", props("place", "city"), geo.Polyline, PlaceName},
		{"place point excluded", props("place", "city"), geo.Point, Unknown},
		{"place village unlisted", props("place", "village"), geo.Polyline, Unknown},
		{"forest boundary", props("boundary", "forest_compartment"), geo.Polyline, LUNForest},
		{"orchard on polyline", props("landuse", "orchard"), geo.Polyline, LUNForest},
		{"landuse forestry", props("landuse", "forestry"), geo.Polygon, LUNForest},
		{"cemetery", props("landuse", "cemetery"), geo.Polyline, LUResidential},
		{"meadow polygon", props("landuse", "meadow"), geo.Polygon, LUNPlain},
		{"meadow polyline falls through", props("landuse", "meadow"), geo.Polyline, Unknown},
		{"reservoir", props("landuse", "reservoir"), geo.Polygon, LUNWater},
		{"building", props("building", "yes"), geo.Polygon, LUResidential},
		{"building polyline falls through", props("building", "yes"), geo.Polyline, Unknown},
		{"fountain", props("amenity", "fountain"), geo.Polygon, LURFountain},
		{"school amenity", props("amenity", "school"), geo.Polygon, LUResidential},
		{"leisure", props("leisure", "park"), geo.Polygon, LULeisure},
		{"natural water", props("natural", "water"), geo.Polygon, LUNWater},
		{"natural scrub", props("natural", "scrub"), geo.Polygon, LUNPlain},
		{"natural wood", props("natural", "wood"), geo.Polygon, LUNForest},
		{"natural scree", props("natural", "scree"), geo.Polygon, LUNMountains},
		{"natural beach", props("natural", "beach"), geo.Polygon, LUNDesert},
		{"natural other", props("natural", "cliff"), geo.Polygon, LUNatural},
		{"no tags", props(), geo.Polygon, Unknown},
	}
	for _, tc := range tests {
		if got := Classify(tc.props, tc.gt); got != tc.want {
			t.Errorf("%s: Classify() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// Classification must read the first matching key, so reordering
// properties that does not change the first match keeps the result.
func TestClassifyFirstMatchStable(t *testing.T) {
	a := props("highway", "primary", "name", "A4", "waterway", "river")
	b := props("name", "A4", "highway", "primary", "waterway", "river")
	if Classify(a, geo.Polyline) != Classify(b, geo.Polyline) {
		t.Error("reordering non-matching keys changed the classification")
	}
}

func TestHierarchyFallback(t *testing.T) {
	if got := LURFountain.Subcategory(); got != 5210 {
		t.Errorf("Subcategory() = %d, want 5210", got)
	}
	if got := LURFountain.Category(); got != LUResidential {
		t.Errorf("Category() = %d, want %d", got, LUResidential)
	}
	if got := LUNForest.General(); got != Landuse {
		t.Errorf("General() = %d, want %d", got, Landuse)
	}
	if got := HMotorway.General(); got != Highway {
		t.Errorf("General() = %d, want %d", got, Highway)
	}
}
