// SPDX-License-Identifier: MIT

// Package classify maps the raw key-value tags of a map feature to a
// hierarchical render taxonomy. The taxonomy is a four-digit decimal
// code: thousands select the general class, hundreds the category,
// tens the subcategory, ones the concrete feature. Renderers that do
// not handle a leaf code fall back level by level towards the general
// class.
package classify

// RenderType is one value of the render taxonomy.
type RenderType int32

const (
	Unknown   RenderType = 0
	Waterway  RenderType = 1
	PlaceName RenderType = 2

	Highway      RenderType = 1000
	HMotorway    RenderType = 1010
	HTrunk       RenderType = 1020
	HPrimary     RenderType = 1030
	HSecondary   RenderType = 1040
	HTertiary    RenderType = 1050
	HResidential RenderType = 1060
	HService     RenderType = 1070
	HTrack       RenderType = 1080

	Railway      RenderType = 2000
	RMainline    RenderType = 2010
	RSubway      RenderType = 2020
	RLightRail   RenderType = 2030
	RTram        RenderType = 2040
	RNarrowGauge RenderType = 2050
	RMonorail    RenderType = 2060
	RPreserved   RenderType = 2070
	RMiniature   RenderType = 2080
	RFunicular   RenderType = 2090

	Border   RenderType = 3000
	Building RenderType = 4000

	Landuse       RenderType = 5000
	LUNatural     RenderType = 5110
	LUNForest     RenderType = 5111
	LUNPlain      RenderType = 5112
	LUNHills      RenderType = 5113
	LUNMountains  RenderType = 5114
	LUNDesert     RenderType = 5115
	LUNWater      RenderType = 5116
	LULeisure     RenderType = 5120
	LUResidential RenderType = 5200
	LURFountain   RenderType = 5211
)

// Subcategory rounds down to the enclosing ten.
func (r RenderType) Subcategory() RenderType { return r / 10 * 10 }

// Category rounds down to the enclosing hundred.
func (r RenderType) Category() RenderType { return r / 100 * 100 }

// General rounds down to the enclosing thousand.
func (r RenderType) General() RenderType { return r / 1000 * 1000 }
