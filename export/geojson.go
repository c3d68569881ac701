// Package export projects registered point clouds and their winning base
// and congruent quad onto the XY plane and serialises them as a GeoJSON
// FeatureCollection, for quick-look inspection of a registration run in
// any GeoJSON viewer. It is an external collaborator: registration never
// imports it.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/kwv/fourpcs/registration"
)

// GeometryType mirrors the GeoJSON geometry type names.
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryMultiPoint GeometryType = "MultiPoint"
	GeometryLineString GeometryType = "LineString"
)

// Geometry is a GeoJSON geometry object.
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature is a GeoJSON feature with geometry and properties.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection returns an empty FeatureCollection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: make([]*Feature, 0)}
}

func (fc *FeatureCollection) addFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

func newFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &Feature{Type: "Feature", Geometry: geom, Properties: props}
}

func projectXY(cloud registration.Cloud) orb.MultiPoint {
	pts := make(orb.MultiPoint, len(cloud))
	for i, p := range cloud {
		pts[i] = orb.Point{p.Pos[0], p.Pos[1]}
	}
	return pts
}

// CloudFeature projects cloud's XY plane onto a GeoJSON MultiPoint feature,
// first thinning it through Douglas-Peucker simplification (applied to the
// point sequence treated as a polyline) if tolerance > 0, and records the
// planar path length of that polyline in the feature's properties as a
// quick-look summary statistic.
func CloudFeature(cloud registration.Cloud, tolerance float64, props map[string]interface{}) *Feature {
	pts := projectXY(cloud)
	line := orb.LineString(pts)

	if tolerance > 0 && len(line) > 1 {
		simplified := simplify.DouglasPeucker(tolerance).Simplify(line.Clone())
		if ls, ok := simplified.(orb.LineString); ok {
			line = ls
		}
	}

	if props == nil {
		props = make(map[string]interface{})
	}
	if len(line) > 1 {
		props["path_length"] = planar.Length(line)
	}
	props["point_count"] = len(cloud)

	coords := make([][2]float64, len(line))
	for i, p := range line {
		coords[i] = [2]float64{p[0], p[1]}
	}
	coordsJSON, _ := json.Marshal(coords)

	return newFeature(&Geometry{Type: GeometryMultiPoint, Coordinates: coordsJSON}, props)
}

// BaseQuadFeature renders a 4-point base or congruent quad as a closed
// LineString, labelled for quick visual distinction in a viewer.
func BaseQuadFeature(pts [4]registration.Point, label string) *Feature {
	coords := make([][2]float64, 0, 5)
	for _, p := range pts {
		coords = append(coords, [2]float64{p.Pos[0], p.Pos[1]})
	}
	coords = append(coords, coords[0])
	coordsJSON, _ := json.Marshal(coords)

	return newFeature(&Geometry{Type: GeometryLineString, Coordinates: coordsJSON}, map[string]interface{}{
		"label": label,
	})
}

// WriteRun assembles a FeatureCollection describing one registration run
// (the reference cloud, the aligned moving cloud, the winning base and
// congruent quad) and writes it as indented JSON to path.
func WriteRun(path string, p, qTransformed registration.Cloud, base, quad [4]registration.Point, tolerance float64) error {
	fc := NewFeatureCollection()
	fc.addFeature(CloudFeature(p, tolerance, map[string]interface{}{"role": "reference"}))
	fc.addFeature(CloudFeature(qTransformed, tolerance, map[string]interface{}{"role": "aligned"}))
	fc.addFeature(BaseQuadFeature(base, "base"))
	fc.addFeature(BaseQuadFeature(quad, "congruent_quad"))

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshaling feature collection: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}
