package geospatial

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ParseBoundary validates a GeoJSON feature string and returns its geometry.
func ParseBoundary(geojsonStr string) (orb.Geometry, error) {
	feature, err := geojson.UnmarshalFeature([]byte(geojsonStr))
	if err != nil {
		return nil, err
	}
	if feature.Geometry == nil {
		return nil, errors.New("invalid GeoJSON: no geometry")
	}
	return feature.Geometry, nil
}

// AreaHectares computes the geodesic area of a boundary in hectares.
func AreaHectares(geometry orb.Geometry) float64 {
	return geo.Area(geometry) / 10000
}

// Centroid returns the boundary centroid as (lat, lon).
func Centroid(geometry orb.Geometry) (lat, lon float64) {
	point, _ := planar.CentroidArea(geometry)
	return point.Lat(), point.Lon()
}

// BoundingBox returns a square box of the given half-width in degrees
// around a point, as (west, south, east, north).
func BoundingBox(lat, lon, delta float64) [4]float64 {
	return [4]float64{lon - delta, lat - delta, lon + delta, lat + delta}
}
