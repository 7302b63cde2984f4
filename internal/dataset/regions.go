package dataset

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"cphhousing/internal/models"
)

// LoadRegions reads a GeoJSON FeatureCollection of boundary polygons.
// Region codes are normalized to strings so they can be joined with the
// codes on the sales.
func LoadRegions(path, codeField, nameField string) ([]models.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}

	return DecodeRegions(fc, codeField, nameField)
}

func DecodeRegions(fc *geojson.FeatureCollection, codeField, nameField string) ([]models.Region, error) {
	regions := make([]models.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		code := propString(f.Properties, codeField)
		if code == "" {
			return nil, fmt.Errorf("feature %d: missing %s", i, codeField)
		}
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		}
		regions = append(regions, models.Region{
			Code:     code,
			Name:     propString(f.Properties, nameField),
			Geometry: f.Geometry,
		})
	}
	return regions, nil
}

// propString renders a property as a string; whole numbers print without
// a fractional part so 1050 and "1050" compare equal.
func propString(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func propFloat(props geojson.Properties, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
