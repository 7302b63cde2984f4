package palette

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a color as three 0-255 channels; it encodes as a JSON array.
type RGB [3]uint8

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// anchor stops sampled from the matplotlib colormaps of the same name
var stops = map[string][]string{
	"viridis":  {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"plasma":   {"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"},
	"inferno":  {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"magma":    {"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"},
	"cividis":  {"#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8779", "#a69d75", "#c4b56c", "#e4cf5b", "#fee838"},
	"Blues":    {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Reds":     {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"Greens":   {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"YlOrRd":   {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"RdYlGn":   {"#a50026", "#d73027", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#d9ef8b", "#a6d96a", "#66bd63", "#1a9850", "#006837"},
	"Spectral": {"#9e0142", "#d53e4f", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#e6f598", "#abdda4", "#66c2a5", "#3288bd", "#5e4fa2"},
	"coolwarm": {"#3b4cc0", "#6788ee", "#9abbff", "#c9d7f0", "#edd1c2", "#f7a889", "#e26952", "#b40426"},
	"terrain":  {"#333399", "#0294fa", "#01cc66", "#80e680", "#fefe98", "#c0aa82", "#805c54", "#bfadaa", "#ffffff"},
}

// List returns the available palette names, sorted case-insensitively the
// way matplotlib lists them.
func List() []string {
	names := make([]string, 0, len(stops))
	for name := range stops {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Get samples n evenly spaced colors from the named palette, interpolating
// linearly in RGB between anchor stops.
func Get(name string, n int) ([]RGB, error) {
	hexes, ok := stops[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette: %s", name)
	}
	if n < 1 {
		return nil, fmt.Errorf("palette size must be positive, got %d", n)
	}

	anchors := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("failed to parse palette %s: %w", name, err)
		}
		anchors[i] = c
	}

	colors := make([]RGB, n)
	segments := float64(len(anchors) - 1)
	for i := range colors {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		pos := t * segments
		lo := int(pos)
		if lo >= len(anchors)-1 {
			lo = len(anchors) - 2
		}
		c := anchors[lo].BlendRgb(anchors[lo+1], pos-float64(lo)).Clamped()
		r, g, b := c.RGB255()
		colors[i] = RGB{r, g, b}
	}
	return colors, nil
}
