package editing

import (
	"fmt"
	"sort"
)

var presets = map[string]string{
	"standard": "Apply professional corrections to the uploaded image. Improve the lighting, adjust the contrast and balance the colors for a polished look. Apply a shallow depth of field (bokeh) effect as if the photo was taken with an 80mm lens at f/1.4. Make sure the main subject stays 100% sharp while the background is softly blurred, with a gradual transition and no hard edges. Preserve natural skin textures and the sharpness of the eyes.",
	"sketch":   "Convert to a hyper-detailed pencil and charcoal drawing, with realistic shading and graphite texture on paper",
}

// Preset returns the prompt for a named preset
func Preset(name string) (string, error) {
	p, ok := presets[name]
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("Unknown preset %q.", name)}
	}
	return p, nil
}

// PresetNames returns the preset names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
