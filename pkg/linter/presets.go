package linter

import "sort"

// Built-in shareable configurations usable in extends
const (
	PresetReactRecommended = "plugin:react/recommended"
	PresetClient           = "plugin:@xivanalysis/client"
)

var presets = map[string]*Config{
	PresetReactRecommended: {
		Plugins: []string{"react"},
		Rules: map[string]interface{}{
			"react/no-unescaped-entities": "error",
		},
	},
	PresetClient: {
		Extends: []string{PresetReactRecommended},
		Plugins: []string{"react", "@xivanalysis"},
		Rules: map[string]interface{}{
			"react/no-unescaped-entities": []interface{}{
				"error",
				map[string]interface{}{"forbid": []interface{}{">", "}"}},
			},
			"@xivanalysis/no-unused-dependencies": "error",
		},
	},
}

// Presets lists the names of the built-in configurations
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
