// Package config loads microsync settings.
//
// Settings start from Default and are overlaid by an optional file whose
// format follows its extension:
//
//	.yaml, .yml  gopkg.in/yaml.v3
//	.toml        github.com/BurntSushi/toml
//	.cue         cuelang.org/go, unified with the embedded #Config schema
//
// All three formats reject unknown keys. Durations are Go duration strings
// ("1500ms", "5s").
package config
