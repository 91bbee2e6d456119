// Package kconfig loads the kernel's tunable limits. Tunables default to
// the values spec'd for this kernel and can be overridden by decoding a
// YAML document, the way sigmaos's sigmap.hyperparams loads its per-target
// parameter sets from an embedded YAML string via gopkg.in/yaml.v3.
package kconfig

import (
	"gopkg.in/yaml.v3"
)

// Limits holds every size limit the rest of the kernel treats as a
// constant. Field names match spec.md §6's constant names.
type Limits struct {
	OpenMax       int `yaml:"open_max"`
	SystemOpenMax int `yaml:"system_open_max"`
	ProcMax       int `yaml:"proc_max"`
	PathMax       int `yaml:"path_max"`
	ArgMax        int `yaml:"arg_max"`
}

// defaultYAML mirrors the constants named in spec.md §6.
const defaultYAML = `
open_max: 64
system_open_max: 640
proc_max: 100
path_max: 1024
arg_max: 64
`

// Default returns the kernel's default tunables.
func Default() Limits {
	l := Limits{}
	if err := yaml.Unmarshal([]byte(defaultYAML), &l); err != nil {
		panic(err)
	}
	return l
}

// Load decodes limits from a YAML document, falling back to Default()
// for any field the document omits.
func Load(doc []byte) (Limits, error) {
	l := Default()
	if err := yaml.Unmarshal(doc, &l); err != nil {
		return Limits{}, err
	}
	return l, nil
}
