package progress

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Profiles maps a profile name to its ordered FORM_KEYS list. Pages that
// disagree about what "100%" means pick a profile instead of hardcoding keys.
type Profiles struct {
	Default  string              `yaml:"default"`
	Profiles map[string][]string `yaml:"profiles"`
}

// DefaultProfiles ships the two lists observed in the portal: 20 and 25 keys.
func DefaultProfiles() Profiles {
	return Profiles{
		Default: ProfileStandard,
		Profiles: map[string][]string{
			ProfileStandard: StandardKeys(),
			ProfileExtended: ExtendedKeys(),
		},
	}
}

// LoadProfiles reads a YAML profile file. Profiles missing from the file keep
// their built-in definitions.
func LoadProfiles(path string) (Profiles, error) {
	out := DefaultProfiles()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("read form key profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes YAML profile definitions on top of the defaults.
func ParseProfiles(raw []byte) (Profiles, error) {
	out := DefaultProfiles()
	var file Profiles
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return Profiles{}, fmt.Errorf("parse form key profiles: %w", err)
	}
	for name, keys := range file.Profiles {
		name = strings.TrimSpace(name)
		if name == "" {
			return Profiles{}, fmt.Errorf("parse form key profiles: empty profile name")
		}
		keys = dedupe(keys)
		if len(keys) == 0 {
			return Profiles{}, fmt.Errorf("profile %q: %w", name, ErrNoRequiredKeys)
		}
		out.Profiles[name] = keys
	}
	if file.Default != "" {
		out.Default = file.Default
	}
	if _, ok := out.Profiles[out.Default]; !ok {
		return Profiles{}, fmt.Errorf("default profile %q is not defined", out.Default)
	}
	return out, nil
}

// Keys returns the key list for name, or the default profile when name is
// empty. Unknown names are an error rather than a silent fallback.
func (p Profiles) Keys(name string) ([]string, error) {
	if name == "" {
		name = p.Default
	}
	keys, ok := p.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown form key profile %q", name)
	}
	return append([]string(nil), keys...), nil
}

// Names returns the sorted profile names.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p.Profiles))
	for name := range p.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllKeys returns the union of every profile, in first-seen order.
func (p Profiles) AllKeys() []string {
	var all []string
	for _, name := range p.Names() {
		all = append(all, p.Profiles[name]...)
	}
	return dedupe(all)
}
