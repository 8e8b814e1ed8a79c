package species

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const registryEnv = "SPECIES_REGISTRY_YAML"

//go:embed species.yaml
var registryFS embed.FS

// Species maps a user-facing species identifier to the protein id prefix
// its proteins carry.
type Species struct {
	ID        string
	Name      string
	Prefix    string
	IDPattern *regexp.Regexp
}

// Matches reports whether a protein id belongs to the species.
func (s Species) Matches(proteinID string) bool {
	if s.IDPattern != nil {
		return s.IDPattern.MatchString(proteinID)
	}
	return strings.HasPrefix(proteinID, s.Prefix)
}

// fallback used when YAML is missing or invalid
var fallbackSpecies = []yamlSpecies{
	{ID: "haloferax_volcanii", Name: "Haloferax volcanii", Prefix: "HVO_", IDPattern: `^HVO_\d{4}$`},
}

type yamlRegistry struct {
	Registry string        `yaml:"registry"`
	Version  int           `yaml:"version"`
	Species  []yamlSpecies `yaml:"species"`
}

type yamlSpecies struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Prefix    string `yaml:"prefix"`
	IDPattern string `yaml:"id_pattern"`
}

type Registry struct {
	byKey map[string]Species
	all   []Species
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, loading it on first use.
func Default(log *logger.Logger) *Registry {
	defaultOnce.Do(func() {
		reg, err := Load()
		if err != nil {
			if log != nil {
				log.Warn("species: registry load failed; using fallback", "error", err)
			}
			reg, _ = build(fallbackSpecies)
		}
		defaultReg = reg
	})
	return defaultReg
}

// Load reads the registry from SPECIES_REGISTRY_YAML or the embedded file.
func Load() (*Registry, error) {
	data, err := read()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var doc yamlRegistry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Registry) != "species" {
		return nil, fmt.Errorf("unexpected registry: %s", doc.Registry)
	}
	if len(doc.Species) == 0 {
		return nil, errors.New("no species defined")
	}
	return build(doc.Species)
}

func read() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(registryEnv)); path != "" {
		return os.ReadFile(path)
	}
	return registryFS.ReadFile("species.yaml")
}

func build(entries []yamlSpecies) (*Registry, error) {
	reg := &Registry{byKey: map[string]Species{}}
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		prefix := strings.TrimSpace(e.Prefix)
		if id == "" || prefix == "" {
			return nil, fmt.Errorf("species %q: id and prefix are required", e.Name)
		}
		sp := Species{ID: id, Name: strings.TrimSpace(e.Name), Prefix: prefix}
		if p := strings.TrimSpace(e.IDPattern); p != "" {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("species %s: id_pattern: %w", id, err)
			}
			sp.IDPattern = re
		}
		for _, key := range []string{Normalize(id), Normalize(sp.Name)} {
			if key == "" {
				continue
			}
			if prev, exists := reg.byKey[key]; exists && prev.ID != id {
				return nil, fmt.Errorf("species key %s is ambiguous", key)
			}
			reg.byKey[key] = sp
		}
		reg.all = append(reg.all, sp)
	}
	sort.Slice(reg.all, func(i, j int) bool { return reg.all[i].ID < reg.all[j].ID })
	return reg, nil
}

// Normalize folds case, spaces and dashes so that "Haloferax volcanii",
// "haloferax-volcanii" and "HALOFERAX_VOLCANII" share one key.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// Lookup resolves a species identifier. ok is false for unknown species.
func (r *Registry) Lookup(speciesID string) (Species, bool) {
	if r == nil {
		return Species{}, false
	}
	sp, ok := r.byKey[Normalize(speciesID)]
	return sp, ok
}

func (r *Registry) All() []Species {
	if r == nil {
		return nil
	}
	return append([]Species(nil), r.all...)
}
