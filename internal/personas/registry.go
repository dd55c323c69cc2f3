// Package personas provides the registry of agent personas that can be
// selected for a workflow. Personas are loaded from YAML; a built-in set is
// embedded so the tool works without any configuration.
package personas

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/rfe/internal/core/phase"
)

//go:embed personas.yaml
var defaultPersonasYAML []byte

// Persona describes one agent persona available for session launches.
type Persona struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Framing string `yaml:"framing"`
}

// Prompt composes the session prompt for this persona: the phase command,
// the workflow description, and the persona's framing.
func (p Persona) Prompt(ph phase.Phase, description string) string {
	prompt := fmt.Sprintf("/%s %s", ph, description)
	if p.Framing != "" {
		prompt += fmt.Sprintf("\n\nYou are acting as %s. %s", p.Name, p.Framing)
	}
	return prompt
}

type registryFile struct {
	Personas []Persona `yaml:"personas"`
}

// Registry holds the known personas, in file order.
type Registry struct {
	byID  map[string]Persona
	order []string
}

// LoadDefault builds the registry from the embedded persona set.
func LoadDefault() (*Registry, error) {
	return parse(defaultPersonasYAML)
}

// LoadFile builds the registry from a YAML file, replacing the defaults.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}
	reg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse personas file %s: %w", path, err)
	}
	return reg, nil
}

func parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("personas file defines no personas")
	}

	reg := &Registry{byID: make(map[string]Persona, len(file.Personas))}
	for _, p := range file.Personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona with empty id")
		}
		if _, dup := reg.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %s", p.ID)
		}
		reg.byID[p.ID] = p
		reg.order = append(reg.order, p.ID)
	}
	return reg, nil
}

// Get returns a persona by id.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns all persona ids in file order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Validate checks that every id names a known persona.
func (r *Registry) Validate(ids []string) error {
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return fmt.Errorf("unknown persona %q (known: %d personas, see rfe personas)", id, len(r.order))
		}
	}
	return nil
}
