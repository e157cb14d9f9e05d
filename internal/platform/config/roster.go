package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster describes the facilitator identity and the fixed competency set a
// review session evaluates. It can be overridden from a YAML file so HR can
// adjust wording without a rebuild; the competency count must stay at five
// because both review parties rate each dimension.
type Roster struct {
	Assistant struct {
		Name     string `yaml:"name"`
		Greeting string `yaml:"greeting"`
	} `yaml:"assistant"`
	Competencies []string `yaml:"competencies"`
}

func DefaultRoster() Roster {
	var r Roster
	r.Assistant.Name = "Ava"
	r.Assistant.Greeting = "Hello, I'm your review facilitator for today."
	r.Competencies = []string{
		"Communication",
		"Teamwork",
		"Problem Solving",
		"Leadership",
		"Professionalism",
	}
	return r
}

func LoadRoster(path string) (Roster, error) {
	roster := DefaultRoster()
	if path == "" {
		return roster, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return roster, fmt.Errorf("read roster file: %w", err)
	}
	var loaded Roster
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return roster, fmt.Errorf("parse roster file: %w", err)
	}
	if loaded.Assistant.Name != "" {
		roster.Assistant.Name = loaded.Assistant.Name
	}
	if loaded.Assistant.Greeting != "" {
		roster.Assistant.Greeting = loaded.Assistant.Greeting
	}
	if len(loaded.Competencies) > 0 {
		if len(loaded.Competencies) != 5 {
			return roster, fmt.Errorf("roster must list exactly 5 competencies, got %d", len(loaded.Competencies))
		}
		roster.Competencies = loaded.Competencies
	}
	return roster, nil
}
