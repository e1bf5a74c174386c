package voxagent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseSchema decodes an agent schema declared as YAML and compiles it.
// Personas are added by writing schema files, not control flow.
func ParseSchema(data []byte) (*AgentSchema, error) {
	var s AgentSchema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchema reads and compiles an agent schema file.
func LoadSchema(path string) (*AgentSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return ParseSchema(data)
}
