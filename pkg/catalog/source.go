package catalog

import (
	"context"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads a YAML catalog file:
//
//	permissions:
//	  access: {label: Access, default: true}
//	  admin:  {label: Admin, admin: true}
//	plans:
//	  - id: starter
//	    name: Starter
//	    prices: [price_123]
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) (Definition, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Definition{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return def, nil
}

type memorySource struct {
	def Definition
}

// NewMemorySource returns a Source over an in-memory definition. The input is
// copied so later changes by the caller are not observed.
func NewMemorySource(def Definition) Source {
	cp := Definition{
		Permissions: maps.Clone(def.Permissions),
		Plans:       make([]Plan, len(def.Plans)),
	}
	copy(cp.Plans, def.Plans)
	return &memorySource{def: cp}
}

func (s *memorySource) Load(_ context.Context) (Definition, error) {
	return s.def, nil
}
