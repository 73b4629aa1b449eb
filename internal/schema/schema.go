// Package schema checks documents against the embedded JSON schemas. It is a
// structural check layered on top of the state validator, not a replacement.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	State   = "state"
	Session = "session"
)

//go:embed schemas/*.schema.json
var files embed.FS

// ErrUnknownSchema is returned for a schema name with no embedded definition.
var ErrUnknownSchema = errors.New("unknown schema")

var (
	mu       sync.Mutex
	resolved = map[string]*jsonschema.Resolved{}
)

// Names lists the embedded schemas.
func Names() []string {
	entries, err := files.ReadDir("schemas")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".schema.json"))
	}
	sort.Strings(out)
	return out
}

func load(name string) (*jsonschema.Resolved, error) {
	mu.Lock()
	defer mu.Unlock()
	if rs, ok := resolved[name]; ok {
		return rs, nil
	}
	data, err := files.ReadFile("schemas/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", name, err)
	}
	resolved[name] = rs
	return rs, nil
}

// Validate checks document against the named schema. The document is taken
// through its JSON form first, so any value that marshals is accepted. On
// failure the error describes the first violation found.
func Validate(document any, schemaName string) (bool, error) {
	rs, err := load(schemaName)
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(document)
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	if err := rs.Validate(instance); err != nil {
		return false, fmt.Errorf("%s schema: %w", schemaName, err)
	}
	return true, nil
}
