package criteria

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPreset reads a YAML criteria file and validates it.
// Fields missing from the file keep their default value.
func LoadPreset(path string) (Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Criteria{}, fmt.Errorf("failed to read preset: %w", err)
	}
	return ParsePreset(bytes.NewReader(data))
}

// ParsePreset decodes a preset from r
// KnownFields(true): 오타 필드는 즉시 실패
func ParsePreset(r io.Reader) (Criteria, error) {
	c := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Criteria{}, fmt.Errorf("failed to decode preset: %w", err)
	}

	if err := Validate(c, nil); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// WritePreset encodes c as YAML
func WritePreset(w io.Writer, c Criteria) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
