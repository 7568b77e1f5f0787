package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/validator"
)

// Load reads a YAML policy file. An empty path yields Default(). Values absent
// from the file keep their built-in defaults. A licenses section replaces the
// built-in buckets as a whole; pattern buckets merge by name.
func Load(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: policy file %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	p, err := Parse(data, path)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a policy document. source is recorded as the
// policy's Source.
func Parse(data []byte, source string) (*Policy, error) {
	f := defaultFile()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if err := validator.New().Validate(f); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	return newPolicy(f, source), nil
}
