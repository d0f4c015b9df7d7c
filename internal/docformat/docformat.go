// Package docformat decodes the input documents (topology, intent, tool
// config) from JSON, YAML or TOML, picking the codec from the file extension.
package docformat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

var ErrUnknownFormat = errors.New("unknown document format")

// FromPath maps a file extension to a Format. GNS3 project files are JSON.
func FromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".gns3":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

type options struct {
	strict bool
}

// Option tweaks decoding.
type Option func(*options)

// Strict rejects fields the target type does not declare. Hand-written
// intents use it so typos surface; exported GNS3 projects carry many fields
// we ignore and are decoded leniently.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// Decode reads one document from r into v.
func Decode(r io.Reader, format Format, v any, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case JSON:
		dec := json.NewDecoder(r)
		if o.strict {
			dec.DisallowUnknownFields()
		}
		return dec.Decode(v)
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(o.strict)
		return dec.Decode(v)
	case TOML:
		dec := toml.NewDecoder(r)
		if o.strict {
			dec.DisallowUnknownFields()
		}
		return dec.Decode(v)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// DecodeFile opens path and decodes it with the codec matching its extension.
func DecodeFile(path string, v any, opts ...Option) error {
	format, err := FromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Decode(f, format, v, opts...); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
