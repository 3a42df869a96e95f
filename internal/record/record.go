// Package record decodes data files into the values a template is rendered
// against.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/brim/internal/errors"
)

// Record is one decoded data file.
type Record struct {
	// Source is the path of the data file relative to the source tree.
	Source string
	// Fields is the decoded top-level object.
	Fields map[string]any
	// Raw is the file content as read.
	Raw []byte
}

// Extensions lists every data file extension Decode understands.
var Extensions = []string{".json", ".yaml", ".yml", ".md"}

// Supported reports whether ext (with leading dot, any case) can be decoded.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads the data file at path and decodes it by extension. rel is kept
// as the record's Source. Decoding problems are returned as
// MalformedDataRecord errors.
func Load(path, rel string) (*Record, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError, "failed to read data file").
			WithContext("path", rel)
	}
	fields, err := Decode(filepath.Ext(path), raw)
	if err != nil {
		return nil, errors.MalformedDataRecord(rel, err)
	}
	return &Record{Source: rel, Fields: fields, Raw: raw}, nil
}

// Decode parses data according to ext. The top level must be an object.
func Decode(ext string, data []byte) (map[string]any, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".md":
		return decodeMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported data file extension %q", ext)
	}
}

func topLevelObject(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case nil:
		return nil, fmt.Errorf("document is empty")
	default:
		return nil, fmt.Errorf("top level must be an object, got %T", v)
	}
}
