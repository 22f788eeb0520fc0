package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON parses JSON into a Value, keeping object key order. Numbers and
// booleans keep their literal text and null becomes the empty string, matching
// how XML carries scalars.
func DecodeJSON(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse json: unexpected data after top-level value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := Mapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			s := Sequence()
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				s.Append(val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter '%s'", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return String(t.String()), nil
	case bool:
		if t {
			return String("true"), nil
		}
		return String("false"), nil
	case nil:
		return String(""), nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// DecodeYAML parses a single YAML document into a Value, keeping mapping key
// order. Scalars keep their literal text; null becomes the empty string.
func DecodeYAML(data []byte) (*Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("parse yaml: empty document")
	}
	v, err := yamlNodeValue(&root)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return v, nil
}

func yamlNodeValue(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return String(""), nil
		}
		return yamlNodeValue(n.Content[0])
	case yaml.AliasNode:
		return yamlNodeValue(n.Alias)
	case yaml.MappingNode:
		m := Mapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}
			val, err := yamlNodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		s := Sequence()
		for _, item := range n.Content {
			val, err := yamlNodeValue(item)
			if err != nil {
				return nil, err
			}
			s.Append(val)
		}
		return s, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return String(""), nil
		}
		return String(n.Value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

// DecodeFile reads a JSON (.json) or YAML (.yaml, .yml) file.
func DecodeFile(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read '%s': %w", path, err)
	}
	var v *Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err = DecodeJSON(data)
	case ".yaml", ".yml":
		v, err = DecodeYAML(data)
	default:
		return nil, fmt.Errorf("read '%s': unsupported document format '%s'", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read '%s': %w", path, err)
	}
	return v, nil
}
