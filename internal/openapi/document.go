// Package openapi normalizes OpenAPI and Swagger documents into an ordered
// node tree. JSON and YAML inputs of the same document decode to equal trees.
package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/0x5457/oas-index/internal/errs"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type Document struct {
	Root    Node
	Source  string // base filename
	Format  Format
	Version string
}

// Paths returns the paths mapping.
func (d *Document) Paths() Node { return d.Root.Field("paths") }

// FormatFromPath maps a file extension to its format.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// IsSpecFile reports whether the file extension is one Load accepts.
func IsSpecFile(path string) bool {
	_, ok := FormatFromPath(path)
	return ok
}

// Load reads and normalizes the document at path.
func Load(path string) (*Document, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, &errs.UnsupportedInputFormatError{
			Path:   path,
			Reason: fmt.Sprintf("extension %q is not one of .json, .yaml, .yml", filepath.Ext(path)),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, format, filepath.Base(path))
}

// Parse normalizes raw document bytes of the given format.
func Parse(data []byte, format Format, source string) (*Document, error) {
	var (
		root *yaml.Node
		err  error
	)
	switch format {
	case FormatJSON:
		root, err = decodeJSON(data)
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: err.Error()}
	}

	doc := &Document{Root: Wrap(root), Source: source, Format: format}
	if !doc.Root.IsMap() {
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: "document root is not a mapping"}
	}
	if isPostmanCollection(doc.Root) {
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: "postman collection, not an openapi document"}
	}
	if !doc.Paths().IsMap() {
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: "missing paths mapping"}
	}
	if v, ok := doc.Root.Get("openapi"); ok {
		doc.Version = v.String()
	} else if v, ok := doc.Root.Get("swagger"); ok {
		doc.Version = v.String()
	} else {
		return nil, &errs.UnsupportedInputFormatError{Path: source, Reason: "missing openapi or swagger version"}
	}
	return doc, nil
}

// isPostmanCollection matches the v2 collection shape: top-level info and
// item, no paths.
func isPostmanCollection(root Node) bool {
	if _, ok := root.Get("paths"); ok {
		return false
	}
	info, hasInfo := root.Get("info")
	item, hasItem := root.Get("item")
	return hasInfo && hasItem && info.IsMap() && item.IsSeq()
}

func decodeYAML(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, errors.New("empty document")
	}
	return &doc, nil
}

// decodeJSON builds the node tree straight from the JSON token stream so key
// order survives and JSON-only syntax never goes through the YAML scanner.
func decodeJSON(data []byte) (*yaml.Node, error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid json")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := jsonValue(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid json: trailing data")
	}
	return n, nil
}

func jsonValue(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected key %v", kt)
				}
				val, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				m.Content = append(m.Content, scalar("!!str", key), val)
			}
			_, err := dec.Token()
			return m, err
		case '[':
			s := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				val, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				s.Content = append(s.Content, val)
			}
			_, err := dec.Token()
			return s, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return scalar("!!str", v), nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return scalar(tag, v.String()), nil
	case bool:
		if v {
			return scalar("!!bool", "true"), nil
		}
		return scalar("!!bool", "false"), nil
	case nil:
		return scalar("!!null", "null"), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
