package schema

import (
	"slices"

	"github.com/0x5457/oas-index/internal/openapi"
)

type Property struct {
	Name        string
	Type        string
	Format      string
	Description string
	Enum        []string
	Required    bool
	IsBoolean   bool
	IsEnum      bool
	Example     openapi.Node
	Default     openapi.Node
}

type FieldType struct {
	Name string
	Type string
}

type FieldEnum struct {
	Name   string
	Values []string
}

// Summary is the flattened view of an object schema.
type Summary struct {
	RequiredFields []string
	OptionalFields []string
	Types          []FieldType
	Booleans       []string
	Enums          []FieldEnum
}

// TypeOf returns the declared type, "object" when none is given.
func TypeOf(schema openapi.Node) string {
	if t := schema.Field("type").String(); t != "" {
		return t
	}
	return "object"
}

// EnumValues renders enum members as text. Non-scalar members render as JSON.
func EnumValues(schema openapi.Node) []string {
	items := schema.Field("enum").Items()
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch it.Kind() {
		case openapi.KindMap, openapi.KindSeq, openapi.KindNull:
			out = append(out, it.JSON())
		default:
			out = append(out, it.String())
		}
	}
	return out
}

// Properties lists the schema's properties in document order.
func Properties(schema openapi.Node) []Property {
	required := schema.Field("required").StringList()
	pairs := schema.Field("properties").Pairs()
	out := make([]Property, 0, len(pairs))
	for _, p := range pairs {
		ps := p.Value
		typ := TypeOf(ps)
		out = append(out, Property{
			Name:        p.Key,
			Type:        typ,
			Format:      ps.Field("format").String(),
			Description: ps.Field("description").String(),
			Enum:        EnumValues(ps),
			Required:    slices.Contains(required, p.Key),
			IsBoolean:   ps.Field("type").String() == "boolean",
			IsEnum:      ps.Has("enum"),
			Example:     ps.Field("example"),
			Default:     ps.Field("default"),
		})
	}
	return out
}

// Split separates required from optional properties, keeping order.
func Split(props []Property) (required, optional []Property) {
	for _, p := range props {
		if p.Required {
			required = append(required, p)
		} else {
			optional = append(optional, p)
		}
	}
	return required, optional
}

func Flatten(schema openapi.Node) Summary {
	var s Summary
	for _, p := range Properties(schema) {
		s.Types = append(s.Types, FieldType{Name: p.Name, Type: p.Type})
		if p.Required {
			s.RequiredFields = append(s.RequiredFields, p.Name)
		} else {
			s.OptionalFields = append(s.OptionalFields, p.Name)
		}
		if p.Type == "boolean" {
			s.Booleans = append(s.Booleans, p.Name)
		}
		if p.IsEnum {
			s.Enums = append(s.Enums, FieldEnum{Name: p.Name, Values: p.Enum})
		}
	}
	return s
}
