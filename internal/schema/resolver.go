// Package schema resolves local $ref pointers and summarizes schema objects.
package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/openapi"
	"gopkg.in/yaml.v3"
)

// Resolver follows $ref pointers within a single document.
type Resolver struct {
	root openapi.Node
}

func NewResolver(doc *openapi.Document) *Resolver {
	return &Resolver{root: doc.Root}
}

// Resolve walks a local pointer such as "#/components/schemas/User" from the
// document root. It never returns a partial result.
func (r *Resolver) Resolve(ref string) (openapi.Node, error) {
	if !strings.HasPrefix(ref, "#") {
		return openapi.Node{}, &errs.ReferenceResolutionError{Ref: ref, Reason: "only local references are supported"}
	}
	pointer := strings.TrimPrefix(ref, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	cur := r.root
	if pointer == "" {
		return cur, nil
	}
	for _, raw := range strings.Split(pointer, "/") {
		seg := unescape(raw)
		var (
			next openapi.Node
			ok   bool
		)
		switch cur.Kind() {
		case openapi.KindMap:
			next, ok = cur.Get(seg)
		case openapi.KindSeq:
			if i, err := strconv.Atoi(seg); err == nil {
				next, ok = cur.Index(i)
			}
		}
		if !ok {
			return openapi.Node{}, &errs.ReferenceResolutionError{
				Ref:    ref,
				Reason: fmt.Sprintf("segment %q not found", seg),
			}
		}
		cur = next
	}
	return cur, nil
}

// Deref resolves n when it is a reference object, following chained
// references. Other nodes are returned unchanged.
func (r *Resolver) Deref(n openapi.Node) (openapi.Node, error) {
	var chain []string
	for {
		ref, ok := refOf(n)
		if !ok {
			return n, nil
		}
		if slices.Contains(chain, ref) {
			return openapi.Node{}, &errs.CyclicReferenceError{Ref: ref, Chain: chain}
		}
		target, err := r.Resolve(ref)
		if err != nil {
			return openapi.Node{}, err
		}
		chain = append(chain, ref)
		n = target
	}
}

// ResolveDeep returns a copy of n with every nested $ref inlined. A
// reference reached again while it is still being expanded is a cycle.
func (r *Resolver) ResolveDeep(n openapi.Node) (openapi.Node, error) {
	if !n.Exists() {
		return n, nil
	}
	out, err := r.deep(n, nil)
	if err != nil {
		return openapi.Node{}, err
	}
	return openapi.Wrap(out), nil
}

func (r *Resolver) deep(n openapi.Node, chain []string) (*yaml.Node, error) {
	switch n.Kind() {
	case openapi.KindMap:
		if ref, ok := refOf(n); ok {
			if slices.Contains(chain, ref) {
				return nil, &errs.CyclicReferenceError{Ref: ref, Chain: slices.Clone(chain)}
			}
			target, err := r.Resolve(ref)
			if err != nil {
				return nil, err
			}
			return r.deep(target, append(slices.Clone(chain), ref))
		}
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range n.Pairs() {
			v, err := r.deep(p.Value, chain)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key}, v)
		}
		return out, nil
	case openapi.KindSeq:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, it := range n.Items() {
			v, err := r.deep(it, chain)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, v)
		}
		return out, nil
	default:
		raw := n.Raw()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: raw.ShortTag(), Value: raw.Value, Style: raw.Style}, nil
	}
}

func refOf(n openapi.Node) (string, bool) {
	v, ok := n.Get("$ref")
	if !ok || v.Kind() != openapi.KindString {
		return "", false
	}
	return v.String(), true
}

func unescape(seg string) string {
	seg = strings.ReplaceAll(seg, "~1", "/")
	return strings.ReplaceAll(seg, "~0", "~")
}
