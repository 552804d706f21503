// Package oaschunker turns OpenAPI and Swagger operations into chunks.
package oaschunker

import (
	"fmt"
	"strings"

	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/openapi"
	"github.com/0x5457/oas-index/internal/schema"
)

type Options struct {
	// Granular adds per-parameter, per-schema and per-status chunks after
	// each operation chunk.
	Granular bool
}

type Chunker struct {
	opts Options
}

func New(opts Options) *Chunker {
	return &Chunker{opts: opts}
}

type param struct {
	Name        string
	In          string
	Type        string
	Description string
	Required    bool
	Schema      openapi.Node
}

type requestBody struct {
	ContentType string
	Schema      openapi.Node
}

type response struct {
	Status      string
	Description string
	ContentType string
	Schema      openapi.Node
}

type operation struct {
	Method    models.Method
	Path      string
	ID        string
	Summary   string
	Params    []param
	Body      *requestBody
	Responses []response
	Security  []string
}

// Extract walks paths and methods in document order. The first unresolved
// or cyclic reference aborts extraction.
func (c *Chunker) Extract(doc *openapi.Document) ([]models.Chunk, error) {
	r := schema.NewResolver(doc)
	var chunks []models.Chunk
	for _, pp := range doc.Paths().Pairs() {
		item, err := r.Deref(pp.Value)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", pp.Key, err)
		}
		for _, mp := range item.Pairs() {
			method, ok := models.ParseMethod(strings.ToLower(mp.Key))
			if !ok {
				continue
			}
			op, err := buildOperation(r, doc, pp.Key, method, item, mp.Value)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(string(method)), pp.Key, err)
			}
			chunks = append(chunks, operationChunk(doc, op))
			if c.opts.Granular {
				chunks = append(chunks, granularChunks(doc, op)...)
			}
		}
	}
	return chunks, nil
}

func buildOperation(
	r *schema.Resolver,
	doc *openapi.Document,
	path string,
	method models.Method,
	item, node openapi.Node,
) (operation, error) {
	op := operation{
		Method:  method,
		Path:    path,
		ID:      node.Field("operationId").String(),
		Summary: node.Field("summary").String(),
	}
	if op.ID == "" {
		op.ID = string(method) + "_" + strings.ReplaceAll(path, "/", "_")
	}
	if op.Summary == "" {
		op.Summary = firstLine(node.Field("description").String())
	}

	params, body, err := collectParams(r, doc, item, node)
	if err != nil {
		return op, err
	}
	op.Params = params
	op.Body = body

	if rb, ok := node.Get("requestBody"); ok {
		body, err := collectRequestBody(r, rb)
		if err != nil {
			return op, fmt.Errorf("request body: %w", err)
		}
		if body != nil {
			op.Body = body
		}
	}

	op.Responses, err = collectResponses(r, doc, node)
	if err != nil {
		return op, err
	}

	sec, ok := node.Get("security")
	if !ok {
		sec = doc.Root.Field("security")
	}
	for _, req := range sec.Items() {
		op.Security = append(op.Security, req.Keys()...)
	}
	return op, nil
}

// collectParams merges path-level and operation-level parameters; an
// operation parameter replaces the path parameter with the same name and
// location. A Swagger 2 body parameter becomes the request body.
func collectParams(
	r *schema.Resolver,
	doc *openapi.Document,
	item, node openapi.Node,
) ([]param, *requestBody, error) {
	var (
		out  []param
		body *requestBody
	)
	index := make(map[string]int)
	for _, src := range []openapi.Node{item.Field("parameters"), node.Field("parameters")} {
		for _, raw := range src.Items() {
			p, err := r.Deref(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter: %w", err)
			}
			in := p.Field("in").String()
			if in == "body" {
				s, err := r.ResolveDeep(p.Field("schema"))
				if err != nil {
					return nil, nil, fmt.Errorf("body parameter: %w", err)
				}
				body = &requestBody{ContentType: mediaType(doc, node, "consumes"), Schema: s}
				continue
			}
			ps, err := r.Deref(p.Field("schema"))
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %s: %w", p.Field("name").String(), err)
			}
			typ := ps.Field("type").String()
			if typ == "" {
				typ = p.Field("type").String()
			}
			if typ == "" {
				typ = "string"
			}
			if !ps.Exists() {
				ps = p
			}
			required, _ := p.Field("required").Bool()
			prm := param{
				Name:        p.Field("name").String(),
				In:          in,
				Type:        typ,
				Description: p.Field("description").String(),
				Required:    required,
				Schema:      ps,
			}
			key := prm.Name + "\x00" + prm.In
			if i, ok := index[key]; ok {
				out[i] = prm
				continue
			}
			index[key] = len(out)
			out = append(out, prm)
		}
	}
	return out, body, nil
}

func collectRequestBody(r *schema.Resolver, raw openapi.Node) (*requestBody, error) {
	rb, err := r.Deref(raw)
	if err != nil {
		return nil, err
	}
	for _, mt := range rb.Field("content").Pairs() {
		s, ok := mt.Value.Get("schema")
		if !ok || s.Len() == 0 {
			continue
		}
		resolved, err := r.ResolveDeep(s)
		if err != nil {
			return nil, err
		}
		return &requestBody{ContentType: mt.Key, Schema: resolved}, nil
	}
	return nil, nil
}

func collectResponses(r *schema.Resolver, doc *openapi.Document, node openapi.Node) ([]response, error) {
	var out []response
	for _, rp := range node.Field("responses").Pairs() {
		resp, err := r.Deref(rp.Value)
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", rp.Key, err)
		}
		res := response{Status: rp.Key, Description: resp.Field("description").String()}
		for _, mt := range resp.Field("content").Pairs() {
			s, ok := mt.Value.Get("schema")
			if !ok || s.Len() == 0 {
				continue
			}
			res.ContentType = mt.Key
			res.Schema, err = r.ResolveDeep(s)
			if err != nil {
				return nil, fmt.Errorf("response %s: %w", rp.Key, err)
			}
			break
		}
		if s, ok := resp.Get("schema"); ok && !res.Schema.Exists() {
			res.ContentType = mediaType(doc, node, "produces")
			res.Schema, err = r.ResolveDeep(s)
			if err != nil {
				return nil, fmt.Errorf("response %s: %w", rp.Key, err)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// mediaType reads Swagger 2 consumes/produces, operation level first.
func mediaType(doc *openapi.Document, node openapi.Node, key string) string {
	if v := node.Field(key).StringList(); len(v) > 0 {
		return v[0]
	}
	if v := doc.Root.Field(key).StringList(); len(v) > 0 {
		return v[0]
	}
	return "application/json"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
