package oaschunker

import (
	"fmt"
	"strings"

	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/openapi"
	"github.com/0x5457/oas-index/internal/schema"
	"github.com/0x5457/oas-index/internal/util"
)

func baseMetadata(doc *openapi.Document, t models.ChunkType, op operation) models.Metadata {
	return models.NewMetadata(
		models.MetaType, string(t),
		models.MetaOrigin, string(models.OriginSwagger),
		models.MetaFilename, doc.Source,
		models.MetaMethod, string(op.Method),
		models.MetaPath, op.Path,
		models.MetaOperationID, op.ID,
	)
}

func newChunk(t models.ChunkType, text string, md models.Metadata) models.Chunk {
	text = strings.TrimSpace(text)
	return models.Chunk{ID: util.ChunkID(text), Type: t, Text: text, Metadata: md}
}

func (op operation) title() string {
	return strings.ToUpper(string(op.Method)) + " " + op.Path
}

func operationChunk(doc *openapi.Document, op operation) models.Chunk {
	var b strings.Builder
	b.WriteString(op.title())
	b.WriteString("\n\n")
	if op.Summary != "" {
		b.WriteString(op.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("Parameters:\n")
	if len(op.Params) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range op.Params {
		b.WriteString(formatParam(p))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if op.Body != nil {
		fmt.Fprintf(&b, "Request Body:\nContent-Type: %s\nSchema: %s\n\n", op.Body.ContentType, op.Body.Schema.JSON())
	}

	b.WriteString("Responses:\n")
	if len(op.Responses) == 0 {
		b.WriteString("(none)\n")
	}
	for _, r := range op.Responses {
		fmt.Fprintf(&b, "- %s: %s\n", r.Status, r.Description)
		if r.Schema.Exists() {
			fmt.Fprintf(&b, "  Schema: %s\n", r.Schema.JSON())
		}
	}
	b.WriteByte('\n')

	b.WriteString("Security: ")
	if len(op.Security) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(op.Security, ", "))
	}

	return newChunk(models.ChunkOperation, b.String(), baseMetadata(doc, models.ChunkOperation, op))
}

func formatParam(p param) string {
	req := "optional"
	if p.Required {
		req = "required"
	}
	line := fmt.Sprintf("- %s (in: %s, type: %s, %s)", p.Name, p.In, p.Type, req)
	if p.Description != "" {
		line += ": " + p.Description
	}
	return line
}

func granularChunks(doc *openapi.Document, op operation) []models.Chunk {
	var out []models.Chunk
	title := op.title()

	if op.Summary != "" {
		out = append(out, newChunk(models.ChunkEndpointDescription,
			fmt.Sprintf("%s (%s)\n%s", title, op.ID, op.Summary),
			baseMetadata(doc, models.ChunkEndpointDescription, op)))
	}

	for _, p := range op.Params {
		md := baseMetadata(doc, models.ChunkParameter, op)
		md.Set(models.MetaField, p.Name)
		out = append(out, newChunk(models.ChunkParameter,
			fmt.Sprintf("Parameter of %s\n%s", title, strings.TrimPrefix(formatParam(p), "- ")), md))

		if p.Schema.Has("enum") {
			out = append(out, enumChunk(doc, op, p.Name, schema.EnumValues(p.Schema)))
		}
		if p.Type == "boolean" {
			out = append(out, booleanChunk(doc, op, p.Name))
		}
	}

	if op.Body != nil {
		sum := schema.Flatten(op.Body.Schema)
		text := fmt.Sprintf("Request body of %s\nContent-Type: %s\nRequired fields: %s\nOptional fields: %s\nSchema: %s",
			title, op.Body.ContentType, list(sum.RequiredFields), list(sum.OptionalFields), op.Body.Schema.JSON())
		out = append(out, newChunk(models.ChunkRequestBodySchema, text,
			baseMetadata(doc, models.ChunkRequestBodySchema, op)))

		for _, e := range sum.Enums {
			out = append(out, enumChunk(doc, op, e.Name, e.Values))
		}
		for _, name := range sum.Booleans {
			out = append(out, booleanChunk(doc, op, name))
		}
	}

	for _, r := range op.Responses {
		if r.Schema.Exists() {
			md := baseMetadata(doc, models.ChunkResponseSchema, op)
			md.Set(models.MetaStatusCode, r.Status)
			text := fmt.Sprintf("Response %s of %s\nDescription: %s\nContent-Type: %s\nSchema: %s",
				r.Status, title, r.Description, r.ContentType, r.Schema.JSON())
			out = append(out, newChunk(models.ChunkResponseSchema, text, md))
		}
		if isErrorStatus(r.Status) {
			md := baseMetadata(doc, models.ChunkErrorCodeCase, op)
			md.Set(models.MetaStatusCode, r.Status)
			out = append(out, newChunk(models.ChunkErrorCodeCase,
				fmt.Sprintf("Error %s of %s\n%s", r.Status, title, r.Description), md))
		}
	}
	return out
}

func enumChunk(doc *openapi.Document, op operation, field string, values []string) models.Chunk {
	md := baseMetadata(doc, models.ChunkEnumTestCase, op)
	md.Set(models.MetaField, field)
	return newChunk(models.ChunkEnumTestCase,
		fmt.Sprintf("Enum field %s of %s\nAllowed values: %s", field, op.title(), list(values)), md)
}

func booleanChunk(doc *openapi.Document, op operation, field string) models.Chunk {
	md := baseMetadata(doc, models.ChunkBooleanFlagTestCase, op)
	md.Set(models.MetaField, field)
	return newChunk(models.ChunkBooleanFlagTestCase,
		fmt.Sprintf("Boolean field %s of %s\nValues: true, false", field, op.title()), md)
}

func isErrorStatus(status string) bool {
	return len(status) == 3 && (status[0] == '4' || status[0] == '5')
}

func list(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
