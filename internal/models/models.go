package models

import "time"

type ChunkType string

const (
	ChunkOperation           ChunkType = "operation"
	ChunkEndpointDescription ChunkType = "endpoint_description"
	ChunkParameter           ChunkType = "parameter"
	ChunkRequestBodySchema   ChunkType = "request_body_schema"
	ChunkResponseSchema      ChunkType = "response_schema"
	ChunkEnumTestCase        ChunkType = "enum_test_case"
	ChunkBooleanFlagTestCase ChunkType = "boolean_flag_test_case"
	ChunkErrorCodeCase       ChunkType = "error_code_case"
	ChunkText                ChunkType = "text"
	// legacy origin markers still found in older collections
	ChunkSwagger ChunkType = "swagger"
	ChunkPostman ChunkType = "postman"
)

var chunkTypes = map[ChunkType]struct{}{
	ChunkOperation:           {},
	ChunkEndpointDescription: {},
	ChunkParameter:           {},
	ChunkRequestBodySchema:   {},
	ChunkResponseSchema:      {},
	ChunkEnumTestCase:        {},
	ChunkBooleanFlagTestCase: {},
	ChunkErrorCodeCase:       {},
	ChunkText:                {},
	ChunkSwagger:             {},
	ChunkPostman:             {},
}

// ParseChunkType reports whether s names a known chunk type.
func ParseChunkType(s string) (ChunkType, bool) {
	t := ChunkType(s)
	_, ok := chunkTypes[t]
	return t, ok
}

// CoerceChunkType maps unknown chunk types to ChunkText.
func CoerceChunkType(s string) ChunkType {
	if t, ok := ParseChunkType(s); ok {
		return t
	}
	return ChunkText
}

type Origin string

const (
	OriginSwagger Origin = "swagger"
	OriginPostman Origin = "postman"
	OriginText    Origin = "text"
	OriginUnknown Origin = "unknown"
)

const (
	CollectionSwagger = "swagger_embeddings"
	CollectionPostman = "postman_embeddings"
	CollectionText    = "text_embeddings"
)

// CollectionFor returns the collection that stores chunks of the given origin.
func CollectionFor(o Origin) string {
	switch o {
	case OriginSwagger:
		return CollectionSwagger
	case OriginPostman:
		return CollectionPostman
	default:
		return CollectionText
	}
}

type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
	MethodPatch  Method = "patch"
)

// ParseMethod accepts the methods that are turned into chunks. Everything
// else (head, options, trace, extensions) is rejected.
func ParseMethod(s string) (Method, bool) {
	switch m := Method(s); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return m, true
	default:
		return "", false
	}
}

// Metadata keys shared by chunks and vector store records.
const (
	MetaType        = "chunk_type"
	MetaOrigin      = "chunk_origin"
	MetaFilename    = "source_file"
	MetaHash        = "hash_id"
	MetaMethod      = "method"
	MetaPath        = "path"
	MetaOperationID = "operation_id"
	MetaStatusCode  = "status_code"
	MetaField       = "field"
)

type Chunk struct {
	ID       string
	Type     ChunkType
	Text     string
	Metadata Metadata
}

type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

type Collection struct {
	Name      string
	ID        string
	CreatedAt time.Time
}

type Record struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  Metadata
}

type Match struct {
	ID       string   `json:"id"`
	Document string   `json:"document"`
	Metadata Metadata `json:"metadata"`
	Distance float32  `json:"distance"`
}

type QueryResult struct {
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// Ingest progress and stages
type IngestStage string

const (
	IngestStageScan    IngestStage = "scan"
	IngestStageExtract IngestStage = "extract"
	IngestStageEmbed   IngestStage = "embed"
	IngestStageStore   IngestStage = "store"
	IngestStageDone    IngestStage = "done"
)

// IngestProgress represents streaming progress updates for ingestion
type IngestProgress struct {
	Stage          IngestStage
	TotalFiles     int
	IndexedFiles   int
	TotalChunks    int
	EmbeddedChunks int
	CurrentFile    string
	Message        string
	Percent        float32
}
