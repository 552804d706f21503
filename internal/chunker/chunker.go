package chunker

import (
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/openapi"
)

type Extractor interface {
	Extract(doc *openapi.Document) ([]models.Chunk, error)
}
