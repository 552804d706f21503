package oaschunker_test

import (
	"testing"

	"github.com/0x5457/oas-index/internal/chunker/oaschunker"
	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/openapi"
	"github.com/0x5457/oas-index/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersYAML = `openapi: 3.0.0
security:
  - bearerAuth: []
paths:
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string}
    get:
      operationId: getUser
      summary: Get a user
      parameters:
        - $ref: '#/components/parameters/Verbose'
      responses:
        '200':
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
        '404':
          $ref: '#/components/responses/NotFound'
    head:
      responses:
        '200': {description: OK}
    options:
      responses:
        '200': {description: OK}
  /users:
    x-internal: true
    post:
      security: []
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/NewUser'
      responses:
        '201': {description: Created}
components:
  parameters:
    Verbose: {name: verbose, in: query, schema: {type: boolean}, description: Include details}
  responses:
    NotFound: {description: Not found}
  schemas:
    User: {type: object, required: [id], properties: {id: {type: string}, role: {type: string, enum: [admin, member]}}}
    NewUser: {type: object, required: [name], properties: {name: {type: string}, admin: {type: boolean}, role: {type: string, enum: [admin, member]}}}
`

const getUserText = `GET /users/{id}

Get a user

Parameters:
- id (in: path, type: string, required)
- verbose (in: query, type: boolean, optional): Include details

Responses:
- 200: OK
  Schema: {"type":"object","required":["id"],"properties":{"id":{"type":"string"},"role":{"type":"string","enum":["admin","member"]}}}
- 404: Not found

Security: bearerAuth`

const createUserText = `POST /users

Parameters:
(none)

Request Body:
Content-Type: application/json
Schema: {"type":"object","required":["name"],"properties":{"name":{"type":"string"},"admin":{"type":"boolean"},"role":{"type":"string","enum":["admin","member"]}}}

Responses:
- 201: Created

Security: none`

func parse(t *testing.T, src string) *openapi.Document {
	t.Helper()
	doc, err := openapi.Parse([]byte(src), openapi.FormatYAML, "users.yaml")
	require.NoError(t, err)
	return doc
}

func Test_Extract_OneChunkPerOperation(t *testing.T) {
	chunks, err := oaschunker.New(oaschunker.Options{}).Extract(parse(t, usersYAML))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	get := chunks[0]
	assert.Equal(t, models.ChunkOperation, get.Type)
	assert.Equal(t, getUserText, get.Text)
	assert.Equal(t, util.ChunkID(getUserText), get.ID)
	assert.Equal(t, []string{
		models.MetaType, models.MetaOrigin, models.MetaFilename,
		models.MetaMethod, models.MetaPath, models.MetaOperationID,
	}, get.Metadata.Keys())
	assert.Equal(t, "operation", get.Metadata.Value(models.MetaType))
	assert.Equal(t, "swagger", get.Metadata.Value(models.MetaOrigin))
	assert.Equal(t, "users.yaml", get.Metadata.Value(models.MetaFilename))
	assert.Equal(t, "get", get.Metadata.Value(models.MetaMethod))
	assert.Equal(t, "/users/{id}", get.Metadata.Value(models.MetaPath))
	assert.Equal(t, "getUser", get.Metadata.Value(models.MetaOperationID))

	post := chunks[1]
	assert.Equal(t, createUserText, post.Text)
	assert.Equal(t, "post__users", post.Metadata.Value(models.MetaOperationID))
}

func Test_Extract_Deterministic(t *testing.T) {
	c := oaschunker.New(oaschunker.Options{Granular: true})
	first, err := c.Extract(parse(t, usersYAML))
	require.NoError(t, err)
	second, err := c.Extract(parse(t, usersYAML))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func Test_Extract_JSONMatchesYAML(t *testing.T) {
	const js = `{"openapi":"3.0.0","paths":{"/ping":{"get":{"summary":"Ping","responses":{"200":{"description":"pong","content":{"application/json":{"schema":{"type":"object","properties":{"ok":{"type":"boolean"}}}}}}}}}}}`
	const ys = `openapi: 3.0.0
paths:
  /ping:
    get:
      summary: Ping
      responses:
        200:
          description: pong
          content:
            application/json:
              schema:
                type: object
                properties:
                  ok:
                    type: boolean
`
	jd, err := openapi.Parse([]byte(js), openapi.FormatJSON, "ping.json")
	require.NoError(t, err)
	yd, err := openapi.Parse([]byte(ys), openapi.FormatYAML, "ping.json")
	require.NoError(t, err)

	c := oaschunker.New(oaschunker.Options{})
	a, err := c.Extract(jd)
	require.NoError(t, err)
	b, err := c.Extract(yd)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, a[0].Text, b[0].Text)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func Test_Extract_MissingRefNamesTarget(t *testing.T) {
	const src = `openapi: 3.0.0
paths:
  /orders:
    get:
      responses:
        '200':
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Order'
`
	_, err := oaschunker.New(oaschunker.Options{}).Extract(parse(t, src))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrReferenceResolution)
	assert.Contains(t, err.Error(), "GET /orders")
	assert.Contains(t, err.Error(), "#/components/schemas/Order")
}

func Test_Extract_CyclicSchema(t *testing.T) {
	const src = `openapi: 3.0.0
paths:
  /nodes:
    get:
      responses:
        '200':
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Node'
components:
  schemas:
    Node:
      type: object
      properties:
        next:
          $ref: '#/components/schemas/Node'
`
	_, err := oaschunker.New(oaschunker.Options{}).Extract(parse(t, src))
	assert.ErrorIs(t, err, errs.ErrCyclicReference)
}

func Test_Extract_OperationParamOverridesPathParam(t *testing.T) {
	const src = `openapi: 3.0.0
paths:
  /items/{id}:
    parameters:
      - {name: id, in: path, required: true, description: path level}
    put:
      parameters:
        - {name: id, in: path, required: true, schema: {type: integer}, description: op level}
        - {name: id, in: query}
      responses: {}
`
	chunks, err := oaschunker.New(oaschunker.Options{}).Extract(parse(t, src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "- id (in: path, type: integer, required): op level\n- id (in: query, type: string, optional)\n")
	assert.NotContains(t, chunks[0].Text, "path level")
	assert.Contains(t, chunks[0].Text, "Responses:\n(none)")
}

func Test_Extract_Swagger2(t *testing.T) {
	const src = `swagger: '2.0'
produces: [application/xml]
paths:
  /pets:
    post:
      summary: Add pet
      consumes: [application/json]
      parameters:
        - in: body
          name: body
          schema:
            $ref: '#/definitions/Pet'
        - {name: dry, in: query, type: boolean}
      responses:
        '200':
          description: ok
          schema:
            $ref: '#/definitions/Pet'
definitions:
  Pet: {type: object, properties: {name: {type: string}}}
`
	chunks, err := oaschunker.New(oaschunker.Options{}).Extract(parse(t, src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	text := chunks[0].Text
	assert.Contains(t, text, "- dry (in: query, type: boolean, optional)")
	assert.Contains(t, text, "Request Body:\nContent-Type: application/json\nSchema: {\"type\":\"object\",\"properties\":{\"name\":{\"type\":\"string\"}}}")
	assert.Contains(t, text, "- 200: ok\n  Schema: {\"type\":\"object\"")
}

func Test_Extract_Granular(t *testing.T) {
	chunks, err := oaschunker.New(oaschunker.Options{Granular: true}).Extract(parse(t, usersYAML))
	require.NoError(t, err)

	var types []models.ChunkType
	for _, c := range chunks {
		types = append(types, c.Type)
		assert.Equal(t, string(c.Type), c.Metadata.Value(models.MetaType))
		assert.Equal(t, util.ChunkID(c.Text), c.ID)
	}
	assert.Equal(t, []models.ChunkType{
		models.ChunkOperation,
		models.ChunkEndpointDescription,
		models.ChunkParameter,
		models.ChunkParameter,
		models.ChunkBooleanFlagTestCase,
		models.ChunkResponseSchema,
		models.ChunkErrorCodeCase,
		models.ChunkOperation,
		models.ChunkRequestBodySchema,
		models.ChunkEnumTestCase,
		models.ChunkBooleanFlagTestCase,
	}, types)

	errCase := chunks[6]
	assert.Equal(t, "404", errCase.Metadata.Value(models.MetaStatusCode))
	assert.Equal(t, "Error 404 of GET /users/{id}\nNot found", errCase.Text)

	enum := chunks[9]
	assert.Equal(t, "role", enum.Metadata.Value(models.MetaField))
	assert.Equal(t, "Enum field role of POST /users\nAllowed values: admin, member", enum.Text)
}
