package schema_test

import (
	"errors"
	"testing"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/openapi"
	"github.com/0x5457/oas-index/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `openapi: 3.0.0
paths: {}
components:
  schemas:
    User:
      type: object
      required: [id]
      properties:
        id:
          type: string
        role:
          $ref: '#/components/schemas/Role'
        active:
          type: boolean
        manager:
          $ref: '#/components/schemas/Person'
    Role:
      type: string
      enum: [admin, member]
    Person:
      type: object
      properties:
        boss:
          $ref: '#/components/schemas/Person'
    Pair:
      type: object
      properties:
        left:
          $ref: '#/components/schemas/Role'
        right:
          $ref: '#/components/schemas/Role'
    Alias:
      $ref: '#/components/schemas/Role'
    a~b/c:
      type: integer
  tags:
    - name: first
`

func load(t *testing.T) *schema.Resolver {
	t.Helper()
	d, err := openapi.Parse([]byte(doc), openapi.FormatYAML, "doc.yaml")
	require.NoError(t, err)
	return schema.NewResolver(d)
}

func Test_Resolve_LocalPointer(t *testing.T) {
	r := load(t)
	user, err := r.Resolve("#/components/schemas/User")
	require.NoError(t, err)
	assert.Equal(t, "object", user.Field("type").String())

	esc, err := r.Resolve("#/components/schemas/a~0b~1c")
	require.NoError(t, err)
	assert.Equal(t, "integer", esc.Field("type").String())

	tag, err := r.Resolve("#/components/tags/0/name")
	require.NoError(t, err)
	assert.Equal(t, "first", tag.String())
}

func Test_Resolve_MissingNamesRef(t *testing.T) {
	r := load(t)
	_, err := r.Resolve("#/components/schemas/Missing")
	require.Error(t, err)

	var rre *errs.ReferenceResolutionError
	require.True(t, errors.As(err, &rre))
	assert.Equal(t, "#/components/schemas/Missing", rre.Ref)
	assert.Contains(t, err.Error(), "#/components/schemas/Missing")

	_, err = r.Resolve("other.yaml#/User")
	assert.ErrorIs(t, err, errs.ErrReferenceResolution)
}

func Test_Deref_FollowsChains(t *testing.T) {
	r := load(t)
	alias, err := r.Resolve("#/components/schemas/Alias")
	require.NoError(t, err)
	role, err := r.Deref(alias)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "member"}, role.Field("enum").StringList())
}

func Test_ResolveDeep_InlinesAndAllowsSharedSiblings(t *testing.T) {
	r := load(t)
	pair, err := r.Resolve("#/components/schemas/Pair")
	require.NoError(t, err)

	out, err := r.ResolveDeep(pair)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"object","properties":{"left":{"type":"string","enum":["admin","member"]},"right":{"type":"string","enum":["admin","member"]}}}`,
		out.JSON(),
	)
	// source tree untouched
	assert.True(t, pair.Field("properties").Field("left").Has("$ref"))
}

func Test_ResolveDeep_DetectsCycle(t *testing.T) {
	r := load(t)
	user, err := r.Resolve("#/components/schemas/User")
	require.NoError(t, err)

	_, err = r.ResolveDeep(user)
	require.Error(t, err)
	var cyc *errs.CyclicReferenceError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, "#/components/schemas/Person", cyc.Ref)
	assert.Equal(t, []string{"#/components/schemas/Person"}, cyc.Chain)
}

func Test_Properties_And_Flatten(t *testing.T) {
	r := load(t)
	user, err := r.Resolve("#/components/schemas/User")
	require.NoError(t, err)
	role, err := r.Resolve("#/components/schemas/Role")
	require.NoError(t, err)

	props := schema.Properties(user)
	require.Len(t, props, 4)
	assert.Equal(t, "id", props[0].Name)
	assert.True(t, props[0].Required)
	assert.Equal(t, "object", props[1].Type) // unresolved ref has no type
	assert.True(t, props[2].IsBoolean)

	req, opt := schema.Split(props)
	assert.Len(t, req, 1)
	assert.Len(t, opt, 3)

	sum := schema.Flatten(user)
	assert.Equal(t, []string{"id"}, sum.RequiredFields)
	assert.Equal(t, []string{"role", "active", "manager"}, sum.OptionalFields)
	assert.Equal(t, []string{"active"}, sum.Booleans)
	assert.Empty(t, sum.Enums)

	assert.Equal(t, []string{"admin", "member"}, schema.EnumValues(role))
	assert.Equal(t, "string", schema.TypeOf(role))
}
