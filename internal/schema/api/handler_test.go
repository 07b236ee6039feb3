package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	httperr "github.com/aevon-lab/trackgate/internal/core/errors"
	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/aevon-lab/trackgate/internal/schema/formats/yaml"
	schemaStorage "github.com/aevon-lab/trackgate/internal/schema/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
version: 1
events:
  user_signed_up:
    description: A new account was created
    properties:
      email: string!
      plan:
        type: enum!
        values: [free, starter, growth]
    guards:
      - name: email
        property: email
        message: email must be a valid address
  pageview:
    properties:
      path: string!
      referrer:
        type: string
        default: direct
`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "catalog.yaml"), []byte(catalog), 0o644))

	formats := schema.NewFormatRegistry()
	formats.RegisterFormat(schema.FormatYaml, yaml.NewCompiler())

	registry := schema.NewRegistry()
	require.NoError(t, registry.Load(context.Background(), schemaStorage.NewFileSystemSource(root), formats))

	r := gin.New()
	NewService(registry, schema.NewValidator(registry, nil)).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandleList_RegistrationOrder(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodGet, "/v1/schemas", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "user_signed_up", body.Events[0].Name)
	assert.Equal(t, "pageview", body.Events[1].Name)
	require.Len(t, body.Events[0].Guards, 1)
	assert.Equal(t, "email", body.Events[0].Guards[0].Name)
}

func TestHandleGet(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodGet, "/v1/schemas/pageview", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var s schema.EventSchema
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &s))
	assert.Equal(t, "pageview", s.Name)
	require.Len(t, s.Properties, 2)
	assert.Equal(t, "direct", s.Properties[1].Default)
}

func TestHandleGet_NotFoundListsKnownEvents(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodGet, "/v1/schemas/checkout", "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var body httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, httperr.KindSchemaNotFound, body.Kind)
	assert.Equal(t, []string{"user_signed_up", "pageview"}, body.KnownEvents)
}

func TestHandleValidate_DryRun(t *testing.T) {
	r := setupRouter(t)

	resp := do(r, http.MethodPost, "/v1/schemas/pageview/validate", `{"properties":{"path":"/pricing"}}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var ok ValidateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, map[string]interface{}{"path": "/pricing", "referrer": "direct"}, ok.Properties)

	resp = do(r, http.MethodPost, "/v1/schemas/user_signed_up/validate", `{"properties":{"email":"not-an-email","plan":"free"}}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var failed httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &failed))
	assert.Equal(t, httperr.KindGuardViolation, failed.Kind)
	assert.Equal(t, "email must be a valid address", failed.Details)

	resp = do(r, http.MethodPost, "/v1/schemas/pageview/validate", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var malformed httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &malformed))
	assert.Equal(t, httperr.KindParseFailed, malformed.Kind)
}

func TestHandleValidate_BodyTooLarge(t *testing.T) {
	r := setupRouter(t)

	huge := `{"properties":{"path":"` + strings.Repeat("a", maxValidateBodyBytes) + `"}}`
	resp := do(r, http.MethodPost, "/v1/schemas/pageview/validate", huge)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	var body httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, httperr.KindPayloadTooLarge, body.Kind)
}

func TestHandlers_RegistryNotLoaded(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := schema.NewRegistry()
	r := gin.New()
	NewService(registry, schema.NewValidator(registry, nil)).RegisterRoutes(r)

	resp := do(r, http.MethodGet, "/v1/schemas", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = do(r, http.MethodPost, "/v1/schemas/pageview/validate", `{"properties":{}}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	var body httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, httperr.KindSchemaNotLoaded, body.Kind)
}
