package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/photobooth/gallery/internal/model"
)

var specPath = filepath.Join("..", "..", "docs", "api", "openapi.yaml")

// loadSpec loads and validates the OpenAPI document.
func loadSpec(t *testing.T) (*openapi3.T, routers.Router) {
	t.Helper()

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromFile(specPath)
	if err != nil {
		t.Fatalf("load OpenAPI spec from %s: %v", specPath, err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		t.Fatalf("create router from spec: %v", err)
	}
	return spec, router
}

// checkContract validates a recorded response against the documented one.
func checkContract(t *testing.T, router routers.Router, req *http.Request, rec *httptest.ResponseRecorder) {
	t.Helper()

	route, pathParams, err := router.FindRoute(req)
	if err != nil {
		t.Fatalf("%s %s not documented: %v", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: rec.Code,
		Header: rec.Header(),
		Body:   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
		},
	}

	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		t.Errorf("%s %s -> %d violates the contract: %v\nbody: %s",
			req.Method, req.URL.Path, rec.Code, err, rec.Body.String())
	}
}

func TestContract_SpecDocumentsRoutes(t *testing.T) {
	spec, _ := loadSpec(t)

	for _, path := range []string{
		"/api/tokens",
		"/api/tokens/user/{userId}",
		"/api/tokens/user/{userId}/{tokenId}",
		"/api/images",
		"/api/images/{id}",
		"/api/events",
		"/healthz",
		"/readyz",
		"/metrics",
	} {
		if spec.Paths.Find(path) == nil {
			t.Errorf("path %s missing from spec", path)
		}
	}
}

func TestContract_Responses(t *testing.T) {
	_, router := loadSpec(t)
	env := newAPIEnv(t, 1<<20)
	admin := env.token(t)
	uploader := env.token(t, model.AbilityUpload)

	// Seed one image for the list and delete cases.
	rec := env.do(t, uploadRequest(t, "seed.png", pngFixture()), uploader)
	var seeded model.ImageResponse
	if err := json.NewDecoder(rec.Body).Decode(&seeded); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	const host = "http://gallery.test"
	tokenBody := `{"user_id":"` + env.user.ID + `","name":"booth","abilities":["upload"]}`

	tests := []struct {
		name   string
		build  func() *http.Request
		bearer string
		want   int
	}{
		{"healthz", func() *http.Request { return httptest.NewRequest(http.MethodGet, host+"/healthz", nil) }, "", 200},
		{"readyz", func() *http.Request { return httptest.NewRequest(http.MethodGet, host+"/readyz", nil) }, "", 200},
		{"list images", func() *http.Request { return httptest.NewRequest(http.MethodGet, host+"/api/images", nil) }, "", 200},
		{"upload", func() *http.Request {
			r := uploadRequest(t, "a.png", pngFixture())
			r.URL.Scheme, r.URL.Host, r.Host = "http", "gallery.test", "gallery.test"
			return r
		}, uploader, 201},
		{"upload unsupported", func() *http.Request {
			r := uploadRequest(t, "a.txt", []byte("text"))
			r.URL.Scheme, r.URL.Host, r.Host = "http", "gallery.test", "gallery.test"
			return r
		}, uploader, 422},
		{"upload anonymous", func() *http.Request {
			r := uploadRequest(t, "a.png", pngFixture())
			r.URL.Scheme, r.URL.Host, r.Host = "http", "gallery.test", "gallery.test"
			return r
		}, "", 401},
		{"delete forbidden", func() *http.Request {
			return httptest.NewRequest(http.MethodDelete, host+"/api/images/"+seeded.ID, nil)
		}, uploader, 403},
		{"delete", func() *http.Request {
			return httptest.NewRequest(http.MethodDelete, host+"/api/images/"+seeded.ID, nil)
		}, admin, 200},
		{"delete missing", func() *http.Request {
			return httptest.NewRequest(http.MethodDelete, host+"/api/images/"+seeded.ID, nil)
		}, admin, 404},
		{"issue token", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, host+"/api/tokens", strings.NewReader(tokenBody))
			r.Header.Set("Content-Type", "application/json")
			return r
		}, admin, 201},
		{"issue token invalid", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, host+"/api/tokens", strings.NewReader(`{"name":""}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}, admin, 422},
		{"list tokens", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, host+"/api/tokens/user/"+env.user.ID, nil)
		}, admin, 200},
		{"revoke missing token", func() *http.Request {
			return httptest.NewRequest(http.MethodDelete, host+"/api/tokens/user/"+env.user.ID+"/nope", nil)
		}, admin, 404},
		{"revoke all", func() *http.Request {
			return httptest.NewRequest(http.MethodDelete, host+"/api/tokens/user/"+env.user.ID, nil)
		}, admin, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.build()
			rec := env.do(t, req, tt.bearer)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			checkContract(t, router, req, rec)
		})
	}
}
