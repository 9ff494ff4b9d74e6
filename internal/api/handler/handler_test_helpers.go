package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	mw "github.com/tannervoutour/fixxit.ai-openwebui/internal/api/middleware"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// withAdmin injects an admin principal into the request context.
func withAdmin(r *http.Request) *http.Request {
	return withPrincipal(r, &model.Principal{ID: "test-admin", Name: "Admin", Role: model.RoleAdmin})
}

func withPrincipal(r *http.Request, p *model.Principal) *http.Request {
	return r.WithContext(mw.WithPrincipal(r.Context(), p))
}
