package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bregovic/docmeta/internal/export"
)

func TestAnalyzeRejectsMalformedID(t *testing.T) {
	srv := New(nil, nil, export.NewService(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/not-a-uuid/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid document id")
}

func TestExportRejectsMalformedID(t *testing.T) {
	srv := New(nil, nil, export.NewService(nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/xyz/results.xlsx", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := New(nil, nil, export.NewService(nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/nothing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
