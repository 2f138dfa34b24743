package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/internal/pkg/processing"
)

func TestExecuteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/execute", r.URL.Path)

		var req executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.OpMergePDF, req.Operation)
		assert.Equal(t, int64(1024), req.InputSize)

		json.NewEncoder(w).Encode(executeResponse{
			OutputName:  "merged.pdf",
			OutputSize:  2048,
			ContentType: "application/pdf",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	result, err := client.Execute(context.Background(), processing.Request{
		Operation: models.OpMergePDF,
		InputName: "in.pdf",
		InputSize: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "merged.pdf", result.OutputName)
	assert.Equal(t, int64(2048), result.OutputSize)
	assert.Equal(t, "application/pdf", result.ContentType)
}

func TestExecuteReportedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{Error: "corrupt input file"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.Execute(context.Background(), processing.Request{Operation: models.OpMergePDF})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt input file")
}

func TestExecuteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.Execute(context.Background(), processing.Request{Operation: models.OpMergePDF})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestExecuteUnreachableEngine(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1")
	_, err := client.Execute(context.Background(), processing.Request{Operation: models.OpMergePDF})
	assert.Error(t, err)
}
