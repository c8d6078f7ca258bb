package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbedderConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			cfg: config.EmbedderConfig{
				APIKey: "test-key",
			},
		},
		{
			name: "valid config with model",
			cfg: config.EmbedderConfig{
				Provider: "openai",
				APIKey:   "test-key",
				Model:    "text-embedding-3-large",
			},
		},
		{
			name:    "missing API key",
			cfg:     config.EmbedderConfig{},
			wantErr: true,
			errMsg:  "API key is required",
		},
		{
			name:    "unknown provider",
			cfg:     config.EmbedderConfig{Provider: "cohere", APIKey: "k"},
			wantErr: true,
			errMsg:  "unsupported embedder provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder, err := NewEmbedder(tt.cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, embedder)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, embedder)
			}
		})
	}
}

func TestVectorSizeFor(t *testing.T) {
	assert.Equal(t, uint64(1536), VectorSizeFor("text-embedding-3-small"))
	assert.Equal(t, uint64(3072), VectorSizeFor("text-embedding-3-large"))
	assert.Equal(t, uint64(VectorSize), VectorSizeFor("some-local-model"))
}

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := e.EmbedBatch(context.Background(), []string{"Person: Alice", "Person: Bob"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)

	empty, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating embeddings")
}
