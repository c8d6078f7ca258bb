// Package mocks provides hand-written fakes of the domain ports for tests.
package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder. Every text gets
// EmbeddingResult.
type Embedder struct {
	EmbeddingResult []float32
	Err             error

	// Texts records every text passed in, in order.
	Texts []string
}

// Embed returns the configured embedding or error.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.EmbeddingResult, nil
}

// EmbedBatch returns one configured embedding per text.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Texts = append(m.Texts, texts...)
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.EmbeddingResult
	}
	return result, nil
}
