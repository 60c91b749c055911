// Package embedding turns text into fixed-dimension float vectors. The
// rest of the system only ever sees already-computed vectors; which model
// produces them is a deployment choice behind the Provider interface.
package embedding

import "context"

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed length of every vector this provider emits.
	Dimension() int
}
