package usecase

import (
	"context"

	"golang.org/x/time/rate"
)

// Chunk splits ids into consecutive slices of at most size elements. The
// returned slices share ids' backing array.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

// Pacer blocks until the next batch may be sent. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a Pacer allowing perSecond batches per second, or nil for
// unpaced sending when perSecond <= 0.
func NewPacer(perSecond float64) Pacer {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
