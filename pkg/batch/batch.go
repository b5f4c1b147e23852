package batch

import (
	"fmt"
	"iter"

	"github.com/samber/lo"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
)

// DefaultSize balances request body size against the blast radius of a
// failed batched request.
const DefaultSize = 128

// Chunk is a bounded group of coordinates queried together.
type Chunk struct {
	// Index is the 0-based position of the chunk in its batch.
	Index       int
	Coordinates []coordinate.Coordinate
}

func (c Chunk) Len() int { return len(c.Coordinates) }

// Batch splits coords into chunks of at most size, in input order. The
// sequence is computed lazily and can be ranged over any number of times.
func Batch(coords []coordinate.Coordinate, size int) iter.Seq[Chunk] {
	if size < 1 {
		panic(fmt.Sprintf("batch: invalid chunk size %d", size))
	}
	return func(yield func(Chunk) bool) {
		for i, start := 0, 0; start < len(coords); i, start = i+1, start+size {
			chunk := Chunk{
				Index:       i,
				Coordinates: lo.Slice(coords, start, start+size),
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// Count returns the number of chunks Batch yields for n coordinates.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Flatten concatenates chunk coordinates in sequence order.
func Flatten(chunks iter.Seq[Chunk]) []coordinate.Coordinate {
	out := []coordinate.Coordinate{}
	for c := range chunks {
		out = append(out, c.Coordinates...)
	}
	return out
}
