package store

import (
	"fmt"

	"github.com/coder/hnsw"
)

// ANNSanityCheck builds a throwaway approximate (hnsw) graph over the same
// vectors as flat and reports, for a sample of queries, how often the
// approximate top-1 agrees with the flat index's exact top-1. It exists
// purely as a CLI diagnostic (`index --ann-sanity-check`) — nothing in the
// scored BM25/Dense path uses an approximate index, since the spec requires
// brute-force (see DESIGN.md).
func ANNSanityCheck(flatIdx *FlatIndex, queries [][]float32) (agree int, total int, err error) {
	if flatIdx.Dim == 0 || len(flatIdx.Vectors) == 0 {
		return 0, 0, fmt.Errorf("empty flat index")
	}

	graph := hnsw.NewGraph[uint64]()
	switch flatIdx.Metric {
	case MetricL2:
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}

	for i, v := range flatIdx.Vectors {
		graph.Add(hnsw.MakeNode(uint64(i), v))
	}

	for _, q := range queries {
		flatScores := flatIdx.Score(q)
		flatTop := argmax(flatScores)

		nodes := graph.Search(q, 1)
		if len(nodes) == 0 {
			total++
			continue
		}
		annTop := int(nodes[0].Key)

		total++
		if annTop == flatTop {
			agree++
		}
	}

	return agree, total, nil
}

func argmax(scores []float64) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
