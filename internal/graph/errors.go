package graph

import "errors"

var (
	// ErrInvalidOptions indicates out-of-range algorithm parameters
	ErrInvalidOptions = errors.New("invalid graph algorithm options")

	// ErrNoConvergence indicates PageRank hit its iteration cap
	ErrNoConvergence = errors.New("pagerank did not converge")
)
