package engine

import "errors"

var (
	// ErrSearchRunning is returned when a search is started, or the engine
	// reconfigured, while another search is in progress.
	ErrSearchRunning = errors.New("search already running")

	// ErrNoMoves is returned by a synchronous search of a position that is
	// already mate or stalemate.
	ErrNoMoves = errors.New("no legal moves")
)
