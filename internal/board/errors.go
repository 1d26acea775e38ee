package board

import "errors"

var (
	// ErrInvalidFormat is returned for malformed FEN strings and move text.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyHistory is returned by UndoMove when nothing has been made since Load.
	ErrEmptyHistory = errors.New("no move to undo")

	// ErrCapacityExceeded means a MoveList ran out of room.
	ErrCapacityExceeded = errors.New("move list capacity exceeded")

	// ErrHistoryOverflow means the undo stack reached MaxGameLength.
	ErrHistoryOverflow = errors.New("move history overflow")

	// ErrInvalidMove is returned when move text does not match a legal move.
	ErrInvalidMove = errors.New("invalid move")
)
