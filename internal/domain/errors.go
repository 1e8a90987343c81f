package domain

import "errors"

var (
	// ErrCorpusNotFound indicates the question bank source is absent.
	ErrCorpusNotFound = errors.New("question bank not found")
	// ErrCorpusFormat indicates the question bank is malformed or missing required fields.
	ErrCorpusFormat = errors.New("malformed question bank")
	// ErrEmbedding indicates a text could not be vectorized.
	ErrEmbedding = errors.New("text could not be embedded")
	// ErrIndexNotFound indicates no persisted index artifact exists at the path.
	ErrIndexNotFound = errors.New("index artifact not found")
	// ErrIndexCorrupt indicates the persisted artifact disagrees with the
	// configured embedding model or is otherwise unreadable.
	ErrIndexCorrupt = errors.New("index artifact incompatible")
	// ErrInvalidQuery indicates the query is empty after trimming.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownMode indicates a mode outside the closed answer-mode set.
	ErrUnknownMode = errors.New("unknown answer mode")
	// ErrGenerationUnavailable indicates the generation backend cannot be reached.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
)
