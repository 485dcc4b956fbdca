package estimate

import "errors"

var (
	// ErrInvalidIdentifier means a repository id is not of the owner/name form.
	ErrInvalidIdentifier = errors.New("invalid model id")
	// ErrEmptyRepository means the repository lists no files.
	ErrEmptyRepository = errors.New("empty repository")
	// ErrNotProjectable means a size was sampled from files and cannot be rescaled to another precision.
	ErrNotProjectable = errors.New("estimate is not parameter-derived")
	// ErrSourceUnavailable marks a Source failure that affects every file,
	// such as rejected credentials or an unreachable registry. Estimation
	// stops instead of treating the file as unknown.
	ErrSourceUnavailable = errors.New("model source unavailable")
)
