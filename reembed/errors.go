package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrProfileRepositoryRequired is returned by NewReembedder without a repository.
	ErrProfileRepositoryRequired = errors.New("profile repository is required")

	// ErrEmbedderRequired is returned by NewReembedder without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
