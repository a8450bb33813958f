package enrich

import "errors"

var (
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
	ErrStoreRequired      = errors.New("store is required")
	ErrExtractorRequired  = errors.New("metadata extractor is required")
)
