package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a document store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrUnknownIndication is returned when a master record references a
	// term missing from the vocabulary.
	ErrUnknownIndication = errors.New("unknown indication code")

	// ErrCompendium is returned when the compendium reports errors for a drug.
	ErrCompendium = errors.New("compendium returned errors")

	// ErrMissingRegistration is returned for master records without a registration number.
	ErrMissingRegistration = errors.New("master record has no registration number")
)
