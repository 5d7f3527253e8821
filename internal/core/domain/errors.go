package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidDocument indicates an enriched document failed its
	// required-field checks and must be excluded from the batch
	ErrInvalidDocument = errors.New("invalid document")

	// ErrRowParse indicates a single raw row could not be read;
	// the row is skipped and ingestion continues
	ErrRowParse = errors.New("row parse failed")

	// ErrBatchTransport indicates the storage engine rejected or could
	// not accept a batch
	ErrBatchTransport = errors.New("batch transport failed")

	// ErrIndexUnavailable indicates one index failed during fan-out;
	// the failure is isolated and excluded from fusion
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrAllIndicesFailed indicates every index failed or the shared
	// timeout elapsed before any index responded
	ErrAllIndicesFailed = errors.New("all indices failed")

	// ErrSourceUnavailable indicates a raw source table could not be opened
	ErrSourceUnavailable = errors.New("source unavailable")
)
