package util

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrEmbeddingService     = errors.New("embedding service error")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrAnswerGeneration     = errors.New("answer generation error")

	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrNoExtractableText = errors.New("no extractable text found")
)
