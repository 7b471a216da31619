package media

import "errors"

var (
	// ErrTooLarge indicates the fetched payload exceeds the configured limit.
	ErrTooLarge = errors.New("media too large")
	// ErrFetch indicates the media URL could not be downloaded.
	ErrFetch = errors.New("media fetch failed")
	// ErrEmptyDescription indicates the model returned no text.
	ErrEmptyDescription = errors.New("empty media description")
)
