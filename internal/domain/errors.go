package domain

import (
	"errors"
	"fmt"
)

// FeedErrorKind classifies FeedError.
type FeedErrorKind int

const (
	FeedSourceUnavailable FeedErrorKind = iota + 1
	FeedDecodeFailure
)

func (k FeedErrorKind) String() string {
	switch k {
	case FeedSourceUnavailable:
		return "source_unavailable"
	case FeedDecodeFailure:
		return "decode_failure"
	}
	return "unknown"
}

// FeedError is returned by FeedProvider implementations.
type FeedError struct {
	Kind FeedErrorKind
	Err  error
}

func (e *FeedError) Error() string {
	if e.Err == nil {
		return "feed: " + e.Kind.String()
	}
	return fmt.Sprintf("feed: %s: %v", e.Kind, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// Is matches any FeedError of the same kind, so errors.Is(err, ErrDecodeFailure) works.
func (e *FeedError) Is(target error) bool {
	var t *FeedError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

var (
	ErrSourceUnavailable = &FeedError{Kind: FeedSourceUnavailable}
	ErrDecodeFailure     = &FeedError{Kind: FeedDecodeFailure}
)

func SourceUnavailable(err error) error { return &FeedError{Kind: FeedSourceUnavailable, Err: err} }
func DecodeFailure(err error) error     { return &FeedError{Kind: FeedDecodeFailure, Err: err} }

// ImageErrorKind classifies ImageFetchError.
type ImageErrorKind int

const (
	ImageInvalidURL ImageErrorKind = iota + 1
	ImageMissingData
	ImageHTTPStatus
	ImageTransport
	ImageUnknown
)

func (k ImageErrorKind) String() string {
	switch k {
	case ImageInvalidURL:
		return "invalid_url"
	case ImageMissingData:
		return "missing_data"
	case ImageHTTPStatus:
		return "http_status"
	case ImageTransport:
		return "transport"
	case ImageUnknown:
		return "unknown"
	}
	return "unclassified"
}

// ImageFetchError is delivered for a failed image fetch. The row keeps its
// placeholder; there is no automatic retry.
type ImageFetchError struct {
	Kind   ImageErrorKind
	URL    string
	Status int // set for ImageHTTPStatus
	Err    error
}

func (e *ImageFetchError) Error() string {
	msg := "image fetch: " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" %d", e.Status)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

func (e *ImageFetchError) Is(target error) bool {
	var t *ImageFetchError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.URL == "" && t.Err == nil && t.Status == 0
}

var (
	ErrInvalidURL  = &ImageFetchError{Kind: ImageInvalidURL}
	ErrMissingData = &ImageFetchError{Kind: ImageMissingData}
	ErrHTTPStatus  = &ImageFetchError{Kind: ImageHTTPStatus}
	ErrTransport   = &ImageFetchError{Kind: ImageTransport}
	ErrUnknown     = &ImageFetchError{Kind: ImageUnknown}
)

// ImageErrorKindOf returns the kind of err, or 0 if err is not an ImageFetchError.
func ImageErrorKindOf(err error) ImageErrorKind {
	var e *ImageFetchError
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
