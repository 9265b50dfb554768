package normalize

import (
	"errors"
	"fmt"
)

// Kind identifies what made a raw record invalid.
type Kind string

const (
	// KindUnparseablePrice means no positive numeric token was found in raw_price.
	KindUnparseablePrice Kind = "unparseable_price"
	// KindMalformedURL means raw_url is not an absolute http(s) URL.
	KindMalformedURL Kind = "malformed_url"
	// KindMissingTitle means raw_title is empty after trimming.
	KindMissingTitle Kind = "missing_title"
	// KindBadTimestamp means fetched_at is zero or negative.
	KindBadTimestamp Kind = "bad_timestamp"
)

// ValidationError reports a malformed raw record. Validation errors are
// record-scoped: the caller skips the record and continues the run.
type ValidationError struct {
	Kind  Kind
	Field string // raw record field that failed
	Value string // offending value, for logs
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%s=%q)", e.Kind, e.Field, e.Value)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// KindOf returns the validation kind, or "" if err is not a ValidationError.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
