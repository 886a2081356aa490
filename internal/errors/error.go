package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrUserIdMissing     = errors.New("user id is missing")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrInvalidPagination = errors.New("invalid pagination parameters")

	// mail provider errors
	ErrMailAccountNotFound = errors.New("mail account not configured for user")
	ErrUnsupportedProvider = errors.New("unsupported mail provider")
	ErrProviderTransient   = errors.New("transient mail provider error")
	ErrMalformedMessage    = errors.New("malformed message")

	// sync errors
	ErrLabelNotConfigured = errors.New("label is not configured for sync")

	// directory errors
	ErrContactNotFound = errors.New("contact not found")
	ErrEmailNotFound   = errors.New("email not found")

	// campaign errors
	ErrMissingCampaignField = errors.New("missing required campaign field")
	ErrInvalidCampaignInput = errors.New("invalid campaign input")
)

// IsTransient reports whether err is worth retrying on a later run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderTransient) || errors.Is(err, ErrConnectionTimeout)
}
