package types

import (
	"regexp"
	"strings"
)

// ErrorKind is the closed set of failure classes a storefront operation can
// surface. Every error returned by a component boundary is one of these.
type ErrorKind int

const (
	// KindValidation covers input rejected before any network call.
	KindValidation ErrorKind = iota

	// KindAuthorization covers missing sessions and non-owner access to
	// owner-only operations, also rejected before any network call.
	KindAuthorization

	// KindProvider covers the signing session rejecting or failing to
	// submit a write (user declined, wrong network).
	KindProvider

	// KindLedgerRejection covers the ledger refusing an operation, usually
	// with a revert reason.
	KindLedgerRejection

	// KindNetwork covers transport failures on reads and confirmations.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindProvider:
		return "provider"
	case KindLedgerRejection:
		return "ledger_rejection"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// Error is the tagged error variant carried across component boundaries.
// Reason holds a structured revert reason when the ledger supplied one;
// Detail holds the underlying cause for wrapping.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Reason  string
	Detail  error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Detail }

// Error codes.
const (
	ErrCodeInvalidConfig       = "INVALID_CONFIG"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeIncompleteRecipient = "INCOMPLETE_RECIPIENT"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidProduct      = "INVALID_PRODUCT"
	ErrCodeInvalidAddress      = "INVALID_ADDRESS"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeNotConnected        = "NOT_CONNECTED"
	ErrCodeNotOwner            = "NOT_OWNER"
	ErrCodeNotBuyer            = "NOT_BUYER"
	ErrCodeNotConfirmed        = "NOT_CONFIRMED"
	ErrCodeWrongNetwork        = "WRONG_NETWORK"
	ErrCodeApproveFailed       = "APPROVE_FAILED"
	ErrCodeWriteReverted       = "WRITE_REVERTED"
	ErrCodeReadFailed          = "READ_FAILED"
)

// ValidationError builds a pre-network input rejection.
func ValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// AuthorizationError builds a pre-network access rejection.
func AuthorizationError(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

const (
	maxMessageLen  = 80
	unknownMessage = "Unknown error"
)

var revertPattern = regexp.MustCompile(`(?:execution )?revert(?:ed)?[:\s]+(.+)`)

// ExtractRevertReason pulls a revert reason out of a raw node error message,
// or returns "" when none is present.
func ExtractRevertReason(msg string) string {
	if m := revertPattern.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Normalize maps any failure shape to a single-line user-facing message.
// Preference order for ledger rejections: structured revert reason, nested
// detail message, bounded raw message, fixed unknown-error fallback.
func Normalize(err error) string {
	if err == nil {
		return ""
	}
	se, ok := err.(*Error)
	if !ok {
		if reason := ExtractRevertReason(err.Error()); reason != "" {
			return reason
		}
		return truncate(err.Error())
	}

	switch se.Kind {
	case KindValidation, KindAuthorization:
		return se.Message
	case KindLedgerRejection:
		if se.Reason != "" {
			return se.Reason
		}
		if se.Detail != nil {
			if reason := ExtractRevertReason(se.Detail.Error()); reason != "" {
				return reason
			}
			return truncate(se.Detail.Error())
		}
		if se.Message != "" {
			return truncate(se.Message)
		}
		return unknownMessage
	default:
		if se.Detail != nil {
			return truncate(se.Detail.Error())
		}
		if se.Message != "" {
			return truncate(se.Message)
		}
		return unknownMessage
	}
}

func truncate(s string) string {
	if s == "" {
		return unknownMessage
	}
	if len(s) > maxMessageLen {
		return s[:maxMessageLen] + "..."
	}
	return s
}
