package escrow

import "github.com/gofiber/fiber/v2"

// Kind classifies an engine failure for HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotFound
	KindInvalidState
	KindMissingPaymentMethod
)

// String returns the machine-readable error code used in API responses.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindMissingPaymentMethod:
		return "missing_payment_method"
	default:
		return "internal_server_error"
	}
}

// Error carries a failure class plus the user-visible message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the failure class to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthorized:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidState, KindMissingPaymentMethod:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func invalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func missingPaymentMethod(msg string) *Error {
	return &Error{Kind: KindMissingPaymentMethod, Message: msg}
}
