package service

import "fmt"

// Kind classifies a domain error for callers that translate it (HTTP status).
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindState      Kind = "state"
	KindPermission Kind = "permission"
)

// Error is a user-safe domain error. Two errors with the same Code match
// under errors.Is regardless of message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// withMessage returns a copy of e carrying a more specific message.
func (e *Error) withMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrEmailRequired      = &Error{KindValidation, "email_required", "email is required for guest checkout"}
	ErrCartItemsRequired  = &Error{KindValidation, "cart_items_required", "cart items are required"}
	ErrInvalidAddress     = &Error{KindValidation, "invalid_address", "address is invalid"}
	ErrInvalidEmail       = &Error{KindValidation, "invalid_email", "email address is invalid"}
	ErrInvalidQuantity    = &Error{KindValidation, "invalid_quantity", "quantity must be at least 1"}
	ErrInvalidPassword    = &Error{KindValidation, "invalid_password", "password must be at least 8 characters"}
	ErrInvalidStatus      = &Error{KindValidation, "invalid_status", "unknown order status"}
	ErrProductNotFound    = &Error{KindNotFound, "product_not_found", "product not found"}
	ErrOrderNotFound      = &Error{KindNotFound, "order_not_found", "order not found"}
	ErrCartNotFound       = &Error{KindNotFound, "cart_not_found", "cart not found"}
	ErrStoreNotFound      = &Error{KindNotFound, "store_not_found", "store not found"}
	ErrUserNotFound       = &Error{KindNotFound, "user_not_found", "user not found"}
	ErrUnsupportedImage   = &Error{KindValidation, "unsupported_image", "image format is not supported"}
	ErrProductUnavailable = &Error{KindConflict, "product_unavailable", "product is unavailable"}
	ErrInvalidTransition  = &Error{KindConflict, "invalid_transition", "order status transition is not allowed"}
	ErrDuplicateRequest   = &Error{KindConflict, "duplicate_request", "request was already processed"}
	ErrEmailTaken         = &Error{KindConflict, "email_taken", "an account with this email already exists"}
	ErrEmptyCart          = &Error{KindState, "empty_cart", "cart is empty"}
	ErrForbidden          = &Error{KindPermission, "forbidden", "not allowed"}
	ErrInvalidCredentials = &Error{KindPermission, "invalid_credentials", "invalid email or password"}
)
