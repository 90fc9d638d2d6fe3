package shopify

import "fmt"

// Error is a failed Storefront API call. Cause is the platform error code when
// one is reported, Query is the GraphQL document that failed.
type Error struct {
	Cause   string
	Status  int
	Message string
	Query   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("shopify: %s (status=%d cause=%s)", e.Message, e.Status, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

func newGraphQLError(status int, gqlErr graphQLError, query string) *Error {
	cause := gqlErr.Extensions.Code
	if cause == "" {
		cause = "unknown"
	}
	if status < 400 {
		status = 500
	}
	return &Error{Cause: cause, Status: status, Message: gqlErr.Message, Query: query}
}
