package pkg

import "fmt"

// AppError is a domain error with the HTTP status it maps to.
type AppError struct {
	Code       string
	Message    string
	Err        error
	HTTPStatus int
	Details    any
}

// HTTPError is the JSON body of every error response.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewDomainError(code, message string, err error, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, Err: err, HTTPStatus: httpStatus}
}

func NewDomainErrorSimple(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e carrying details in its response body.
func (e *AppError) WithDetails(details any) *AppError {
	out := *e
	out.Details = details
	return &out
}

func (e *AppError) ToHTTPError() HTTPError {
	return HTTPError{Code: e.Code, Message: e.Message, Details: e.Details}
}
