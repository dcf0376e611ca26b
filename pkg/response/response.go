// Package response defines the uniform JSON envelope returned by every
// API endpoint.
package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "Invalid request body.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var LinkExpiredResponse = Response{
	Status:  StatusError,
	Error:   "Link Expired",
	Message: "The requested link has expired.",
}

var AliasTakenResponse = Response{
	Status:  StatusError,
	Error:   "Alias Taken",
	Message: "That short code is already taken. Please choose another.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

// ErrorResponse builds a one-off error envelope for cases the canned
// responses don't cover.
func ErrorResponse(errTitle, msg string) Response {
	return Response{
		Status:  StatusError,
		Error:   errTitle,
		Message: msg,
	}
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	errs := make([]validationError, 0, len(validationErrs))

	for _, fieldErr := range validationErrs {
		issue := "Invalid value."

		switch fieldErr.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		case "min":
			issue = fmt.Sprintf("Must be at least %s characters long.", fieldErr.Param())
		case "max":
			issue = fmt.Sprintf("Must be at most %s characters long.", fieldErr.Param())
		case "gt":
			issue = fmt.Sprintf("Must be greater than %s.", fieldErr.Param())
		}

		errs = append(errs, validationError{
			Field: fieldErr.Field(),
			Value: fieldErr.Value(),
			Issue: issue,
		})
	}

	return errs
}

// ValidationErrorResponse converts a validator error into an error envelope
// carrying one detail entry per failed field.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The request contains invalid fields.",
	}

	for _, vErr := range getValidationErrors(err) {
		resp.Details = append(resp.Details, vErr)
	}

	return resp
}
