// Package handler holds the JSON envelope every endpoint answers with.
package handler

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
	}
}

// NewErrorResponseWithDetails carries per-field problems, such as
// validation failures, in Data.
func NewErrorResponseWithDetails(message string, details interface{}) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
		Data:    details,
	}
}
