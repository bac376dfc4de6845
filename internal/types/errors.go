package types

// ErrorBody carries a stable machine-readable code (PROFILE_404,
// TELEMETRY_400, ...), a human-readable message, and optional context
// such as the offending value or validation output.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the envelope every non-2xx JSON response uses, so
// clients can always read .error.code regardless of which handler failed.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse wraps code, message and details in the envelope.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
