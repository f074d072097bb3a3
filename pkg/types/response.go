package types

// SuccessEnvelope wraps every successful response body. Clients always read
// their result from the data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failure: a stable machine code, a
// message safe to show, and optional structured details such as per-field
// validation results.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
