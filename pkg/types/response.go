package types

// SuccessEnvelope wraps every successful admin API response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Code mirrors pkg/errors codes such as
// PAYOUT_MINIMUM_NOT_MET and INSUFFICIENT_BALANCE.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
