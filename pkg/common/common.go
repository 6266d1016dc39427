package common

// CommonResponse is the response envelope used by every HTTP handler. Error
// carries detail only outside production configuration.
type CommonResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
