package models

// AjaxResponse is the envelope every AJAX action answers with.
// On failure Data carries a MessagePayload.
type AjaxResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// MessagePayload is the failure body.
type MessagePayload struct {
	Message string `json:"message"`
}

// Success wraps data in a success envelope.
func Success(data interface{}) AjaxResponse {
	return AjaxResponse{Success: true, Data: data}
}

// Failure wraps a human-readable message in a failure envelope.
func Failure(message string) AjaxResponse {
	return AjaxResponse{Success: false, Data: MessagePayload{Message: message}}
}

// Response model used by the non-AJAX JSON endpoints (auth, nonce, menu).
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
