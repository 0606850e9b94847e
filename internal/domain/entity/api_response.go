package entity

// APIResponse is the JSON envelope of the JSON endpoints. The WhatsApp
// endpoint answers with a bare base64 body instead.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code string, message string) *APIResponse {
	return &APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}

// WithRequestID tags the response so a caller can quote it when reporting a failure
func (r *APIResponse) WithRequestID(id string) *APIResponse {
	r.RequestID = id
	return r
}
