package dto

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// StandardResponse is the envelope every endpoint returns. Validation
// failures put the field→message map in Data; other errors leave Data null.
type StandardResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func Success(code int, message string, data any) StandardResponse {
	return StandardResponse{
		Status:  StatusSuccess,
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func Error(code int, message string) StandardResponse {
	return StandardResponse{
		Status:  StatusError,
		Code:    code,
		Message: message,
	}
}

func ErrorWithData(code int, message string, data any) StandardResponse {
	return StandardResponse{
		Status:  StatusError,
		Code:    code,
		Message: message,
		Data:    data,
	}
}
