package response

import "github.com/conquestsam/MLM/lib/clock"

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	Duplicate     bool        `json:"duplicate,omitempty"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

// Replayed marks a successful idempotent no-op: the event was seen
// before and the previously written records are returned unchanged.
func Replayed(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		Duplicate:     true,
		StatusMessage: "Already processed",
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}
