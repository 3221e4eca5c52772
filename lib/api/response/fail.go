package response

import (
	"errors"
	"net/http"

	"github.com/conquestsam/MLM/entity"
	"github.com/go-chi/render"
)

// Fail maps the error taxonomy onto HTTP statuses and renders the
// envelope. Raw store errors never reach the caller: anything
// unclassified is reported as a retryable transient failure.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusServiceUnavailable
	message := err.Error()

	switch entity.KindOf(err) {
	case entity.KindValidation:
		status = http.StatusBadRequest
		if errors.Is(err, entity.ErrUnknownMember) ||
			errors.Is(err, entity.ErrUnknownRecord) ||
			errors.Is(err, entity.ErrUnknownLink) {
			status = http.StatusNotFound
		}
	case entity.KindConflict:
		status = http.StatusConflict
	case entity.KindInvariant:
		status = http.StatusInternalServerError
	case entity.KindTransient:
		message = "Temporary failure, retry with the same idempotency key"
	}

	render.Status(r, status)
	render.JSON(w, r, Error(message))
}
