package response

import (
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestDefaultMessageForStatus(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{fiber.StatusOK, MessageOK},
		{fiber.StatusBadRequest, MessageBadRequest},
		{fiber.StatusNotFound, MessageNotFound},
		{fiber.StatusInternalServerError, MessageInternalServerError},
		{fiber.StatusServiceUnavailable, MessageInternalServerError},
		// Statuses this API never emits fall back to the generic message.
		{fiber.StatusConflict, MessageError},
		{fiber.StatusUnprocessableEntity, MessageError},
	}
	for _, tc := range cases {
		if got := defaultMessageForStatus(tc.status); got != tc.want {
			t.Fatalf("status %d: expected %q, got %q", tc.status, tc.want, got)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := normalizeStatus(0); got != fiber.StatusInternalServerError {
		t.Fatalf("expected out-of-range status normalized to 500, got %d", got)
	}
	if got := normalizeStatus(fiber.StatusNotFound); got != fiber.StatusNotFound {
		t.Fatalf("expected 404 preserved, got %d", got)
	}
}
