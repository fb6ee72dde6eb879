package reel

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessagesAndStatus(t *testing.T) {
	tests := []struct {
		kind    Kind
		message string
		status  int
		name    string
	}{
		{KindMissingInput, "Missing URL parameter", http.StatusBadRequest, "missing_input"},
		{KindMediaResolutionFailed, "Failed to extract video URL", http.StatusInternalServerError, "media_resolution_failed"},
		{KindMediaNotFound, "Could not find video URL", http.StatusNotFound, "media_not_found"},
		{KindUnknownFailure, "Failed to process request", http.StatusInternalServerError, "unknown_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Kind: tt.kind}
			assert.Equal(t, tt.message, err.Message())
			assert.Equal(t, tt.status, err.StatusCode())
			assert.Equal(t, tt.name, tt.kind.String())
		})
	}
}

func TestStatusCodeOfArbitraryErrors(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("x")))

	wrapped := fmt.Errorf("handler: %w", &Error{Kind: KindMediaNotFound})
	assert.Equal(t, http.StatusNotFound, StatusCode(wrapped))
	assert.Equal(t, KindMediaNotFound, KindOf(wrapped))
	assert.Equal(t, KindUnknownFailure, KindOf(errors.New("x")))
}

func TestErrorStringIncludesDetails(t *testing.T) {
	err := &Error{Kind: KindMediaResolutionFailed, Details: "network timeout"}
	assert.Equal(t, "Failed to extract video URL: network timeout", err.Error())
}
