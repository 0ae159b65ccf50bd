package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck-backend/internal/models"
)

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateStruct(models.DeckRequest{Name: "Spanish"}))
	})

	t.Run("keys by json name", func(t *testing.T) {
		err := validateStruct(models.RegisterRequest{Email: "nope", Password: "short", FullName: ""})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Invalid email format", verr.Fields["email"])
		assert.Equal(t, "Must be at least 8 characters", verr.Fields["password"])
		assert.Equal(t, "This field is required", verr.Fields["full_name"])
	})

	t.Run("max length", func(t *testing.T) {
		err := validateStruct(models.DeckRequest{Name: "This deck name is far too long to be accepted by the form"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Must be at most 50 characters", verr.Fields["name"])
	})

	t.Run("url", func(t *testing.T) {
		err := validateStruct(models.GenerateVideoRequest{URL: "youtube"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Must be a valid URL", verr.Fields["url"])
	})
}
