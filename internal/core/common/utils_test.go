package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON[sample]("Sure! ```json\n{\"name\": \"Jane\", \"email\": null}\n``` hope that helps")
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Jane", *got.Name)
	assert.Nil(t, got.Email)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := ParseJSON[sample]("no object here")
	assert.Error(t, err)

	_, err = ParseJSON[sample]("} backwards {")
	assert.Error(t, err)

	_, err = ParseJSON[sample]("{\"name\": 3}")
	assert.Error(t, err)
}
