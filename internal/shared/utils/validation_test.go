package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("3f2b8c1e-0d4a-4a57-9a1e-1c2d3e4f5a6b", "session_id", true))
	assert.NoError(t, ValidateID("ph-3f2b8c1e", "external_name", true))
	assert.NoError(t, ValidateID("", "session_id", false))

	for _, bad := range []string{"", "has space", "semi;colon", "dot.ted", strings.Repeat("a", MaxIDLength+1)} {
		err := ValidateID(bad, "session_id", true)
		assert.ErrorIs(t, err, types.ErrInvalidParams, bad)
	}
}

func TestValidateToolID(t *testing.T) {
	assert.NoError(t, ValidateToolID("terminal.create_session", "tool_id", true))
	assert.ErrorIs(t, ValidateToolID("terminal/create", "tool_id", true), types.ErrInvalidParams)
	assert.ErrorIs(t, ValidateToolID("", "tool_id", true), types.ErrInvalidParams)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/home/user/project", "working_directory"))
	assert.NoError(t, ValidatePath("", "working_directory"))
	assert.ErrorIs(t, ValidatePath("/tmp/\x00evil", "working_directory"), types.ErrInvalidParams)
}

func TestValidateInputSize(t *testing.T) {
	assert.NoError(t, ValidateInputSize(make([]byte, MaxInputSize)))
	assert.ErrorIs(t, ValidateInputSize(make([]byte, MaxInputSize+1)), types.ErrInvalidParams)
}
