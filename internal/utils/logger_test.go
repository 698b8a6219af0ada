package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenrelay/sfu-core/internal/utils"
)

func TestInitLogger_BuildsForEveryRecognizedLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unrecognized"} {
		require.NoError(t, utils.InitLogger(level, "json"))
		assert.NotNil(t, utils.GetLogger())
	}
}

func TestInitLogger_ConsoleFormat(t *testing.T) {
	require.NoError(t, utils.InitLogger("info", "console"))
	assert.NotNil(t, utils.GetLogger())
}

func TestGetLogger_NeverReturnsNil(t *testing.T) {
	utils.Logger = nil
	assert.NotNil(t, utils.GetLogger())
}
