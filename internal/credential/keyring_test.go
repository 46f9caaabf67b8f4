package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePasswordPrefersEnv(t *testing.T) {
	t.Setenv("KEYRING_FILE_PASSWORD", "s3cret")
	p, err := filePassword("prompt")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", p)
}

func TestFilePasswordDefault(t *testing.T) {
	t.Setenv("KEYRING_FILE_PASSWORD", "")
	p, err := filePassword("prompt")
	require.NoError(t, err)
	assert.Equal(t, "chore-assistant-file-key", p)
}
