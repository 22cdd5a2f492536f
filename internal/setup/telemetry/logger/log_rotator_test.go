package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/setup/telemetry/logger"
)

func TestRingBuffer(t *testing.T) {
	t.Parallel()

	rb := logger.NewRingBuffer(3)
	assert.Nil(t, rb.Lines())

	for i := range 5 {
		rb.Add(fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, rb.Lines())
}

func TestLogRotator(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	rotator, err := logger.OpenLogRotator(path, 4)
	require.NoError(t, err)
	defer rotator.Close()

	// Seven lines stay below the rotation threshold.
	for i := range 7 {
		_, err := fmt.Fprintf(rotator, "entry %d\n", i)
		require.NoError(t, err)
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(content)), "\n"), 7)

	// The eighth line triggers a rewrite with the last four.
	_, err = rotator.Write([]byte("entry 7\n"))
	require.NoError(t, err)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "entry 4\nentry 5\nentry 6\nentry 7\n", string(content))

	// Writes continue to the rotated file.
	_, err = rotator.Write([]byte("entry 8\n"))
	require.NoError(t, err)
	require.NoError(t, rotator.Sync())

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "entry 7\nentry 8\n"))
}
