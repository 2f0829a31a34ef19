package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LingByte/LingSignal/pkg/config"
)

func TestEnsureBannerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banner.txt")

	require.NoError(t, EnsureBannerFile(path, "LingSignal"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LingSignal\n", string(data))

	// an existing banner is left alone
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o644))
	require.NoError(t, EnsureBannerFile(path, "LingSignal"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}

func TestPrintBannerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banner.txt")
	assert.NoError(t, PrintBannerFromFile(path, "hello\n\nworld"))
}

func TestLogConfigInfo(t *testing.T) {
	assert.NotPanics(t, func() { LogConfigInfo(config.Default()) })
}
