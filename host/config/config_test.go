package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tilelink/host/library"
	"tilelink/protocol"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig([]byte(`{"device": "/dev/ttyUSB0"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.DefaultFormat, config.Format())
	require.Equal(t, 256000, config.Baud)
	require.Equal(t, 128, config.Panel.Width)
	require.Equal(t, library.FitScale, config.Fit)

	sc := config.Serial()
	require.Equal(t, "/dev/ttyUSB0", sc.Device)
	require.Equal(t, 100, sc.ReadTimeout)
	require.NoError(t, sc.Validate())
}

func TestLoadConfigTile(t *testing.T) {
	config, err := LoadConfig([]byte(`{
		"device": "COM3",
		"baud": 115200,
		"tile": {"width": 32, "height": 16, "chunk": 256, "checked": true},
		"panel": {"width": 160, "height": 128},
		"fit": "crop"
	}`))
	require.NoError(t, err)
	require.Equal(t, protocol.Format{Width: 32, Height: 16, Chunk: 256, Checked: true}, config.Format())
	require.Equal(t, 160, config.Panel.Width)
	require.Equal(t, library.FitCrop, config.Fit)
}

func TestLoadConfigErrors(t *testing.T) {
	for _, data := range []string{
		`{`,
		`{"tile": {"chunk": 7}}`,
		`{"tile": {"width": 300, "checked": true}}`,
		`{"fit": "stretch"}`,
		`{"panel": {"width": -1}}`,
	} {
		_, err := LoadConfig([]byte(data))
		require.Error(t, err, data)
	}
}

func TestLoadResolvesImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"images": ["a.png", "/abs/b.png"]}`), 0o644))

	config, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.png"), "/abs/b.png"}, config.Images)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("/dev/ttyACM0")
	require.NoError(t, config.Validate())
	require.Equal(t, "/dev/ttyACM0", config.Device)
}
