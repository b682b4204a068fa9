package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	s := Defaults()

	assert.Equal(t, 32000, s.Audio.SampleRate)
	assert.Equal(t, ResamplerCubic, s.Audio.Resampler)
	assert.Equal(t, 128, s.Features.NMels)
	assert.Equal(t, 2048, s.Features.NFFT)
	assert.Equal(t, 512, s.Features.HopLength)
	assert.Equal(t, 224, s.Dataset.ImageSize)
	assert.Equal(t, 32, s.Train.BatchSize)
	assert.Equal(t, 10, s.Train.Epochs)
	assert.InDelta(t, 1e-4, s.Train.LearningRate, 1e-12)
	assert.Equal(t, uint64(42), s.Train.Seed)
	assert.InDelta(t, 0.2, s.Train.ValFraction, 1e-12)
	assert.False(t, s.Train.SnapshotBest)
	assert.False(t, s.Manifest.StrictLabels)
	assert.False(t, s.Predict.Softmax)
	assert.Equal(t, BackbonePooling, s.Model.Backbone)
	assert.Equal(t, DeviceAuto, s.Model.Device)
	assert.Equal(t, "sample_submission.csv", s.Paths.Template)
	assert.False(t, s.Datastore.Enabled)

	require.NoError(t, ValidateSettings(s))
}

func TestLoadFromConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := []byte(`
paths:
  root: /srv/open
train:
  epochs: 3
  snapshotbest: true
model:
  backbone: onnx
  path: /models/efficientnet_b0.onnx
`)
	require.NoError(t, os.WriteFile(path, yamlData, 0o600))

	s, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/open", s.Paths.Root)
	assert.Equal(t, 3, s.Train.Epochs)
	assert.True(t, s.Train.SnapshotBest)
	assert.Equal(t, BackboneONNX, s.Model.Backbone)
	assert.Equal(t, 32, s.Train.BatchSize, "unset keys keep their defaults")
	assert.Equal(t, "/srv/open/train.csv", s.Paths.Resolve(s.Paths.Train))
}

func TestLoadFromRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("train:\n  epochs: 0\n"), 0o600))

	_, err := LoadFrom(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train.epochs")
}

// Not parallel: mutates the process environment.
func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FAKEVOICE_TRAIN_BATCHSIZE", "8")
	t.Setenv("FAKEVOICE_MANIFEST_STRICTLABELS", "true")

	s, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8, s.Train.BatchSize)
	assert.True(t, s.Manifest.StrictLabels)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.Train.Epochs = 7
	s.Paths.Root = "/data/open"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, s))

	loaded, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Train.Epochs)
	assert.Equal(t, "/data/open", loaded.Paths.Root)
	assert.Equal(t, s.Features, loaded.Features)
}

func TestPathResolve(t *testing.T) {
	t.Parallel()

	p := PathSettings{Root: "data"}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative joins root", "train.csv", filepath.Join("data", "train.csv")},
		{"nested relative", "train/a.ogg", filepath.Join("data", "train", "a.ogg")},
		{"absolute unchanged", "/abs/a.ogg", "/abs/a.ogg"},
		{"empty unchanged", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Resolve(tt.in))
		})
	}
}
