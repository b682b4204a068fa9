// config.go: settings struct for detect-fakevoice and the functions to load and save it.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// PathSettings locates the manifests, the audio root and the output file.
type PathSettings struct {
	Root     string // folder holding the manifests; audio paths are relative to it
	Train    string // labelled manifest, columns path,label
	Test     string // unlabelled manifest, column path
	Template string // sample submission, id column plus placeholder score columns
	Output   string // submission written after inference
}

// Resolve joins a relative name onto Root. Absolute names are returned unchanged.
func (p PathSettings) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Root, name)
}

// AudioSettings controls decoding.
type AudioSettings struct {
	SampleRate int    // every clip is resampled to this rate before feature extraction
	Resampler  string // cubic or beep
}

// FeatureSettings controls the mel spectrogram.
type FeatureSettings struct {
	NMels     int // number of mel bands
	NFFT      int // FFT window length
	HopLength int // samples between frames
	Workers   int // decode workers, 0 uses all CPUs
	Memo      bool
}

// DatasetSettings controls the image transform.
type DatasetSettings struct {
	ImageSize int  // square side of the resized spectrogram image
	Antialias bool // widen the bilinear kernel when downscaling
}

// ManifestSettings controls manifest parsing.
type ManifestSettings struct {
	StrictLabels bool // reject labels other than "fake" and "real"
}

// ModelSettings selects the backbone and where it runs.
type ModelSettings struct {
	Backbone    string // pooling, tflite, onnx or gorgonnx
	Path        string // model file for the tflite, onnx and gorgonnx backbones
	Device      string // auto, cpu, cuda or xnnpack
	Threads     int    // interpreter threads, 0 picks from the CPU topology
	LibraryPath string // onnxruntime shared library, empty uses the platform default
	InputName   string // onnx input tensor name, empty uses the first input
	OutputName  string // onnx output tensor name, empty uses the first output
}

// TrainSettings controls the training loop.
type TrainSettings struct {
	BatchSize    int
	Epochs       int
	LearningRate float64
	Seed         uint64
	ValFraction  float64
	SnapshotBest bool // keep a deep copy of the best head instead of a live reference
}

// PredictSettings controls inference output.
type PredictSettings struct {
	Softmax bool // normalise logits to probabilities before writing
}

// TelemetrySettings controls optional error reporting and metrics export.
type TelemetrySettings struct {
	SentryDSN   string // empty disables error reporting
	MetricsFile string // prometheus text file written after the run, empty disables
}

// SQLiteSettings configures the sqlite run journal.
type SQLiteSettings struct {
	Path string
}

// MySQLSettings configures the mysql run journal.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatastoreSettings controls the optional run journal.
type DatastoreSettings struct {
	Enabled bool
	Type    string // sqlite or mysql
	SQLite  SQLiteSettings
	MySQL   MySQLSettings
}

// Settings contains all configuration options for detect-fakevoice.
type Settings struct {
	Debug bool

	Logging   logger.LoggingConfig
	Paths     PathSettings
	Audio     AudioSettings
	Features  FeatureSettings
	Dataset   DatasetSettings
	Manifest  ManifestSettings
	Model     ModelSettings
	Train     TrainSettings
	Predict   PredictSettings
	Telemetry TelemetrySettings
	Datastore DatastoreSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file, environment variables and bound flags
// from the global viper instance and validates the result.
func Load(configFile string) (*Settings, error) {
	settings, err := LoadFrom(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// LoadFrom is Load against an explicit viper instance.
func LoadFrom(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("config").
			Category(errors.CategoryValidation).
			Build()
	}

	return settings, nil
}

// initViper registers defaults and reads the configuration file if there is one.
// A missing config file is not an error; defaults and environment still apply.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType(ConfigType)
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("config_file", configFile).
			Build()
	}

	GetLogger().Debug("config file loaded", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("config").
				Category(errors.CategoryFileIO).
				FileContext(dir, 0).
				Build()
		}
	}

	// write to a temporary file first so a crash never leaves a truncated config
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(err).
			Component("config").
			Category(errors.CategoryFileIO).
			FileContext(configPath, int64(len(yamlData))).
			Build()
	}

	return nil
}
