// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// setDefaultConfig registers the default value of every configuration key.
// Unmarshal and AutomaticEnv only see keys that are registered here.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", logger.DefaultLogPath)
	v.SetDefault("logging.file.level", logger.DefaultLogLevel)

	v.SetDefault("paths.root", "./data")
	v.SetDefault("paths.train", "train.csv")
	v.SetDefault("paths.test", "test.csv")
	v.SetDefault("paths.template", "sample_submission.csv")
	v.SetDefault("paths.output", "submission.csv")

	v.SetDefault("audio.samplerate", 32000)
	v.SetDefault("audio.resampler", ResamplerCubic)

	v.SetDefault("features.nmels", 128)
	v.SetDefault("features.nfft", 2048)
	v.SetDefault("features.hoplength", 512)
	v.SetDefault("features.workers", 0)
	v.SetDefault("features.memo", true)

	v.SetDefault("dataset.imagesize", 224)
	v.SetDefault("dataset.antialias", true)

	v.SetDefault("manifest.strictlabels", false)

	v.SetDefault("model.backbone", BackbonePooling)
	v.SetDefault("model.path", "")
	v.SetDefault("model.device", DeviceAuto)
	v.SetDefault("model.threads", 0)
	v.SetDefault("model.librarypath", "")
	v.SetDefault("model.inputname", "")
	v.SetDefault("model.outputname", "")

	v.SetDefault("train.batchsize", 32)
	v.SetDefault("train.epochs", 10)
	v.SetDefault("train.learningrate", 1e-4)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.valfraction", 0.2)
	v.SetDefault("train.snapshotbest", false)

	v.SetDefault("predict.softmax", false)

	v.SetDefault("telemetry.sentrydsn", "")
	v.SetDefault("telemetry.metricsfile", "")

	v.SetDefault("datastore.enabled", false)
	v.SetDefault("datastore.type", DatastoreSQLite)
	v.SetDefault("datastore.sqlite.path", "fakevoice.db")
	v.SetDefault("datastore.mysql.host", "localhost")
	v.SetDefault("datastore.mysql.port", "3306")
	v.SetDefault("datastore.mysql.username", "")
	v.SetDefault("datastore.mysql.password", "")
	v.SetDefault("datastore.mysql.database", "fakevoice")
}

// Defaults returns a Settings value populated only from the registered defaults.
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		GetLogger().Error("failed to unmarshal defaults", logger.Error(err))
	}
	return settings
}
