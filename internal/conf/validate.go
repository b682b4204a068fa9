// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct and reports every problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validatePathSettings,
		validateAudioSettings,
		validateFeatureSettings,
		validateModelSettings,
		validateTrainSettings,
		validateDatastoreSettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validatePathSettings(s *Settings) []string {
	var errs []string
	if s.Paths.Root == "" {
		errs = append(errs, "paths.root must not be empty")
	}
	if s.Paths.Train == "" || s.Paths.Test == "" || s.Paths.Template == "" || s.Paths.Output == "" {
		errs = append(errs, "paths.train, paths.test, paths.template and paths.output must be set")
	}
	return errs
}

func validateAudioSettings(s *Settings) []string {
	var errs []string
	if s.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Sprintf("audio.samplerate must be positive, got %d", s.Audio.SampleRate))
	}
	if !slices.Contains([]string{ResamplerCubic, ResamplerBeep}, s.Audio.Resampler) {
		errs = append(errs, fmt.Sprintf("audio.resampler must be %q or %q, got %q", ResamplerCubic, ResamplerBeep, s.Audio.Resampler))
	}
	return errs
}

func validateFeatureSettings(s *Settings) []string {
	var errs []string
	if s.Features.NMels <= 0 {
		errs = append(errs, fmt.Sprintf("features.nmels must be positive, got %d", s.Features.NMels))
	}
	if s.Features.NFFT <= 0 {
		errs = append(errs, fmt.Sprintf("features.nfft must be positive, got %d", s.Features.NFFT))
	}
	if s.Features.HopLength <= 0 {
		errs = append(errs, fmt.Sprintf("features.hoplength must be positive, got %d", s.Features.HopLength))
	}
	if s.Features.Workers < 0 {
		errs = append(errs, fmt.Sprintf("features.workers must not be negative, got %d", s.Features.Workers))
	}
	if s.Dataset.ImageSize <= 0 {
		errs = append(errs, fmt.Sprintf("dataset.imagesize must be positive, got %d", s.Dataset.ImageSize))
	}
	return errs
}

func validateModelSettings(s *Settings) []string {
	var errs []string
	backbones := []string{BackbonePooling, BackboneTFLite, BackboneONNX, BackboneGorgonnx}
	if !slices.Contains(backbones, s.Model.Backbone) {
		errs = append(errs, fmt.Sprintf("model.backbone must be one of %v, got %q", backbones, s.Model.Backbone))
	} else if s.Model.Backbone != BackbonePooling && s.Model.Path == "" {
		errs = append(errs, fmt.Sprintf("model.path is required for the %s backbone", s.Model.Backbone))
	}
	devices := []string{DeviceAuto, DeviceCPU, DeviceCUDA, DeviceXNNPACK}
	if !slices.Contains(devices, s.Model.Device) {
		errs = append(errs, fmt.Sprintf("model.device must be one of %v, got %q", devices, s.Model.Device))
	}
	if s.Model.Threads < 0 {
		errs = append(errs, fmt.Sprintf("model.threads must not be negative, got %d", s.Model.Threads))
	}
	return errs
}

func validateTrainSettings(s *Settings) []string {
	var errs []string
	if s.Train.BatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("train.batchsize must be positive, got %d", s.Train.BatchSize))
	}
	if s.Train.Epochs <= 0 {
		errs = append(errs, fmt.Sprintf("train.epochs must be positive, got %d", s.Train.Epochs))
	}
	if s.Train.LearningRate <= 0 {
		errs = append(errs, fmt.Sprintf("train.learningrate must be positive, got %g", s.Train.LearningRate))
	}
	if s.Train.ValFraction <= 0 || s.Train.ValFraction >= 1 {
		errs = append(errs, fmt.Sprintf("train.valfraction must be in (0, 1), got %g", s.Train.ValFraction))
	}
	return errs
}

func validateDatastoreSettings(s *Settings) []string {
	if !s.Datastore.Enabled {
		return nil
	}
	switch s.Datastore.Type {
	case DatastoreSQLite:
		if s.Datastore.SQLite.Path == "" {
			return []string{"datastore.sqlite.path must be set"}
		}
	case DatastoreMySQL:
		if s.Datastore.MySQL.Host == "" || s.Datastore.MySQL.Database == "" {
			return []string{"datastore.mysql.host and datastore.mysql.database must be set"}
		}
	default:
		return []string{fmt.Sprintf("datastore.type must be %q or %q, got %q", DatastoreSQLite, DatastoreMySQL, s.Datastore.Type)}
	}
	return nil
}
