package model

import (
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/cpuspec"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// NewBackbone builds the backbone named in settings.Model.
func NewBackbone(settings *conf.Settings) (Backbone, error) {
	m := settings.Model
	log := GetLogger()

	switch m.Backbone {
	case conf.BackbonePooling:
		return NewPoolingBackbone(conf.ImageChannel), nil

	case conf.BackboneTFLite:
		spec := cpuspec.GetCPUSpec()
		threads := cpuspec.DetermineThreadCount(m.Threads)
		useXNNPACK := m.Device == conf.DeviceXNNPACK || (m.Device == conf.DeviceAuto && spec.SupportsXNNPACK())
		if m.Device == conf.DeviceCUDA {
			log.Warn("TFLite backbone has no CUDA support, running on CPU")
		}
		return NewTFLiteBackbone(m.Path, threads, useXNNPACK)

	case conf.BackboneONNX:
		return NewONNXBackbone(ONNXOptions{
			ModelPath:   m.Path,
			LibraryPath: m.LibraryPath,
			InputName:   m.InputName,
			OutputName:  m.OutputName,
			Threads:     m.Threads,
			UseCUDA:     m.Device == conf.DeviceCUDA || m.Device == conf.DeviceAuto,
		})

	case conf.BackboneGorgonnx:
		if m.Device == conf.DeviceCUDA {
			log.Warn("gorgonnx backbone has no CUDA support, running on CPU")
		}
		return NewGorgonnxBackbone(m.Path, conf.ImageChannel, settings.Dataset.ImageSize)

	default:
		return nil, errors.Newf("unknown backbone %q", m.Backbone).
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}
}

// New builds the backbone and a freshly initialised two-class head.
func New(settings *conf.Settings) (*Classifier, error) {
	log := GetLogger()
	cpuspec.LogHostInfo(log)

	backbone, err := NewBackbone(settings)
	if err != nil {
		return nil, err
	}

	clf := NewClassifier(backbone, conf.NumClasses, settings.Train.Seed)
	log.Info("classifier ready",
		logger.String("backbone", backbone.Name()),
		logger.String("device", settings.Model.Device),
		logger.Int("feature_dim", backbone.FeatureDim()),
		logger.Int("classes", conf.NumClasses))
	return clf, nil
}
