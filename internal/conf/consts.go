// conf/consts.go hard coded constants
package conf

const (
	NumClasses   = 2 // real vs fake, width of the classifier head and of the score matrix
	ImageChannel = 3 // spectrogram images are replicated to RGB for image backbones

	ConfigName = "config" // config file base name searched by viper
	ConfigType = "yaml"
	EnvPrefix  = "FAKEVOICE"
	AppDirName = "detect-fakevoice"

	LabelFake = "fake"
	LabelReal = "real"
)

// Backbone identifiers accepted by model.backbone.
const (
	BackbonePooling  = "pooling"
	BackboneTFLite   = "tflite"
	BackboneONNX     = "onnx"
	BackboneGorgonnx = "gorgonnx"
)

// Device identifiers accepted by model.device.
const (
	DeviceAuto    = "auto"
	DeviceCPU     = "cpu"
	DeviceCUDA    = "cuda"
	DeviceXNNPACK = "xnnpack"
)

// Resampler identifiers accepted by audio.resampler.
const (
	ResamplerCubic = "cubic"
	ResamplerBeep  = "beep"
)

// Datastore drivers accepted by datastore.type.
const (
	DatastoreSQLite = "sqlite"
	DatastoreMySQL  = "mysql"
)
