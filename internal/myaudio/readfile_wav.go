package myaudio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavBufferFrames is the number of frames read per PCMBuffer call.
const wavBufferFrames = 32768

// WAVE format tags from the fmt chunk.
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE // sub-format is not exposed by the decoder; read as PCM
)

// wavSampleConverter maps a decoded sample to [-1, 1] for the fmt chunk's
// format tag and bit depth. go-audio hands 32-bit samples over as the raw
// little-endian word, so IEEE floats are recovered from the bit pattern.
func wavSampleConverter(format uint16, bitDepth int) (func(int) float32, error) {
	switch format {
	case wavFormatPCM, wavFormatExtensible:
		divisor, err := getAudioDivisor(bitDepth)
		if err != nil {
			return nil, err
		}
		return func(sample int) float32 { return float32(sample) / divisor }, nil
	case wavFormatIEEEFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("unsupported IEEE float WAV bit depth: %d", bitDepth)
		}
		return func(sample int) float32 {
			return math.Float32frombits(uint32(int32(sample))) //nolint:gosec // reinterpreting the raw word
		}, nil
	default:
		return nil, fmt.Errorf("unsupported WAV encoding 0x%04x", format)
	}
}

func readWAV(file *os.File) (*Clip, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}

	convert, err := wavSampleConverter(decoder.WavAudioFormat, bitDepth)
	if err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, wavBufferFrames*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	var interleaved []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			interleaved = append(interleaved, convert(sample))
		}
	}

	return &Clip{
		AudioInfo: AudioInfo{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: channels,
			BitDepth:    bitDepth,
		},
		Samples: downmix(interleaved, channels),
	}, nil
}
