package myaudio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces signed 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

func readMP3(file *os.File) (*Clip, error) {
	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, err
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, err
	}

	frames := len(pcm) / mp3BytesPerFrame
	interleaved := make([]float32, frames*mp3Channels)
	for i := range interleaved {
		interleaved[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	return &Clip{
		AudioInfo: AudioInfo{
			SampleRate:  decoder.SampleRate(),
			NumChannels: mp3Channels,
			BitDepth:    16,
		},
		Samples: downmix(interleaved, mp3Channels),
	}, nil
}
