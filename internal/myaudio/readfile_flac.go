package myaudio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tphakala/flac"
)

func readFLAC(file *os.File) (*Clip, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", decoder.NChannels)
	}

	bytesPerSample := decoder.BitsPerSample / 8
	interleaved := make([]float32, 0, int(decoder.TotalSamples)*decoder.NChannels)

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				// sign-extend the 24-bit little-endian value
				sample = int32(uint32(frame[i])|uint32(frame[i+1])<<8|uint32(frame[i+2])<<16) << 8 >> 8
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			interleaved = append(interleaved, float32(sample)/divisor)
		}
	}

	return &Clip{
		AudioInfo: AudioInfo{
			SampleRate:  decoder.SampleRate,
			NumChannels: decoder.NChannels,
			BitDepth:    decoder.BitsPerSample,
		},
		Samples: downmix(interleaved, decoder.NChannels),
	}, nil
}
