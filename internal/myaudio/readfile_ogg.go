package myaudio

import (
	"os"

	"github.com/jfreymuth/oggvorbis"
)

func readOGG(file *os.File) (*Clip, error) {
	interleaved, format, err := oggvorbis.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &Clip{
		AudioInfo: AudioInfo{
			SampleRate:  format.SampleRate,
			NumChannels: format.Channels,
		},
		Samples: downmix(interleaved, format.Channels),
	}, nil
}
