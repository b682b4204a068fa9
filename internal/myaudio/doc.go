// Package myaudio decodes audio clips into mono float32 samples and resamples
// them to the feature extraction rate.
//
// Supported containers are chosen by file extension:
//
//	.wav         go-audio/wav, 16/24/32-bit PCM
//	.flac        tphakala/flac
//	.mp3         hajimehoshi/go-mp3
//	.ogg, .oga   jfreymuth/oggvorbis
//
// Multi-channel audio is averaged to mono. Samples are scaled to [-1, 1].
package myaudio
