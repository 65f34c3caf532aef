// ABOUTME: Audio output package for buffer-queue playback devices
// ABOUTME: Provides Driver/Device/Voice interfaces and malgo, oto, PortAudio and null backends
// Package output provides buffer-queue playback devices.
//
// A Driver opens the default playback Device. The Device creates a Voice
// owning a fixed set of buffers. Buffers are filled with BufferData, queued
// on the voice and, once played, reported as processed until unqueued.
// A voice that runs out of queued audio stops and must be resumed with Play.
//
// Supported backends are malgo (miniaudio), oto, PortAudio (build with
// -tags portaudio) and a headless null backend.
//
// Example:
//
//	drv, err := output.NewDriver("malgo", output.Options{})
//	dev, err := drv.Open()
//	voice, err := dev.NewVoice(4)
//	err = voice.BufferData(voice.Buffers()[0], frame)
//	err = voice.Queue(voice.Buffers()[0])
//	err = voice.Play()
package output
