// ABOUTME: Real-time audio stream package
// ABOUTME: Feeds emulated-system audio through a buffer-queue voice with tempo and format negotiation
// Package stream renders audio from an emulated system onto a buffer-queue
// playback device.
//
// A Stream owns one playback goroutine while started. Each iteration it
// reclaims buffers the device finished playing, mixes a DMA period's worth
// of samples from the host, time-stretches them to follow emulation speed,
// optionally decodes them to 5.1, and queues the result. Float and surround
// output are dropped for the rest of the session when the device refuses
// them.
//
// Example:
//
//	drv, _ := output.NewDriver("malgo", output.Options{})
//	s := stream.New(stream.Config{
//		Driver:      drv,
//		Source:      mixer,
//		Timing:      mixer,
//		Latency:     2,
//		DPL2Decoder: true,
//		Volume:      100,
//	})
//	if err := s.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Stop()
package stream
