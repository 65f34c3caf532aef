// ABOUTME: Round-robin ring of device buffers
// ABOUTME: Counts buffers handed to the voice so a queued buffer is never refilled
package stream

import "github.com/harperreed/emustream/pkg/audio/output"

// ring hands out the voice's buffers in submission order. The voice plays
// buffers in the order they were queued, so the slot after the last queued
// one is always the oldest and is free whenever fewer than all are queued.
type ring struct {
	ids    []output.BufferID
	next   int
	queued int // queued on the voice, processed ones included
}

func newRing(ids []output.BufferID) *ring {
	r := &ring{ids: make([]output.BufferID, len(ids))}
	copy(r.ids, ids)
	return r
}

// Size returns the number of buffers
func (r *ring) Size() int { return len(r.ids) }

// Full reports whether every buffer is queued and none has finished
func (r *ring) Full(processed int) bool {
	return r.queued == len(r.ids) && processed == 0
}

// Reclaim returns n unqueued buffers to the free pool
func (r *ring) Reclaim(n int) {
	r.queued -= n
	if r.queued < 0 {
		r.queued = 0
	}
}

// Free returns the number of buffers available for submission
func (r *ring) Free() int { return len(r.ids) - r.queued }

// Next returns the buffer at the cursor. Only valid when Free() > 0.
func (r *ring) Next() output.BufferID { return r.ids[r.next] }

// Advance marks the cursor buffer queued and moves to the next slot
func (r *ring) Advance() {
	r.queued++
	r.next = (r.next + 1) % len(r.ids)
}

// Counts splits the ring into pending, free and processed buffers given
// the voice's processed count. The three always sum to Size().
func (r *ring) Counts(processed int) (queued, free, done int) {
	if processed > r.queued {
		processed = r.queued
	}
	return r.queued - processed, r.Free(), processed
}
