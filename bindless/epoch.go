// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"sync"
	"sync/atomic"
)

// epochs tracks recordings in flight. Every recording gets the next epoch;
// the completed epoch is the highest e such that all recordings up to e
// have completed, which matches in-order queue completion.
type epochs struct {
	mu        sync.Mutex
	issued    uint64
	open      map[uint64]struct{}
	completed atomic.Uint64
}

func (ep *epochs) begin() uint64 {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.open == nil {
		ep.open = make(map[uint64]struct{})
	}
	ep.issued++
	ep.open[ep.issued] = struct{}{}
	return ep.issued
}

func (ep *epochs) complete(e uint64) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	delete(ep.open, e)
	c := ep.issued
	for o := range ep.open {
		if o-1 < c {
			c = o - 1
		}
	}
	ep.completed.Store(c)
}

// current is the last issued epoch. A slot freed now must wait for it.
func (ep *epochs) current() uint64 {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.issued
}

// Recording is one unit of GPU work being recorded. Transient descriptors
// derived for it stay valid until its Submission completes.
type Recording struct {
	d         *Descriptors
	epoch     uint64
	submitted atomic.Bool
}

// Begin starts a new recording.
func (d *Descriptors) Begin() *Recording {
	return &Recording{d: d, epoch: d.epochs.begin()}
}

// Epoch returns the epoch of the recording.
func (r *Recording) Epoch() uint64 { return r.epoch }

// Descriptors returns the tables the recording belongs to.
func (r *Recording) Descriptors() *Descriptors { return r.d }

// Submit closes the recording and hands it to the device.
func (r *Recording) Submit() (*Submission, error) {
	if !r.submitted.CompareAndSwap(false, true) {
		return nil, ErrRecordingSubmitted
	}
	return &Submission{d: r.d, epoch: r.epoch}, nil
}

// Submission is a submitted recording awaiting completion.
type Submission struct {
	d     *Descriptors
	epoch uint64
	done  atomic.Bool
}

// Epoch returns the epoch of the submitted recording.
func (s *Submission) Epoch() uint64 { return s.epoch }

// Complete marks the work as finished on the device, typically after its
// fence has signaled. Transient descriptors of the recording expire and
// slots retired during it become reusable. Complete is idempotent.
func (s *Submission) Complete() {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	s.d.epochs.complete(s.epoch)
	s.d.Reclaim()
}

// Done reports whether Complete has been called.
func (s *Submission) Done() bool { return s.done.Load() }
