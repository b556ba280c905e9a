// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"log/slog"
	"slices"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/visi"
	"github.com/gogpu/visi/texel"
)

// Default table capacities.
const (
	DefaultBufferCapacity   = 1 << 16
	DefaultImageCapacity    = 1 << 14
	DefaultMutImageCapacity = 1 << 10
	DefaultSamplerCapacity  = 1 << 8
)

type config struct {
	capacity    [tableCount]int
	budgetBytes uint64
	checks      bool
	logger      *slog.Logger
}

// Option configures NewDescriptors.
type Option func(*config)

// WithBufferCapacity sets the number of buffer slots.
func WithBufferCapacity(n int) Option {
	return func(c *config) { c.capacity[tableBuffer] = n }
}

// WithImageCapacity sets the number of sampled image slots.
func WithImageCapacity(n int) Option {
	return func(c *config) { c.capacity[tableImage] = n }
}

// WithMutImageCapacity sets the number of storage image slots.
func WithMutImageCapacity(n int) Option {
	return func(c *config) { c.capacity[tableMutImage] = n }
}

// WithSamplerCapacity sets the number of sampler slots.
func WithSamplerCapacity(n int) Option {
	return func(c *config) { c.capacity[tableSampler] = n }
}

// WithMemoryBudget limits the total size of resource contents in bytes.
func WithMemoryBudget(bytes uint64) Option {
	return func(c *config) { c.budgetBytes = bytes }
}

// WithChecks enables or disables validation in the checked Access
// functions. Checks are on by default.
func WithChecks(enabled bool) Option {
	return func(c *config) { c.checks = enabled }
}

// WithLogger sets the logger for table diagnostics. By default the
// logger configured with visi.SetLogger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Descriptors owns the bindless descriptor tables: one table per resource
// kind, the memory budget, and the epoch bookkeeping that gates slot reuse.
//
// Descriptors is safe for concurrent use. Access never takes a lock.
type Descriptors struct {
	tables [tableCount]*table
	budget *memoryBudget
	epochs epochs
	checks bool
	log    *slog.Logger
}

// NewDescriptors creates empty descriptor tables.
func NewDescriptors(opts ...Option) *Descriptors {
	cfg := config{
		capacity: [tableCount]int{
			tableBuffer:   DefaultBufferCapacity,
			tableImage:    DefaultImageCapacity,
			tableMutImage: DefaultMutImageCapacity,
			tableSampler:  DefaultSamplerCapacity,
		},
		budgetBytes: DefaultMemoryBudgetMB * 1024 * 1024,
		checks:      true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = visi.ComponentLogger("bindless")
	}

	d := &Descriptors{
		budget: newMemoryBudget(cfg.budgetBytes),
		checks: cfg.checks,
		log:    cfg.logger,
	}
	for k := range tableCount {
		d.tables[k] = newTable(k, max(cfg.capacity[k], 1))
	}
	return d
}

// alloc accounts for and publishes value, returning its slot and holder token.
func (d *Descriptors) alloc(kind tableKind, value any, bytes uint64, children []child) (uint32, *entry, *RC, error) {
	d.Reclaim()
	if err := d.budget.reserve(bytes); err != nil {
		d.dropChildren(children)
		return 0, nil, nil, err
	}

	e := &entry{value: value, bytes: bytes, children: children}
	e.refs.Store(1)
	idx, err := d.tables[kind].alloc(e)
	if err != nil {
		d.budget.release(bytes, 1)
		d.dropChildren(children)
		return 0, nil, nil, err
	}
	d.log.Debug("allocated", "table", kind.String(), "index", idx, "version", e.version, "bytes", bytes)
	return idx, e, &RC{d: d, kind: kind, idx: idx, e: e}, nil
}

// decref drops one count of e and retires its slot at zero.
func (d *Descriptors) decref(kind tableKind, idx uint32, e *entry) {
	if e.refs.Add(-1) != 0 {
		return
	}
	e.freed.Store(true)
	for _, c := range e.children {
		d.decref(c.kind, c.idx, c.e)
	}
	tag := d.epochs.current()
	d.tables[kind].retire(idx, tag)
	d.log.Debug("retired", "table", kind.String(), "index", idx, "epoch", tag)
}

// Reclaim makes retired slots whose epoch has completed reusable and
// returns how many were reclaimed. Allocation and Submission.Complete call
// it; calling it directly is only needed to release memory early.
func (d *Descriptors) Reclaim() int {
	completed := d.epochs.completed.Load()
	total := 0
	for _, t := range d.tables {
		n, bytes := t.reclaim(completed)
		if n > 0 {
			d.budget.release(bytes, n)
			total += n
		}
	}
	return total
}

// CurrentEpoch returns the epoch of the most recent recording.
func (d *Descriptors) CurrentEpoch() uint64 { return d.epochs.current() }

// CompletedEpoch returns the highest epoch known to have completed along
// with all earlier ones.
func (d *Descriptors) CompletedEpoch() uint64 { return d.epochs.completed.Load() }

// Stats reports table occupancy and memory use.
type Stats struct {
	Buffers        TableStats
	Images         TableStats
	MutImages      TableStats
	Samplers       TableStats
	Memory         MemoryStats
	CurrentEpoch   uint64
	CompletedEpoch uint64
}

// Stats returns a snapshot of the descriptor tables.
func (d *Descriptors) Stats() Stats {
	return Stats{
		Buffers:        d.tables[tableBuffer].stats(),
		Images:         d.tables[tableImage].stats(),
		MutImages:      d.tables[tableMutImage].stats(),
		Samplers:       d.tables[tableSampler].stats(),
		Memory:         d.budget.stats(),
		CurrentEpoch:   d.CurrentEpoch(),
		CompletedEpoch: d.CompletedEpoch(),
	}
}

// AllocBuffer uploads a copy of data as an immutable buffer. If T embeds
// strong descriptors (see StrongHolder), they are kept alive until the new
// buffer is released.
func AllocBuffer[T any](d *Descriptors, data []T) (Desc[Owned, Buffer[T]], error) {
	children, err := collectStrong(d, data)
	if err != nil {
		return Desc[Owned, Buffer[T]]{}, err
	}
	var zero T
	bytes := uint64(len(data)) * uint64(unsafe.Sizeof(zero))
	idx, e, rc, err := d.alloc(tableBuffer, slices.Clone(data), bytes, children)
	if err != nil {
		return Desc[Owned, Buffer[T]]{}, err
	}
	return Desc[Owned, Buffer[T]]{idx: idx, ver: e.version, rc: rc}, nil
}

// AllocStruct uploads a single value as a one-element buffer.
func AllocStruct[T any](d *Descriptors, v T) (Desc[Owned, Buffer[T]], error) {
	return AllocBuffer(d, []T{v})
}

// AllocImage uploads img as a sampled image with a full mip chain.
func AllocImage(d *Descriptors, img *texel.Image) (Desc[Owned, Image], error) {
	chain := texel.GenerateMipmaps(img)
	if chain == nil {
		return Desc[Owned, Image]{}, texel.ErrInvalidDimensions
	}
	idx, e, rc, err := d.alloc(tableImage, chain, chain.ByteSize(), nil)
	if err != nil {
		return Desc[Owned, Image]{}, err
	}
	return Desc[Owned, Image]{idx: idx, ver: e.version, rc: rc}, nil
}

// AllocMutImage creates a storage image of the given size and format.
func AllocMutImage(d *Descriptors, width, height int, format gputypes.TextureFormat) (Desc[Owned, MutImage], error) {
	s, err := texel.NewStorage(width, height, format)
	if err != nil {
		return Desc[Owned, MutImage]{}, err
	}
	idx, e, rc, err := d.alloc(tableMutImage, s, s.ByteSize(), nil)
	if err != nil {
		return Desc[Owned, MutImage]{}, err
	}
	return Desc[Owned, MutImage]{idx: idx, ver: e.version, rc: rc}, nil
}

// AllocSampler registers sampler state.
func AllocSampler(d *Descriptors, s texel.Sampler) (Desc[Owned, Sampler], error) {
	idx, e, rc, err := d.alloc(tableSampler, s, 0, nil)
	if err != nil {
		return Desc[Owned, Sampler]{}, err
	}
	return Desc[Owned, Sampler]{idx: idx, ver: e.version, rc: rc}, nil
}
