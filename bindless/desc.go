// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"fmt"
	"sync/atomic"
)

// Ownership is the class of a descriptor reference. It decides who keeps the
// table slot alive and for how long the reference may be dereferenced.
type Ownership interface {
	Owned | Shared | Strong | Transient
	class() string
}

// Owned marks the sole owner returned by an allocation. Release it, or turn
// it into a Shared reference with Share.
type Owned struct{}

// Shared marks a reference counted CPU-side holder. Every Shared value must
// be released exactly once; Clone hands out another holder.
type Shared struct{}

// Strong marks a reference that is embedded in GPU-visible data. It stays
// valid while a buffer holding it is alive, independent of CPU holders.
type Strong struct{}

// Transient marks a reference that is valid only until the Recording it
// was created for has completed on the device.
type Transient struct{}

func (Owned) class() string     { return "owned" }
func (Shared) class() string    { return "shared" }
func (Strong) class() string    { return "strong" }
func (Transient) class() string { return "transient" }

// holding is satisfied by the classes that own a reference count.
type holding interface {
	Owned | Shared
	class() string
}

// persistent is satisfied by the classes a Transient may be derived from.
type persistent interface {
	Owned | Shared | Strong
	class() string
}

// Desc is a reference into the descriptor table of kind K with
// ownership class R. The zero Desc refers to nothing.
type Desc[R Ownership, K Kind] struct {
	idx   uint32
	ver   uint32
	epoch uint64 // Transient only
	rc    *RC    // Owned and Shared only
}

// Convenience names for the four ownership classes.
type (
	OwnedDesc[K Kind]     = Desc[Owned, K]
	SharedDesc[K Kind]    = Desc[Shared, K]
	StrongDesc[K Kind]    = Desc[Strong, K]
	TransientDesc[K Kind] = Desc[Transient, K]
)

// Index returns the table slot the descriptor refers to.
func (d Desc[R, K]) Index() uint32 { return d.idx }

// Version returns the slot generation the descriptor was created for.
func (d Desc[R, K]) Version() uint32 { return d.ver }

// IsZero reports whether d is the zero descriptor.
func (d Desc[R, K]) IsZero() bool { return d.ver == 0 }

func (d Desc[R, K]) String() string {
	var r R
	var k K
	if d.IsZero() {
		return fmt.Sprintf("Desc[%s, %s](nil)", r.class(), k.table())
	}
	if d.epoch != 0 {
		return fmt.Sprintf("Desc[%s, %s](%d v%d @%d)", r.class(), k.table(), d.idx, d.ver, d.epoch)
	}
	return fmt.Sprintf("Desc[%s, %s](%d v%d)", r.class(), k.table(), d.idx, d.ver)
}

func (d Desc[R, K]) ref() ref {
	var k K
	return ref{kind: k.table(), idx: d.idx, ver: d.ver, epoch: d.epoch}
}

func (d Desc[R, K]) strongRef() ref { return d.ref() }

// ref is the untyped identity of a descriptor.
type ref struct {
	kind  tableKind
	idx   uint32
	ver   uint32
	epoch uint64
}

// RC is the per-holder token of an Owned or Shared descriptor. The slot's
// count lives in the table; the token only guards against a holder
// releasing twice.
type RC struct {
	d        *Descriptors
	kind     tableKind
	idx      uint32
	e        *entry
	released atomic.Bool
}

func (rc *RC) clone() *RC {
	if rc.released.Load() {
		panic(&AccessError{Kind: rc.kind.String(), Index: rc.idx, Version: rc.e.version, Reason: "clone of released reference"})
	}
	rc.e.refs.Add(1)
	return &RC{d: rc.d, kind: rc.kind, idx: rc.idx, e: rc.e}
}

func (rc *RC) release() {
	if rc == nil || !rc.released.CompareAndSwap(false, true) {
		return
	}
	rc.d.decref(rc.kind, rc.idx, rc.e)
}

// Share converts sole ownership into the first reference counted holder.
// The Owned value must not be used afterwards.
func Share[K Kind](o Desc[Owned, K]) Desc[Shared, K] {
	return Desc[Shared, K]{idx: o.idx, ver: o.ver, rc: o.rc}
}

// Clone returns another holder of the same slot.
func Clone[K Kind](s Desc[Shared, K]) Desc[Shared, K] {
	if s.rc == nil {
		return s
	}
	return Desc[Shared, K]{idx: s.idx, ver: s.ver, rc: s.rc.clone()}
}

// Release drops the holder's count. When the last holder is gone, the slot
// is retired and recycled once every recording issued so far has completed.
// Releasing the same holder again is a no-op.
func Release[R holding, K Kind](r Desc[R, K]) {
	r.rc.release()
}

// ToStrong returns a reference that may be embedded in GPU-visible data.
// Uploading a buffer that embeds it keeps the slot alive for the lifetime
// of that buffer.
func ToStrong[R holding, K Kind](r Desc[R, K]) Desc[Strong, K] {
	return Desc[Strong, K]{idx: r.idx, ver: r.ver}
}

// ToTransient returns a reference valid for the unit of work recorded in rec.
func ToTransient[R persistent, K Kind](rec *Recording, r Desc[R, K]) Desc[Transient, K] {
	return Desc[Transient, K]{idx: r.idx, ver: r.ver, epoch: rec.epoch}
}
