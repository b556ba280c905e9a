// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

// StrongRef is a descriptor that can be embedded in an uploaded buffer.
// It is implemented by Desc and DynBuffer.
type StrongRef interface {
	strongRef() ref
}

// StrongHolder is implemented, with a value receiver, by buffer element
// types that embed descriptors. AllocBuffer visits every element and keeps
// each reported descriptor alive for as long as the buffer exists, which
// is what makes a Strong reference inside GPU data safe to follow.
type StrongHolder interface {
	VisitStrong(visit func(StrongRef))
}

// tryRetain adds a count unless the entry has already dropped to zero.
func (e *entry) tryRetain() bool {
	for {
		n := e.refs.Load()
		if n <= 0 {
			return false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// collectStrong retains every descriptor embedded in data. Zero
// descriptors are skipped so optional references can be left empty.
func collectStrong[T any](d *Descriptors, data []T) ([]child, error) {
	var zero T
	if _, ok := any(zero).(StrongHolder); !ok {
		return nil, nil
	}

	var children []child
	var err error
	visit := func(r StrongRef) {
		if err != nil {
			return
		}
		rf := r.strongRef()
		if rf.ver == 0 {
			return
		}
		e := d.tables[rf.kind].load(rf.idx)
		if e == nil || e.version != rf.ver || !e.tryRetain() {
			err = &AccessError{Kind: rf.kind.String(), Index: rf.idx, Version: rf.ver, Reason: "embedded descriptor is no longer alive"}
			return
		}
		children = append(children, child{kind: rf.kind, idx: rf.idx, e: e})
	}
	for i := range data {
		any(data[i]).(StrongHolder).VisitStrong(visit)
		if err != nil {
			d.dropChildren(children)
			return nil, err
		}
	}
	return children, nil
}

func (d *Descriptors) dropChildren(children []child) {
	for _, c := range children {
		d.decref(c.kind, c.idx, c.e)
	}
}
