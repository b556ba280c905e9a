// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package bindless manages references into bindless descriptor tables.
//
// A [Desc] is an index into the table of one resource kind (a [Buffer] of
// T, an [Image], a [MutImage] or a [Sampler]) and carries an ownership
// class in its type:
//
//   - [Owned] is returned by allocation and is the sole owner.
//   - [Shared] is reference counted; [Clone] adds a holder and [Release]
//     drops one.
//   - [Strong] is plain data that can be embedded in an uploaded buffer.
//     The buffer keeps it alive (see [StrongHolder]).
//   - [Transient] is valid until the [Recording] it was made for
//     completes.
//
// Slots are never reused while work that might still read them is in
// flight: a slot whose count drops to zero is tagged with the latest
// recording epoch and only recycled after that epoch has completed.
//
// Lookups through the Access functions are lock-free. With checks enabled
// (the default) they validate the slot version and the transient epoch
// and panic with an [*AccessError] on a lapsed reference.
//
// A [DynBuffer] erases the element type of a buffer behind a runtime tag
// issued by [RegisterDynBufferType], so one generic shading dispatch can
// serve many material types:
//
//	var pbrType = bindless.RegisterDynBufferType[PBR]()
//
//	mat, _ := bindless.AllocStruct(d, PBR{...})
//	dyn := bindless.NewDynBuffer(pbrType, bindless.ToStrong(mat))
//
//	if dyn.CanUpcast(pbrType.Dyn()) {
//	    p := bindless.AccessStruct(d, bindless.Upcast(dyn, pbrType))
//	}
package bindless
