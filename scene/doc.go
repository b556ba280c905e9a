// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package scene defines the GPU-resident scene graph read by the
// visibility and shading passes, and the CPU-side helpers that build it.
//
// A Scene refers to a buffer of Instances; each Instance refers to a Model,
// and each Model to its triangle, vertex and material buffers. All of these
// references are strong descriptors, so uploading the Scene keeps the whole
// graph alive for as long as the Scene buffer exists.
//
// Scenes are built once per frame:
//
//	acc := scene.NewAccumulator()
//	acc.Push(cube, scene.InstanceInfo{WorldFromLocal: scene.TranslateAffine(0, 0, -5)})
//	frame, err := acc.Finish(d, camera)
//	...
//	frame.Release()
package scene
