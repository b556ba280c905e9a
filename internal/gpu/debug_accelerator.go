// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/geomid"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// debugParamsSize is the size of the Params uniform in
// debug_visibility.wgsl.
const debugParamsSize = 32

const (
	// submitTimeout bounds the wait for one dispatch.
	submitTimeout = 5 * time.Second
	pollInterval  = 100 * time.Microsecond
)

// DebugAccelerator renders the visibility debug view with a compute
// shader. It implements visi.ShadeAccelerator.
type DebugAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

var _ visi.ShadeAccelerator = (*DebugAccelerator)(nil)

func (a *DebugAccelerator) Name() string { return "visi-gpu" }

func (a *DebugAccelerator) CanAccelerate(op visi.AcceleratedOp) bool {
	return op&visi.AccelDebugVisibility != 0
}

// Init opens a GPU device. Failure is not an error: the accelerator then
// falls back to the CPU for every operation.
func (a *DebugAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		slogger().Warn("GPU init failed, using CPU fallback", "err", err)
	}
	return nil
}

// Ready reports whether a GPU device is available.
func (a *DebugAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// SetLogger implements the logger propagation of visi.SetLogger.
func (a *DebugAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (a *DebugAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

// SetDeviceProvider switches the accelerator to a GPU device shared by
// the host. The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func (a *DebugAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if !a.externalDevice && a.device != nil {
		a.device.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}

	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("switched to shared GPU device")
	return nil
}

// DebugVisibility implements visi.ShadeAccelerator. Barycentrics need the
// scene and always fall back to the CPU.
func (a *DebugAccelerator) DebugVisibility(target visi.VisibilityTarget, params visi.DebugVisibilityParams) error {
	if params.Mode == visi.DebugModeBarycentrics {
		return visi.ErrFallbackToCPU
	}
	if err := checkTarget(target); err != nil {
		return err
	}
	if target.Width == 0 || target.Height == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return visi.ErrFallbackToCPU
	}
	return a.dispatch(target, params)
}

func checkTarget(t visi.VisibilityTarget) error {
	n := t.Width * t.Height
	switch {
	case t.Width < 0 || t.Height < 0:
		return fmt.Errorf("gpu: invalid target size %dx%d", t.Width, t.Height)
	case len(t.IDs) < n:
		return fmt.Errorf("gpu: %d ids for %dx%d target", len(t.IDs), t.Width, t.Height)
	case len(t.Color) < 4*n:
		return fmt.Errorf("gpu: %d color floats for %dx%d target", len(t.Color), t.Width, t.Height)
	}
	return nil
}

// encodeParams lays out the Params uniform.
func encodeParams(w, h uint32, p visi.DebugVisibilityParams) []byte {
	b := make([]byte, debugParamsSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], w)
	le.PutUint32(b[4:], h)
	le.PutUint32(b[8:], p.Mode)
	if p.Wrap {
		le.PutUint32(b[12:], 1)
	}
	le.PutUint32(b[16:], uint32(p.RangeMin)) //nolint:gosec // bit pattern of i32
	le.PutUint32(b[20:], uint32(p.RangeMax)) //nolint:gosec // bit pattern of i32
	le.PutUint32(b[24:], math.Float32bits(p.Mix))
	return b
}

// encodeIDs serializes ids in the little-endian wire form of
// geomid.PackedGeometryId.
func encodeIDs(ids []uint32) []byte {
	b := make([]byte, len(ids)*4)
	for i, id := range ids {
		geomid.PackedGeometryId(id).PutLE(b[i*4:])
	}
	return b
}

func decodeColors(b []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

func (a *DebugAccelerator) dispatch(target visi.VisibilityTarget, params visi.DebugVisibilityParams) error {
	w, h := uint32(target.Width), uint32(target.Height) //nolint:gosec // checked non-negative
	n := int(w * h)
	idBytes := encodeIDs(target.IDs[:n])
	colorSize := uint64(n) * 16

	paramsBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "debug_params", Size: debugParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	defer a.device.DestroyBuffer(paramsBuf)

	idsBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "debug_ids", Size: uint64(len(idBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create ids buffer: %w", err)
	}
	defer a.device.DestroyBuffer(idsBuf)

	colorBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "debug_colors", Size: colorSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create color buffer: %w", err)
	}
	defer a.device.DestroyBuffer(colorBuf)

	stagingBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "debug_staging", Size: colorSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(stagingBuf)

	if err := a.queue.WriteBuffer(paramsBuf, 0, encodeParams(w, h, params)); err != nil {
		return fmt.Errorf("upload params: %w", err)
	}
	if err := a.queue.WriteBuffer(idsBuf, 0, idBytes); err != nil {
		return fmt.Errorf("upload ids: %w", err)
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "debug_bind", Layout: a.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: debugParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: idsBuf.NativeHandle(), Offset: 0, Size: uint64(len(idBytes))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: colorBuf.NativeHandle(), Offset: 0, Size: colorSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bg)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "debug_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("debug_visibility"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "debug_pass"})
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((w+7)/8, (h+7)/8, 1)
	pass.End()
	encoder.CopyBufferToBuffer(colorBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: colorSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	idx, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := a.waitSubmission(idx, submitTimeout); err != nil {
		return err
	}

	mapping, err := a.device.MapBuffer(stagingBuf, 0, colorSize)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	readback := unsafe.Slice((*byte)(mapping.Ptr), colorSize)
	decodeColors(readback, target.Color[:4*n])
	if err := a.device.UnmapBuffer(stagingBuf); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}
	slogger().Debug("debug visibility", visi.ExtentAttr(target.Width, target.Height), "mode", params.Mode)
	return nil
}

// waitSubmission polls the queue until submission idx has completed
// or timeout elapses.
func (a *DebugAccelerator) waitSubmission(idx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for a.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for GPU: submission %d not completed after %v", idx, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

func (a *DebugAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipelines(); err != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
		return fmt.Errorf("create pipelines: %w", err)
	}
	a.gpuReady = true
	slogger().Info("accelerator initialized", "adapter", selected.Info.Name)
	return nil
}

func (a *DebugAccelerator) createPipelines() error {
	shader, err := createShaderModule(a.device, "debug_visibility", debugVisibilityShaderSource)
	if err != nil {
		return fmt.Errorf("compile debug_visibility shader: %w", err)
	}
	a.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "debug_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "debug_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "debug_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: debugVisibilityEntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	a.pipeline = pipeline
	return nil
}

func (a *DebugAccelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}
