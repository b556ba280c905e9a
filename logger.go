// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package visi

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Attribute keys shared by every visi log record.
const (
	// KeyComponent names the pass or subsystem that wrote the record:
	// "bindless", "raster", "shade", "render" or "gpu".
	KeyComponent = "component"

	// KeyExtent holds an image or viewport size formatted as WxH.
	KeyExtent = "extent"

	// KeyDispatch groups the grid and workgroup count of a compute dispatch.
	KeyDispatch = "dispatch"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

// SetLogger configures the logger for visi and all its sub-packages.
// By default visi produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default. Loggers already captured by a Descriptors table, Rasterizer
// or Renderer keep the logger that was current when they were created.
//
// Log levels used by visi:
//   - [slog.LevelDebug]: descriptor table recycling, pass statistics, dispatch sizes
//   - [slog.LevelInfo]: lifecycle events (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (GPU fallback to CPU)
//
// Example:
//
//	visi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)

	if a := Accelerator(); a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the current logger. Sub-packages call it to share the
// configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// ComponentLogger returns the current logger with KeyComponent set to name.
func ComponentLogger(name string) *slog.Logger {
	return Logger().With(KeyComponent, name)
}

// ExtentAttr records a width x height size under KeyExtent.
func ExtentAttr(width, height int) slog.Attr {
	return slog.String(KeyExtent, fmt.Sprintf("%dx%d", width, height))
}

// DispatchAttr records a compute grid under KeyDispatch together with
// the number of workgroups it launches.
func DispatchAttr(grid [3]uint32) slog.Attr {
	return slog.Group(KeyDispatch,
		slog.String("grid", fmt.Sprintf("%dx%dx%d", grid[0], grid[1], grid[2])),
		slog.Uint64("workgroups", uint64(grid[0])*uint64(grid[1])*uint64(grid[2])),
	)
}

// loggerSetter is implemented by accelerators that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(a ShadeAccelerator, l *slog.Logger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l.With(KeyComponent, "gpu"))
	}
}
