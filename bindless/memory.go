// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"fmt"
	"sync"
)

// DefaultMemoryBudgetMB is the default budget for resource contents.
const DefaultMemoryBudgetMB = 512

// MemoryStats contains resource memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is held by live and retired resources.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Allocations is the number of resources accounted for.
	Allocations int

	// Utilization is UsedBytes/TotalBytes (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d allocations]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.Allocations)
}

// memoryBudget accounts resource bytes against a fixed budget. Unlike a
// texture cache nothing can be evicted: a live slot may be referenced from
// any GPU structure, so exhaustion is reported to the caller.
type memoryBudget struct {
	mu          sync.Mutex
	budgetBytes uint64
	usedBytes   uint64
	count       int
}

func newMemoryBudget(budgetBytes uint64) *memoryBudget {
	return &memoryBudget{budgetBytes: budgetBytes}
}

func (m *memoryBudget) reserve(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > m.budgetBytes {
		return fmt.Errorf("%w: allocation of %d bytes exceeds total budget %d bytes",
			ErrMemoryBudgetExceeded, n, m.budgetBytes)
	}
	if m.usedBytes+n > m.budgetBytes {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, n, m.budgetBytes-m.usedBytes)
	}
	m.usedBytes += n
	m.count++
	return nil
}

func (m *memoryBudget) release(n uint64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usedBytes -= min(n, m.usedBytes)
	m.count -= count
}

func (m *memoryBudget) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		AvailableBytes: m.budgetBytes - m.usedBytes,
		Allocations:    m.count,
		Utilization:    utilization,
	}
}
