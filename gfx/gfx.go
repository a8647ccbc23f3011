// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the GPU vocabulary and the driver contract that
// rendering backends must implement. Handles are opaque and owned by
// the driver that issued them, a zero handle is always null.
package gfx

import "errors"

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Handle types issued by a Driver.
type (
	Instance       uint64
	Surface        uint64
	DebugMessenger uint64
	PhysicalDevice uint64
	Device         uint64
	Queue          uint64
	Swapchain      uint64
	Image          uint64
	ImageView      uint64
	ShaderModule   uint64
	PipelineLayout uint64
	Pipeline       uint64
	CommandPool    uint64
	CommandBuffer  uint64
	Semaphore      uint64
	Fence          uint64
)

// Errors reported by drivers for conditions the caller may want to act upon.
var (
	// ErrOutOfDate is returned when the surface changed and the swapchain
	// can no longer be presented to.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrTimeout is returned when a bounded wait has expired.
	ErrTimeout = errors.New("wait timed out")

	// ErrDeviceLost is returned when the logical device is no longer usable.
	ErrDeviceLost = errors.New("device lost")

	// ErrSurfaceLost is returned when the window surface is gone.
	ErrSurfaceLost = errors.New("surface lost")
)

// Common extension and layer names.
const (
	SwapchainExtension   = "VK_KHR_swapchain"
	DebugReportExtension = "VK_EXT_debug_report"
	ValidationLayer      = "VK_LAYER_KHRONOS_validation"
)

// WaitForever is the timeout value meaning an unbounded wait.
const WaitForever = ^uint64(0)
