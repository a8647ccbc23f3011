// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements gfx.Driver on top of Vulkan 1.3.
//
// Vulkan objects never leave the package. Every object is stored in a
// typed table and callers only ever see the table key, which is never
// zero. Rendering uses dynamic rendering, there are no render passes
// or framebuffers.
package vkr

import (
	"unsafe"

	"github.com/devblok/prism/gfx"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// APIVersion is the Vulkan version requested from the instance.
var APIVersion = uint32(vk.MakeVersion(1, 3, 0))

// Driver is a gfx.Driver backed by a Vulkan loader.
// It must be used from a single goroutine.
type Driver struct {
	log      logrus.FieldLogger
	procAddr unsafe.Pointer

	instances  table[vk.Instance]
	messengers table[vk.DebugReportCallback]
	surfaces   table[vk.Surface]
	physical   table[vk.PhysicalDevice]
	devices    table[vk.Device]
	queues     table[vk.Queue]
	swapchains table[vk.Swapchain]
	images     table[vk.Image]
	views      table[vk.ImageView]
	shaders    table[vk.ShaderModule]
	layouts    table[vk.PipelineLayout]
	pipelines  table[vk.Pipeline]
	pools      table[vk.CommandPool]
	buffers    table[vk.CommandBuffer]
	semaphores table[vk.Semaphore]
	fences     table[vk.Fence]

	// objects owned by other objects, released with their owner
	swapchainImages map[gfx.Swapchain][]gfx.Image
	poolBuffers     map[gfx.CommandPool][]gfx.CommandBuffer

	physicalInstance map[gfx.PhysicalDevice]gfx.Instance
	rendering        map[gfx.Device]renderingCommands
	bufferDevice     map[gfx.CommandBuffer]gfx.Device
}

var _ gfx.Driver = (*Driver)(nil)

// New loads the Vulkan entry points. procAddr is the loader's
// vkGetInstanceProcAddr as handed out by the window system, when nil
// the system loader is opened.
func New(procAddr unsafe.Pointer, log logrus.FieldLogger) (*Driver, error) {
	if procAddr == nil {
		if procAddr = systemProcAddr(); procAddr == nil {
			return nil, errors.New("vulkan loader not found")
		}
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	return &Driver{
		log:              log,
		procAddr:         procAddr,
		swapchainImages:  make(map[gfx.Swapchain][]gfx.Image),
		poolBuffers:      make(map[gfx.CommandPool][]gfx.CommandBuffer),
		physicalInstance: make(map[gfx.PhysicalDevice]gfx.Instance),
		rendering:        make(map[gfx.Device]renderingCommands),
		bufferDevice:     make(map[gfx.CommandBuffer]gfx.Device),
	}, nil
}

// resultError converts a Vulkan result into an error. Conditions the
// renderer reacts to map onto the gfx sentinel errors.
func resultError(op string, res vk.Result) error {
	switch res {
	case vk.Success, vk.Incomplete, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return errors.Wrap(gfx.ErrOutOfDate, op)
	case vk.Timeout, vk.NotReady:
		return errors.Wrap(gfx.ErrTimeout, op)
	case vk.ErrorDeviceLost:
		return errors.Wrap(gfx.ErrDeviceLost, op)
	case vk.ErrorSurfaceLost:
		return errors.Wrap(gfx.ErrSurfaceLost, op)
	}
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, op)
	}
	return errors.Errorf("%s: result %d", op, int32(res))
}

// safeString makes a Go string safe to hand to C by NUL terminating it.
func safeString(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
