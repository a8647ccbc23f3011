// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest provides an in-memory gfx.Driver that records every
// call it receives. Work submitted to its queue completes immediately.
package gfxtest

import (
	"fmt"
	"unsafe"

	"github.com/devblok/prism/gfx"
	"github.com/pkg/errors"
)

// Call is a single recorded driver call.
type Call struct {
	Op     string
	Handle uint64
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d)", c.Op, c.Handle)
}

// Adapter describes a fake physical device.
type Adapter struct {
	Properties    gfx.DeviceProperties
	QueueFamilies []gfx.QueueFamily

	// Present holds per family surface support, missing entries are false.
	Present      []bool
	Extensions   []string
	Layers       []string
	Formats      []gfx.SurfaceFormat
	PresentModes []gfx.PresentMode
	Capabilities gfx.SurfaceCapabilities
}

// NewAdapter returns an adapter that satisfies every requirement
// of the renderer.
func NewAdapter(name string, t gfx.DeviceType) Adapter {
	return Adapter{
		Properties: gfx.DeviceProperties{
			Name:       name,
			Type:       t,
			MemorySize: 2 << 30,
		},
		QueueFamilies: []gfx.QueueFamily{{
			Flags: gfx.QueueGraphics | gfx.QueueCompute | gfx.QueueTransfer,
			Count: 1,
		}},
		Present:    []bool{true},
		Extensions: []string{gfx.SwapchainExtension},
		Layers:     []string{gfx.ValidationLayer},
		Formats: []gfx.SurfaceFormat{
			{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
			{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeFifoRelaxed},
		Capabilities: gfx.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 8,
			CurrentExtent: gfx.Extent2D{Width: 640, Height: 480},
		},
	}
}

type bufferState int

const (
	bufferInitial bufferState = iota
	bufferRecording
	bufferExecutable
	bufferInvalid
)

// Driver is a recording gfx.Driver.
type Driver struct {
	Adapters               []Adapter
	InstanceExtensionNames []string
	InstanceLayerNames     []string

	// Captured create infos, the last one of each kind.
	InstanceInfo  gfx.InstanceCreateInfo
	DeviceInfo    gfx.DeviceCreateInfo
	SwapchainInfo gfx.SwapchainCreateInfo
	PipelineInfo  gfx.GraphicsPipelineCreateInfo
	RenderingInfo gfx.RenderingInfo

	// LastTimeout is the timeout of the last fence wait or image acquire.
	LastTimeout uint64

	calls    []Call
	next     uint64
	live     map[uint64]string
	failures map[string]error

	physical    map[gfx.PhysicalDevice]int
	fences      map[gfx.Fence]bool
	images      map[gfx.Swapchain][]gfx.Image
	acquired    map[gfx.Swapchain]uint32
	buffers     map[gfx.CommandBuffer]bufferState
	poolBuffers map[gfx.CommandPool][]gfx.CommandBuffer
}

// New creates a driver exposing the given adapters in order.
func New(adapters ...Adapter) *Driver {
	return &Driver{
		Adapters:               adapters,
		InstanceExtensionNames: []string{"VK_KHR_surface", "VK_KHR_xlib_surface", gfx.DebugReportExtension},
		InstanceLayerNames:     []string{gfx.ValidationLayer},
		live:                   make(map[uint64]string),
		failures:               make(map[string]error),
		physical:               make(map[gfx.PhysicalDevice]int),
		fences:                 make(map[gfx.Fence]bool),
		images:                 make(map[gfx.Swapchain][]gfx.Image),
		acquired:               make(map[gfx.Swapchain]uint32),
		buffers:                make(map[gfx.CommandBuffer]bufferState),
		poolBuffers:            make(map[gfx.CommandPool][]gfx.CommandBuffer),
	}
}

// FailOn makes every following call of op return err.
// A nil err clears the failure.
func (d *Driver) FailOn(op string, err error) {
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// Calls returns the recorded calls in order.
func (d *Driver) Calls() []Call {
	return append([]Call(nil), d.calls...)
}

// Ops returns the names of the recorded calls in order.
func (d *Driver) Ops() []string {
	ops := make([]string, len(d.calls))
	for i, c := range d.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was called.
func (d *Driver) Count(op string) int {
	var n int
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ClearCalls forgets the recorded calls.
func (d *Driver) ClearCalls() {
	d.calls = nil
}

// Live returns the number of objects created and not yet destroyed.
func (d *Driver) Live() int {
	return len(d.live)
}

// LiveKinds returns the kinds of the objects still alive.
func (d *Driver) LiveKinds() []string {
	var kinds []string
	for _, k := range d.live {
		kinds = append(kinds, k)
	}
	return kinds
}

// FenceSignaled reports the state of a fence.
func (d *Driver) FenceSignaled(f gfx.Fence) bool {
	return d.fences[f]
}

func (d *Driver) record(op string, h uint64) error {
	d.calls = append(d.calls, Call{Op: op, Handle: h})
	if err, ok := d.failures[op]; ok {
		return err
	}
	return nil
}

func (d *Driver) issue(kind string) uint64 {
	d.next++
	d.live[d.next] = kind
	return d.next
}

func (d *Driver) release(op string, h uint64) {
	d.calls = append(d.calls, Call{Op: op, Handle: h})
	delete(d.live, h)
}

func (d *Driver) adapter(pd gfx.PhysicalDevice) Adapter {
	return d.Adapters[d.physical[pd]]
}

// InstanceExtensions implements gfx.Driver.
func (d *Driver) InstanceExtensions() ([]string, error) {
	if err := d.record("InstanceExtensions", 0); err != nil {
		return nil, err
	}
	return d.InstanceExtensionNames, nil
}

// InstanceLayers implements gfx.Driver.
func (d *Driver) InstanceLayers() ([]string, error) {
	if err := d.record("InstanceLayers", 0); err != nil {
		return nil, err
	}
	return d.InstanceLayerNames, nil
}

// CreateInstance implements gfx.Driver.
func (d *Driver) CreateInstance(info gfx.InstanceCreateInfo) (gfx.Instance, error) {
	if err := d.record("CreateInstance", 0); err != nil {
		return 0, err
	}
	d.InstanceInfo = info
	return gfx.Instance(d.issue("instance")), nil
}

// DestroyInstance implements gfx.Driver.
func (d *Driver) DestroyInstance(i gfx.Instance) {
	d.release("DestroyInstance", uint64(i))
}

// CreateDebugMessenger implements gfx.Driver.
func (d *Driver) CreateDebugMessenger(gfx.Instance) (gfx.DebugMessenger, error) {
	if err := d.record("CreateDebugMessenger", 0); err != nil {
		return 0, err
	}
	return gfx.DebugMessenger(d.issue("debugMessenger")), nil
}

// DestroyDebugMessenger implements gfx.Driver.
func (d *Driver) DestroyDebugMessenger(_ gfx.Instance, m gfx.DebugMessenger) {
	d.release("DestroyDebugMessenger", uint64(m))
}

// CreateSurface implements gfx.Driver.
func (d *Driver) CreateSurface(i gfx.Instance, w gfx.Window) (gfx.Surface, error) {
	if err := d.record("CreateSurface", 0); err != nil {
		return 0, err
	}
	if _, err := w.VulkanCreateSurface(i); err != nil {
		return 0, err
	}
	return gfx.Surface(d.issue("surface")), nil
}

// DestroySurface implements gfx.Driver.
func (d *Driver) DestroySurface(_ gfx.Instance, s gfx.Surface) {
	d.release("DestroySurface", uint64(s))
}

// PhysicalDevices implements gfx.Driver. Handles are stable across calls.
func (d *Driver) PhysicalDevices(gfx.Instance) ([]gfx.PhysicalDevice, error) {
	if err := d.record("PhysicalDevices", 0); err != nil {
		return nil, err
	}
	devices := make([]gfx.PhysicalDevice, len(d.Adapters))
	for i := range d.Adapters {
		pd := gfx.PhysicalDevice(1000 + i)
		d.physical[pd] = i
		devices[i] = pd
	}
	return devices, nil
}

// DeviceProperties implements gfx.Driver.
func (d *Driver) DeviceProperties(pd gfx.PhysicalDevice) gfx.DeviceProperties {
	d.record("DeviceProperties", uint64(pd))
	return d.adapter(pd).Properties
}

// QueueFamilies implements gfx.Driver.
func (d *Driver) QueueFamilies(pd gfx.PhysicalDevice) []gfx.QueueFamily {
	d.record("QueueFamilies", uint64(pd))
	return d.adapter(pd).QueueFamilies
}

// SurfaceSupport implements gfx.Driver.
func (d *Driver) SurfaceSupport(pd gfx.PhysicalDevice, family uint32, _ gfx.Surface) (bool, error) {
	if err := d.record("SurfaceSupport", uint64(pd)); err != nil {
		return false, err
	}
	present := d.adapter(pd).Present
	return int(family) < len(present) && present[family], nil
}

// DeviceExtensions implements gfx.Driver.
func (d *Driver) DeviceExtensions(pd gfx.PhysicalDevice) ([]string, error) {
	if err := d.record("DeviceExtensions", uint64(pd)); err != nil {
		return nil, err
	}
	return d.adapter(pd).Extensions, nil
}

// DeviceLayers implements gfx.Driver.
func (d *Driver) DeviceLayers(pd gfx.PhysicalDevice) ([]string, error) {
	if err := d.record("DeviceLayers", uint64(pd)); err != nil {
		return nil, err
	}
	return d.adapter(pd).Layers, nil
}

// SurfaceFormats implements gfx.Driver.
func (d *Driver) SurfaceFormats(pd gfx.PhysicalDevice, _ gfx.Surface) ([]gfx.SurfaceFormat, error) {
	if err := d.record("SurfaceFormats", uint64(pd)); err != nil {
		return nil, err
	}
	return d.adapter(pd).Formats, nil
}

// PresentModes implements gfx.Driver.
func (d *Driver) PresentModes(pd gfx.PhysicalDevice, _ gfx.Surface) ([]gfx.PresentMode, error) {
	if err := d.record("PresentModes", uint64(pd)); err != nil {
		return nil, err
	}
	return d.adapter(pd).PresentModes, nil
}

// SurfaceCapabilities implements gfx.Driver.
func (d *Driver) SurfaceCapabilities(pd gfx.PhysicalDevice, _ gfx.Surface) (gfx.SurfaceCapabilities, error) {
	if err := d.record("SurfaceCapabilities", uint64(pd)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	return d.adapter(pd).Capabilities, nil
}

// CreateDevice implements gfx.Driver.
func (d *Driver) CreateDevice(pd gfx.PhysicalDevice, info gfx.DeviceCreateInfo) (gfx.Device, error) {
	if err := d.record("CreateDevice", uint64(pd)); err != nil {
		return 0, err
	}
	d.DeviceInfo = info
	return gfx.Device(d.issue("device")), nil
}

// DeviceQueue implements gfx.Driver. Queues are not tracked as live objects.
func (d *Driver) DeviceQueue(dev gfx.Device, family uint32) gfx.Queue {
	d.record("DeviceQueue", uint64(dev))
	d.next++
	return gfx.Queue(d.next)
}

// DeviceWaitIdle implements gfx.Driver.
func (d *Driver) DeviceWaitIdle(dev gfx.Device) error {
	return d.record("DeviceWaitIdle", uint64(dev))
}

// DestroyDevice implements gfx.Driver.
func (d *Driver) DestroyDevice(dev gfx.Device) {
	d.release("DestroyDevice", uint64(dev))
}

// CreateSwapchain implements gfx.Driver. The swapchain owns exactly
// MinImageCount images.
func (d *Driver) CreateSwapchain(_ gfx.Device, info gfx.SwapchainCreateInfo) (gfx.Swapchain, error) {
	if err := d.record("CreateSwapchain", 0); err != nil {
		return 0, err
	}
	d.SwapchainInfo = info
	sc := gfx.Swapchain(d.issue("swapchain"))
	images := make([]gfx.Image, info.MinImageCount)
	for i := range images {
		d.next++
		images[i] = gfx.Image(d.next)
	}
	d.images[sc] = images
	return sc, nil
}

// SwapchainImages implements gfx.Driver.
func (d *Driver) SwapchainImages(_ gfx.Device, sc gfx.Swapchain) ([]gfx.Image, error) {
	if err := d.record("SwapchainImages", uint64(sc)); err != nil {
		return nil, err
	}
	return d.images[sc], nil
}

// DestroySwapchain implements gfx.Driver.
func (d *Driver) DestroySwapchain(_ gfx.Device, sc gfx.Swapchain) {
	delete(d.images, sc)
	d.release("DestroySwapchain", uint64(sc))
}

// CreateImageView implements gfx.Driver.
func (d *Driver) CreateImageView(_ gfx.Device, image gfx.Image, _ gfx.Format) (gfx.ImageView, error) {
	if err := d.record("CreateImageView", uint64(image)); err != nil {
		return 0, err
	}
	return gfx.ImageView(d.issue("imageView")), nil
}

// DestroyImageView implements gfx.Driver.
func (d *Driver) DestroyImageView(_ gfx.Device, v gfx.ImageView) {
	d.release("DestroyImageView", uint64(v))
}

// CreateShaderModule implements gfx.Driver.
func (d *Driver) CreateShaderModule(_ gfx.Device, code []uint32) (gfx.ShaderModule, error) {
	if err := d.record("CreateShaderModule", 0); err != nil {
		return 0, err
	}
	if len(code) == 0 {
		return 0, errors.New("empty shader code")
	}
	return gfx.ShaderModule(d.issue("shaderModule")), nil
}

// DestroyShaderModule implements gfx.Driver.
func (d *Driver) DestroyShaderModule(_ gfx.Device, m gfx.ShaderModule) {
	d.release("DestroyShaderModule", uint64(m))
}

// CreatePipelineLayout implements gfx.Driver.
func (d *Driver) CreatePipelineLayout(gfx.Device) (gfx.PipelineLayout, error) {
	if err := d.record("CreatePipelineLayout", 0); err != nil {
		return 0, err
	}
	return gfx.PipelineLayout(d.issue("pipelineLayout")), nil
}

// DestroyPipelineLayout implements gfx.Driver.
func (d *Driver) DestroyPipelineLayout(_ gfx.Device, l gfx.PipelineLayout) {
	d.release("DestroyPipelineLayout", uint64(l))
}

// CreateGraphicsPipeline implements gfx.Driver.
func (d *Driver) CreateGraphicsPipeline(_ gfx.Device, info gfx.GraphicsPipelineCreateInfo) (gfx.Pipeline, error) {
	if err := d.record("CreateGraphicsPipeline", 0); err != nil {
		return 0, err
	}
	d.PipelineInfo = info
	return gfx.Pipeline(d.issue("pipeline")), nil
}

// DestroyPipeline implements gfx.Driver.
func (d *Driver) DestroyPipeline(_ gfx.Device, p gfx.Pipeline) {
	d.release("DestroyPipeline", uint64(p))
}

// CreateCommandPool implements gfx.Driver.
func (d *Driver) CreateCommandPool(_ gfx.Device, _ uint32) (gfx.CommandPool, error) {
	if err := d.record("CreateCommandPool", 0); err != nil {
		return 0, err
	}
	return gfx.CommandPool(d.issue("commandPool")), nil
}

// ResetCommandPool implements gfx.Driver. Every buffer of the pool
// returns to the initial state.
func (d *Driver) ResetCommandPool(_ gfx.Device, p gfx.CommandPool) error {
	if err := d.record("ResetCommandPool", uint64(p)); err != nil {
		return err
	}
	for _, cb := range d.poolBuffers[p] {
		d.buffers[cb] = bufferInitial
	}
	return nil
}

// AllocateCommandBuffer implements gfx.Driver. Buffers are freed with their pool.
func (d *Driver) AllocateCommandBuffer(_ gfx.Device, p gfx.CommandPool) (gfx.CommandBuffer, error) {
	if err := d.record("AllocateCommandBuffer", uint64(p)); err != nil {
		return 0, err
	}
	d.next++
	cb := gfx.CommandBuffer(d.next)
	d.buffers[cb] = bufferInitial
	d.poolBuffers[p] = append(d.poolBuffers[p], cb)
	return cb, nil
}

// DestroyCommandPool implements gfx.Driver.
func (d *Driver) DestroyCommandPool(_ gfx.Device, p gfx.CommandPool) {
	for _, cb := range d.poolBuffers[p] {
		delete(d.buffers, cb)
	}
	delete(d.poolBuffers, p)
	d.release("DestroyCommandPool", uint64(p))
}

// CreateSemaphore implements gfx.Driver.
func (d *Driver) CreateSemaphore(gfx.Device) (gfx.Semaphore, error) {
	if err := d.record("CreateSemaphore", 0); err != nil {
		return 0, err
	}
	return gfx.Semaphore(d.issue("semaphore")), nil
}

// DestroySemaphore implements gfx.Driver.
func (d *Driver) DestroySemaphore(_ gfx.Device, s gfx.Semaphore) {
	d.release("DestroySemaphore", uint64(s))
}

// CreateFence implements gfx.Driver.
func (d *Driver) CreateFence(_ gfx.Device, signaled bool) (gfx.Fence, error) {
	if err := d.record("CreateFence", 0); err != nil {
		return 0, err
	}
	f := gfx.Fence(d.issue("fence"))
	d.fences[f] = signaled
	return f, nil
}

// WaitForFence implements gfx.Driver. Nothing can signal a fence while
// the caller waits, so an unsignaled fence always times out.
func (d *Driver) WaitForFence(_ gfx.Device, f gfx.Fence, timeout uint64) error {
	d.LastTimeout = timeout
	if err := d.record("WaitForFence", uint64(f)); err != nil {
		return err
	}
	if !d.fences[f] {
		return gfx.ErrTimeout
	}
	return nil
}

// ResetFence implements gfx.Driver.
func (d *Driver) ResetFence(_ gfx.Device, f gfx.Fence) error {
	if err := d.record("ResetFence", uint64(f)); err != nil {
		return err
	}
	d.fences[f] = false
	return nil
}

// DestroyFence implements gfx.Driver.
func (d *Driver) DestroyFence(_ gfx.Device, f gfx.Fence) {
	delete(d.fences, f)
	d.release("DestroyFence", uint64(f))
}

// AcquireNextImage implements gfx.Driver. Images are handed out round robin.
func (d *Driver) AcquireNextImage(_ gfx.Device, sc gfx.Swapchain, timeout uint64, _ gfx.Semaphore) (uint32, error) {
	d.LastTimeout = timeout
	if err := d.record("AcquireNextImage", uint64(sc)); err != nil {
		return 0, err
	}
	n := uint32(len(d.images[sc]))
	if n == 0 {
		return 0, errors.New("swapchain has no images")
	}
	idx := d.acquired[sc] % n
	d.acquired[sc]++
	return idx, nil
}

// BeginCommandBuffer implements gfx.Driver. Only buffers in the initial
// state can begin recording.
func (d *Driver) BeginCommandBuffer(cb gfx.CommandBuffer) error {
	if err := d.record("BeginCommandBuffer", uint64(cb)); err != nil {
		return err
	}
	if d.buffers[cb] != bufferInitial {
		return errors.Errorf("command buffer %d is not in the initial state", cb)
	}
	d.buffers[cb] = bufferRecording
	return nil
}

// CmdImageBarrier implements gfx.Driver.
func (d *Driver) CmdImageBarrier(cb gfx.CommandBuffer, b gfx.ImageBarrier) {
	d.record(fmt.Sprintf("CmdImageBarrier(%d->%d)", b.OldLayout, b.NewLayout), uint64(cb))
}

// CmdBeginRendering implements gfx.Driver.
func (d *Driver) CmdBeginRendering(cb gfx.CommandBuffer, info gfx.RenderingInfo) {
	d.RenderingInfo = info
	d.record("CmdBeginRendering", uint64(cb))
}

// CmdBindPipeline implements gfx.Driver.
func (d *Driver) CmdBindPipeline(cb gfx.CommandBuffer, _ gfx.Pipeline) {
	d.record("CmdBindPipeline", uint64(cb))
}

// CmdDraw implements gfx.Driver.
func (d *Driver) CmdDraw(cb gfx.CommandBuffer, vertices, instances, _, _ uint32) {
	d.record(fmt.Sprintf("CmdDraw(%d,%d)", vertices, instances), uint64(cb))
}

// CmdEndRendering implements gfx.Driver.
func (d *Driver) CmdEndRendering(cb gfx.CommandBuffer) {
	d.record("CmdEndRendering", uint64(cb))
}

// EndCommandBuffer implements gfx.Driver.
func (d *Driver) EndCommandBuffer(cb gfx.CommandBuffer) error {
	if err := d.record("EndCommandBuffer", uint64(cb)); err != nil {
		return err
	}
	if d.buffers[cb] != bufferRecording {
		return errors.Errorf("command buffer %d is not recording", cb)
	}
	d.buffers[cb] = bufferExecutable
	return nil
}

// QueueSubmit implements gfx.Driver. One-time-submit buffers become
// invalid once executed, and the fence is signaled right away.
func (d *Driver) QueueSubmit(q gfx.Queue, info gfx.SubmitInfo) error {
	if err := d.record("QueueSubmit", uint64(q)); err != nil {
		return err
	}
	if d.buffers[info.CommandBuffer] != bufferExecutable {
		return errors.Errorf("command buffer %d is not executable", info.CommandBuffer)
	}
	d.buffers[info.CommandBuffer] = bufferInvalid
	if info.Fence != 0 {
		d.fences[info.Fence] = true
	}
	return nil
}

// QueuePresent implements gfx.Driver.
func (d *Driver) QueuePresent(q gfx.Queue, _ gfx.PresentInfo) error {
	return d.record("QueuePresent", uint64(q))
}

// Window is a fake host window.
type Window struct {
	Extensions []string
	Err        error
}

// VulkanGetInstanceExtensions implements gfx.Window.
func (w Window) VulkanGetInstanceExtensions() []string {
	return w.Extensions
}

// VulkanCreateSurface implements gfx.Window.
func (w Window) VulkanCreateSurface(interface{}) (unsafe.Pointer, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return nil, nil
}
