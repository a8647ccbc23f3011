// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "unsafe"

// Window is the part of a host window the renderer needs.
// An *sdl.Window satisfies it.
type Window interface {

	// VulkanGetInstanceExtensions returns the instance extensions
	// the window system requires for presentation.
	VulkanGetInstanceExtensions() []string

	// VulkanCreateSurface creates a presentable surface for the
	// backend's native instance and returns the native surface.
	VulkanCreateSurface(instance interface{}) (unsafe.Pointer, error)
}

// Driver is a GPU backend. All calls are made from a single thread.
// Enumeration results are returned in the order the driver reports them.
type Driver interface {
	InstanceExtensions() ([]string, error)
	InstanceLayers() ([]string, error)
	CreateInstance(info InstanceCreateInfo) (Instance, error)
	DestroyInstance(Instance)

	// CreateDebugMessenger installs a diagnostics callback on the instance.
	CreateDebugMessenger(Instance) (DebugMessenger, error)
	DestroyDebugMessenger(Instance, DebugMessenger)

	CreateSurface(Instance, Window) (Surface, error)
	DestroySurface(Instance, Surface)

	PhysicalDevices(Instance) ([]PhysicalDevice, error)
	DeviceProperties(PhysicalDevice) DeviceProperties
	QueueFamilies(PhysicalDevice) []QueueFamily
	SurfaceSupport(pd PhysicalDevice, family uint32, s Surface) (bool, error)
	DeviceExtensions(PhysicalDevice) ([]string, error)
	DeviceLayers(PhysicalDevice) ([]string, error)
	SurfaceFormats(PhysicalDevice, Surface) ([]SurfaceFormat, error)
	PresentModes(PhysicalDevice, Surface) ([]PresentMode, error)
	SurfaceCapabilities(PhysicalDevice, Surface) (SurfaceCapabilities, error)

	CreateDevice(PhysicalDevice, DeviceCreateInfo) (Device, error)
	DeviceQueue(dev Device, family uint32) Queue
	DeviceWaitIdle(Device) error
	DestroyDevice(Device)

	CreateSwapchain(Device, SwapchainCreateInfo) (Swapchain, error)
	SwapchainImages(Device, Swapchain) ([]Image, error)
	DestroySwapchain(Device, Swapchain)

	CreateImageView(dev Device, image Image, format Format) (ImageView, error)
	DestroyImageView(Device, ImageView)

	CreateShaderModule(dev Device, code []uint32) (ShaderModule, error)
	DestroyShaderModule(Device, ShaderModule)

	CreatePipelineLayout(Device) (PipelineLayout, error)
	DestroyPipelineLayout(Device, PipelineLayout)
	CreateGraphicsPipeline(Device, GraphicsPipelineCreateInfo) (Pipeline, error)
	DestroyPipeline(Device, Pipeline)

	CreateCommandPool(dev Device, family uint32) (CommandPool, error)
	ResetCommandPool(Device, CommandPool) error
	AllocateCommandBuffer(Device, CommandPool) (CommandBuffer, error)
	DestroyCommandPool(Device, CommandPool)

	CreateSemaphore(Device) (Semaphore, error)
	DestroySemaphore(Device, Semaphore)
	CreateFence(dev Device, signaled bool) (Fence, error)
	WaitForFence(dev Device, f Fence, timeout uint64) error
	ResetFence(Device, Fence) error
	DestroyFence(Device, Fence)

	// AcquireNextImage returns the index of the next presentable image,
	// signaling the semaphore once it is ready for rendering.
	AcquireNextImage(dev Device, sc Swapchain, timeout uint64, signal Semaphore) (uint32, error)

	BeginCommandBuffer(CommandBuffer) error
	CmdImageBarrier(CommandBuffer, ImageBarrier)
	CmdBeginRendering(CommandBuffer, RenderingInfo)
	CmdBindPipeline(CommandBuffer, Pipeline)
	CmdDraw(cb CommandBuffer, vertices, instances, firstVertex, firstInstance uint32)
	CmdEndRendering(CommandBuffer)
	EndCommandBuffer(CommandBuffer) error

	QueueSubmit(Queue, SubmitInfo) error
	QueuePresent(Queue, PresentInfo) error
}
