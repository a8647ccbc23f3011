// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "fmt"

// Enumerated values below share their numeric values with Vulkan,
// so a Vulkan backend can convert them with a plain cast.

// DeviceType categorizes a physical device.
type DeviceType uint32

// Physical device types.
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "integrated"
	case DeviceTypeDiscreteGPU:
		return "discrete"
	case DeviceTypeVirtualGPU:
		return "virtual"
	case DeviceTypeCPU:
		return "cpu"
	default:
		return "other"
	}
}

// QueueFlags is a bitmask of queue family capabilities.
type QueueFlags uint32

// Queue capability bits.
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

// Has reports whether every bit of want is set.
func (f QueueFlags) Has(want QueueFlags) bool {
	return f&want == want
}

// Format is a pixel format.
type Format uint32

// Formats the renderer knows by name.
const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8Srgb  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50
	FormatR8G8B8Srgb    Format = 29
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "UNDEFINED"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatR8G8B8A8Srgb:
		return "R8G8B8A8_SRGB"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	case FormatB8G8R8A8Srgb:
		return "B8G8R8A8_SRGB"
	case FormatR8G8B8Srgb:
		return "R8G8B8_SRGB"
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// ColorSpace is the presentation color space of a surface format.
type ColorSpace uint32

// ColorSpaceSRGBNonlinear is the standard sRGB color space.
const ColorSpaceSRGBNonlinear ColorSpace = 0

// SurfaceFormat pairs a pixel format with its color space.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

func (s SurfaceFormat) String() string {
	if s.ColorSpace == ColorSpaceSRGBNonlinear {
		return s.Format.String() + "/SRGB_NONLINEAR"
	}
	return fmt.Sprintf("%s/ColorSpace(%d)", s.Format, uint32(s.ColorSpace))
}

// PresentMode controls how images are queued for presentation.
type PresentMode uint32

// Presentation modes.
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "IMMEDIATE"
	case PresentModeMailbox:
		return "MAILBOX"
	case PresentModeFifo:
		return "FIFO"
	case PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	}
	return fmt.Sprintf("PresentMode(%d)", uint32(p))
}

// ImageLayout is the memory layout of an image.
type ImageLayout uint32

// Image layouts used during a frame.
const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

// PipelineStage is a bitmask of pipeline stages.
type PipelineStage uint32

// Pipeline stage bits.
const (
	StageTopOfPipe             PipelineStage = 0x00000001
	StageColorAttachmentOutput PipelineStage = 0x00000400
	StageBottomOfPipe          PipelineStage = 0x00002000
)

// Access is a bitmask of memory access types.
type Access uint32

// Memory access bits.
const (
	AccessNone                 Access = 0
	AccessColorAttachmentWrite Access = 0x00000100
)

// CullMode selects which triangles are discarded.
type CullMode uint32

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// FrontFace selects the winding that counts as front facing.
type FrontFace uint32

// Front face windings.
const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// ShaderStage identifies a programmable stage.
type ShaderStage uint32

// Shader stages.
const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x10
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return fmt.Sprintf("ShaderStage(%d)", uint32(s))
}

// Extent2D is a size in pixels.
type Extent2D struct {
	Width, Height uint32
}

// Empty reports whether either dimension is zero.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// ApplicationInfo identifies the application to the driver.
type ApplicationInfo struct {
	Name       string
	EngineName string
	Version    uint32
}

// InstanceCreateInfo describes a new instance.
type InstanceCreateInfo struct {
	Application ApplicationInfo
	Extensions  []string
	Layers      []string
}

// DeviceProperties are the general properties of a physical device.
type DeviceProperties struct {
	Name          string
	Type          DeviceType
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    uint32
	MemorySize    uint64
}

// QueueFamily describes a family of queues on a physical device.
type QueueFamily struct {
	Flags QueueFlags
	Count uint32
}

// SurfaceCapabilities are the limits a surface imposes on a swapchain.
type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32
	CurrentExtent    Extent2D
	CurrentTransform uint32
}

// DeviceCreateInfo describes a logical device with one queue.
type DeviceCreateInfo struct {
	QueueFamily uint32
	Extensions  []string
	Layers      []string
}

// SwapchainCreateInfo describes a swapchain.
type SwapchainCreateInfo struct {
	Surface       Surface
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
	Transform     uint32
}

// GraphicsPipelineCreateInfo describes the fixed graphics pipeline.
// Rendering is dynamic, the color attachment format is given directly.
type GraphicsPipelineCreateInfo struct {
	Layout      PipelineLayout
	Vertex      ShaderModule
	Fragment    ShaderModule
	EntryPoint  string
	Extent      Extent2D
	ColorFormat Format
	CullMode    CullMode
	FrontFace   FrontFace
}

// ImageBarrier is a layout transition of a whole color image.
type ImageBarrier struct {
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcStage  PipelineStage
	DstStage  PipelineStage
	SrcAccess Access
	DstAccess Access
}

// RenderingInfo describes a dynamic rendering pass with a single
// color attachment that is cleared on load and stored.
type RenderingInfo struct {
	View       ImageView
	Extent     Extent2D
	ClearColor [4]float32
}

// SubmitInfo describes a single command buffer submission.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          Semaphore
	WaitStage     PipelineStage
	Signal        Semaphore
	Fence         Fence
}

// PresentInfo describes the presentation of one swapchain image.
type PresentInfo struct {
	Wait       Semaphore
	Swapchain  Swapchain
	ImageIndex uint32
}
