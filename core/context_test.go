// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/gfx/gfxtest"
	"github.com/devblok/prism/utility/kar"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWindow = gfxtest.Window{Extensions: []string{"VK_KHR_surface", "VK_KHR_xlib_surface"}}

var errBoom = errors.New("boom")

// teardownOrder is the order objects must be destroyed in.
var teardownOrder = []string{
	"DestroySemaphore",
	"DestroyFence",
	"DestroyPipeline",
	"DestroyPipelineLayout",
	"DestroyShaderModule",
	"DestroyCommandPool",
	"DestroyImageView",
	"DestroySwapchain",
	"DestroyDevice",
	"DestroyDebugMessenger",
	"DestroySurface",
	"DestroyInstance",
}

type shaderMap map[string][]byte

func (m shaderMap) Shader(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.Errorf("no shader %s", name)
	}
	return data, nil
}

func debugConfiguration() core.Configuration {
	cfg := core.DefaultConfiguration()
	cfg.Instance.DebugMode = true
	return cfg
}

func newTestContext(t *testing.T, cfg core.Configuration, opts ...core.Option) (*core.Context, *gfxtest.Driver) {
	t.Helper()
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	ctx, err := core.Create(d, testWindow, 640, 480, cfg, opts...)
	require.NoError(t, err)
	return ctx, d
}

func destroyOps(ops []string) []string {
	var out []string
	for _, op := range ops {
		if strings.HasPrefix(op, "Destroy") {
			out = append(out, op)
		}
	}
	return out
}

func assertTeardownOrdered(t *testing.T, ops []string) {
	t.Helper()
	rank := make(map[string]int, len(teardownOrder))
	for i, op := range teardownOrder {
		rank[op] = i
	}
	last := -1
	for _, op := range destroyOps(ops) {
		r, ok := rank[op]
		require.True(t, ok, op)
		assert.True(t, r >= last, "%s out of order in %v", op, ops)
		last = r
	}
}

func TestCreate(t *testing.T) {
	ctx, d := newTestContext(t, core.DefaultConfiguration())
	defer ctx.Destroy()

	assert.Equal(t, core.StateIdle, ctx.State())
	assert.Zero(t, ctx.Frames())

	sel := ctx.Selection()
	assert.Equal(t, "gpu", sel.Properties.Name)
	assert.Equal(t, gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSRGBNonlinear}, sel.SurfaceFormat)
	assert.Equal(t, gfx.PresentModeFifoRelaxed, sel.PresentMode)

	sc := ctx.Swapchain()
	assert.Equal(t, gfx.Extent2D{Width: 640, Height: 480}, sc.Extent)
	assert.Len(t, sc.Images, 2)
	assert.Len(t, sc.Views, 2)

	sync := ctx.Sync()
	assert.NotZero(t, sync.Acquire)
	assert.NotZero(t, sync.Present)
	assert.NotEqual(t, sync.Acquire, sync.Present)
	assert.True(t, d.FenceSignaled(sync.InFlight))

	assert.Equal(t, []string{gfx.SwapchainExtension}, d.DeviceInfo.Extensions)
	assert.Equal(t, sel.QueueFamily, d.DeviceInfo.QueueFamily)

	pi := d.PipelineInfo
	assert.Equal(t, gfx.CullFront, pi.CullMode)
	assert.Equal(t, gfx.FrontFaceCounterClockwise, pi.FrontFace)
	assert.Equal(t, "main", pi.EntryPoint)
	assert.Equal(t, gfx.FormatB8G8R8A8Srgb, pi.ColorFormat)
	assert.Equal(t, sc.Extent, pi.Extent)
	assert.NotZero(t, pi.Layout)
	assert.NotEqual(t, pi.Vertex, pi.Fragment)
}

func TestCreateOrder(t *testing.T) {
	ctx, d := newTestContext(t, debugConfiguration())
	defer ctx.Destroy()

	var creates []string
	for _, op := range d.Ops() {
		if strings.HasPrefix(op, "Create") || op == "AllocateCommandBuffer" {
			creates = append(creates, op)
		}
	}
	assert.Equal(t, []string{
		"CreateInstance",
		"CreateDebugMessenger",
		"CreateSurface",
		"CreateDevice",
		"CreateCommandPool",
		"AllocateCommandBuffer",
		"CreateSwapchain",
		"CreateImageView",
		"CreateImageView",
		"CreateShaderModule",
		"CreateShaderModule",
		"CreatePipelineLayout",
		"CreateGraphicsPipeline",
		"CreateSemaphore",
		"CreateSemaphore",
		"CreateFence",
	}, creates)
}

func TestDebugMode(t *testing.T) {
	ctx, d := newTestContext(t, debugConfiguration())
	defer ctx.Destroy()

	assert.Contains(t, d.InstanceInfo.Extensions, gfx.DebugReportExtension)
	assert.Equal(t, []string{gfx.ValidationLayer}, d.InstanceInfo.Layers)
	assert.Equal(t, []string{gfx.ValidationLayer}, d.DeviceInfo.Layers)
	assert.Equal(t, 1, d.Count("CreateDebugMessenger"))
}

func TestReleaseMode(t *testing.T) {
	ctx, d := newTestContext(t, core.DefaultConfiguration())
	defer ctx.Destroy()

	assert.Equal(t, testWindow.Extensions, d.InstanceInfo.Extensions)
	assert.Empty(t, d.InstanceInfo.Layers)
	assert.Empty(t, d.DeviceInfo.Layers)
	assert.Zero(t, d.Count("CreateDebugMessenger"))
	assert.Zero(t, d.Count("InstanceLayers"))
	assert.Equal(t, "Prism", d.InstanceInfo.Application.Name)
}

func TestDestroy(t *testing.T) {
	ctx, d := newTestContext(t, debugConfiguration())
	sync := ctx.Sync()

	d.ClearCalls()
	ctx.Destroy()

	assert.Equal(t, []string{
		"DeviceWaitIdle",
		"DestroySemaphore",
		"DestroySemaphore",
		"DestroyFence",
		"DestroyPipeline",
		"DestroyPipelineLayout",
		"DestroyShaderModule",
		"DestroyShaderModule",
		"DestroyCommandPool",
		"DestroyImageView",
		"DestroyImageView",
		"DestroySwapchain",
		"DestroyDevice",
		"DestroyDebugMessenger",
		"DestroySurface",
		"DestroyInstance",
	}, d.Ops())

	calls := d.Calls()
	assert.Equal(t, uint64(sync.Acquire), calls[1].Handle)
	assert.Equal(t, uint64(sync.Present), calls[2].Handle)
	assert.Zero(t, d.Live(), "leaked %v", d.LiveKinds())

	d.ClearCalls()
	ctx.Destroy()
	assert.Empty(t, d.Calls())
}

func TestDestroyAfterFrames(t *testing.T) {
	ctx, d := newTestContext(t, core.DefaultConfiguration())
	for i := 0; i < 5; i++ {
		require.NoError(t, ctx.Draw())
	}
	ctx.Destroy()
	assert.Zero(t, d.Live(), "leaked %v", d.LiveKinds())
}

func TestDestroyReleasesWhenWaitIdleFails(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx, d := newTestContext(t, core.DefaultConfiguration(), core.WithLogger(log))

	d.FailOn("DeviceWaitIdle", gfx.ErrDeviceLost)
	ctx.Destroy()

	assert.Zero(t, d.Live())
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "device wait idle failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestCreateRollsBack(t *testing.T) {
	isSwapchain := func(err error) bool {
		var e *core.SwapchainError
		return errors.As(err, &e)
	}
	isPipeline := func(err error) bool {
		var e *core.PipelineError
		return errors.As(err, &e)
	}
	isSync := func(err error) bool {
		var e *core.SynchronizationError
		return errors.As(err, &e)
	}
	wrapped := func(error) bool { return true }

	for _, tc := range []struct {
		op       string
		kind     func(error) bool
		waitIdle bool
	}{
		{"CreateInstance", wrapped, false},
		{"CreateDebugMessenger", wrapped, false},
		{"CreateSurface", wrapped, false},
		{"PhysicalDevices", wrapped, false},
		{"CreateDevice", wrapped, false},
		{"CreateCommandPool", isSync, true},
		{"AllocateCommandBuffer", isSync, true},
		{"CreateSwapchain", isSwapchain, true},
		{"SwapchainImages", isSwapchain, true},
		{"CreateImageView", isSwapchain, true},
		{"CreateShaderModule", isPipeline, true},
		{"CreatePipelineLayout", isPipeline, true},
		{"CreateGraphicsPipeline", isPipeline, true},
		{"CreateSemaphore", isSync, true},
		{"CreateFence", isSync, true},
	} {
		t.Run(tc.op, func(t *testing.T) {
			d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
			d.FailOn(tc.op, errBoom)

			ctx, err := core.Create(d, testWindow, 640, 480, debugConfiguration())
			assert.Nil(t, ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errBoom), err.Error())
			assert.True(t, tc.kind(err), "%T", err)

			assert.Zero(t, d.Live(), "leaked %v", d.LiveKinds())
			assert.Equal(t, tc.waitIdle, d.Count("DeviceWaitIdle") == 1)
			assertTeardownOrdered(t, d.Ops())
		})
	}
}

func TestCreateSurfaceFailure(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	window := gfxtest.Window{Extensions: testWindow.Extensions, Err: errBoom}

	_, err := core.Create(d, window, 640, 480, core.DefaultConfiguration())
	assert.True(t, errors.Is(err, errBoom))
	assert.Zero(t, d.Live())
	assert.Equal(t, []string{"DestroyInstance"}, destroyOps(d.Ops()))
}

func TestCreateMissingInstanceExtensions(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	d.InstanceExtensionNames = []string{"VK_KHR_surface"}

	cfg := core.DefaultConfiguration()
	cfg.Instance.Extensions = []string{"VK_EXT_foo", "VK_KHR_surface"}

	_, err := core.Create(d, testWindow, 640, 480, cfg)

	var capErr *core.CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "instance extensions", capErr.Kind)
	assert.Equal(t, []string{"VK_KHR_xlib_surface", "VK_EXT_foo"}, capErr.Missing)
	assert.Zero(t, d.Count("CreateInstance"))
}

func TestCreateMissingValidationLayer(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	d.InstanceLayerNames = nil

	_, err := core.Create(d, testWindow, 640, 480, debugConfiguration())

	var capErr *core.CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "instance layers", capErr.Kind)
	assert.Equal(t, []string{gfx.ValidationLayer}, capErr.Missing)
	assert.Zero(t, d.Count("CreateInstance"))

	_, err = core.Create(d, testWindow, 640, 480, core.DefaultConfiguration())
	assert.NoError(t, err)
}

func TestCreateNoSuitableDevice(t *testing.T) {
	a := gfxtest.NewAdapter("fifo only", gfx.DeviceTypeDiscreteGPU)
	a.PresentModes = []gfx.PresentMode{gfx.PresentModeFifo}
	d := gfxtest.New(a)

	_, err := core.Create(d, testWindow, 640, 480, core.DefaultConfiguration())

	var nsd *core.NoSuitableDeviceError
	require.True(t, errors.As(err, &nsd))
	assert.Len(t, nsd.Rejections, 1)
	assert.Zero(t, d.Live())
	assert.Zero(t, d.Count("DeviceWaitIdle"))
	assert.Equal(t, []string{"DestroySurface", "DestroyInstance"}, destroyOps(d.Ops()))
}

func TestCreateInvalidShader(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	shaders := shaderMap{
		core.VertexShader:   []byte("this is not SPIR-V"),
		core.FragmentShader: []byte("neither is this.."),
	}

	_, err := core.Create(d, testWindow, 640, 480, core.DefaultConfiguration(), core.WithShaders(shaders))

	var pErr *core.PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "decode", pErr.Op)
	assert.Zero(t, d.Count("CreateShaderModule"))
	assert.Zero(t, d.Live())
}

func TestCreateMissingShader(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	shaders := shaderMap{core.VertexShader: embedded(t, core.VertexShader)}

	_, err := core.Create(d, testWindow, 640, 480, core.DefaultConfiguration(), core.WithShaders(shaders))

	var pErr *core.PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "load shader", pErr.Op)
	assert.Equal(t, 1, d.Count("DestroyShaderModule"))
	assert.Zero(t, d.Live())
}

func TestCreateFromShaderArchive(t *testing.T) {
	cfg := core.DefaultConfiguration()
	cfg.Renderer.ShaderArchive = writeShaderArchive(t, core.VertexShader, core.FragmentShader)

	ctx, d := newTestContext(t, cfg)
	assert.Equal(t, 2, d.Count("CreateShaderModule"))
	require.NoError(t, ctx.Draw())
	ctx.Destroy()
}

func TestCreateMissingShaderArchive(t *testing.T) {
	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	cfg := core.DefaultConfiguration()
	cfg.Renderer.ShaderArchive = filepath.Join(t.TempDir(), "missing.kar")

	_, err := core.Create(d, testWindow, 640, 480, cfg)

	var pErr *core.PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "load shaders", pErr.Op)
	assert.Empty(t, d.Calls())
}

func TestCreateCorruptShaderArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.kar")
	data := append([]byte("KAR\x00"), 0, 0, 0, 0, 0, 0, 0, 0x10)
	require.NoError(t, ioutil.WriteFile(path, data, 0644))

	d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))
	cfg := core.DefaultConfiguration()
	cfg.Renderer.ShaderArchive = path

	_, err := core.Create(d, testWindow, 640, 480, cfg)

	var pErr *core.PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "load shaders", pErr.Op)
	assert.True(t, errors.Is(err, kar.ErrFileFormat))
	assert.Empty(t, d.Calls())
}

func TestCreateLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx, _ := newTestContext(t, core.DefaultConfiguration(), core.WithLogger(log))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "render context created", entry.Message)
	assert.Equal(t, "gpu", entry.Data["device"])
	assert.Equal(t, 2, entry.Data["images"])

	ctx.Destroy()
	assert.Equal(t, "render context destroyed", hook.LastEntry().Message)
}

func TestCreateZeroConfiguration(t *testing.T) {
	relaxed := gfxtest.NewAdapter("relaxed-only", gfx.DeviceTypeDiscreteGPU)
	relaxed.PresentModes = []gfx.PresentMode{gfx.PresentModeFifoRelaxed}

	d := gfxtest.New(relaxed)
	ctx, err := core.Create(d, testWindow, 640, 480, core.Configuration{})
	require.NoError(t, err)
	defer ctx.Destroy()

	assert.Equal(t, gfx.PresentModeFifoRelaxed, ctx.Selection().PresentMode)
	assert.Equal(t, gfx.PresentModeFifoRelaxed, d.SwapchainInfo.PresentMode)
	assert.Equal(t, "Prism", d.InstanceInfo.Application.Name)

	require.NoError(t, ctx.Draw())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, d.RenderingInfo.ClearColor)
}

func TestCreateZeroConfigurationRequiresRelaxed(t *testing.T) {
	immediate := gfxtest.NewAdapter("immediate-only", gfx.DeviceTypeDiscreteGPU)
	immediate.PresentModes = []gfx.PresentMode{gfx.PresentModeImmediate}

	_, err := core.Create(gfxtest.New(immediate), testWindow, 640, 480, core.Configuration{})
	var nsd *core.NoSuitableDeviceError
	require.True(t, errors.As(err, &nsd))
	require.Len(t, nsd.Rejections, 1)
	assert.Contains(t, nsd.Rejections[0].Reason, "FIFO_RELAXED")
}

func TestCreateKeepsExplicitSettings(t *testing.T) {
	mailbox := gfxtest.NewAdapter("mailbox", gfx.DeviceTypeDiscreteGPU)
	mailbox.PresentModes = []gfx.PresentMode{gfx.PresentModeMailbox}

	cfg := core.DefaultConfiguration()
	cfg.Renderer.PresentMode = core.PresentMode(gfx.PresentModeMailbox)
	cfg.Renderer.ClearColor = mgl32.Vec4{0, 0, 0, 1}

	d := gfxtest.New(mailbox)
	ctx, err := core.Create(d, testWindow, 640, 480, cfg)
	require.NoError(t, err)
	defer ctx.Destroy()

	assert.Equal(t, gfx.PresentModeMailbox, ctx.Selection().PresentMode)
	require.NoError(t, ctx.Draw())
	assert.Equal(t, [4]float32{0, 0, 0, 1}, d.RenderingInfo.ClearColor)
}

func TestFirstFrameWithSRGBFormats(t *testing.T) {
	a := gfxtest.NewAdapter("gpu", gfx.DeviceTypeIntegratedGPU)
	a.Formats = []gfx.SurfaceFormat{
		{Format: gfx.FormatR8G8B8A8Srgb, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
		{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
	}
	a.Capabilities.MinImageCount = 2

	d := gfxtest.New(a)
	ctx, err := core.Create(d, testWindow, 640, 480, core.DefaultConfiguration())
	require.NoError(t, err)
	defer ctx.Destroy()

	want := gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSRGBNonlinear}
	assert.Equal(t, want, ctx.Selection().SurfaceFormat)
	assert.Equal(t, want, ctx.Swapchain().Format)
	assert.Len(t, ctx.Swapchain().Images, 2)
	assert.Len(t, ctx.Swapchain().Views, 2)

	require.NoError(t, ctx.Draw())
	assert.Equal(t, core.StateIdle, ctx.State())
	assert.Equal(t, uint64(1), ctx.Frames())
	assert.True(t, d.FenceSignaled(ctx.Sync().InFlight))
}
