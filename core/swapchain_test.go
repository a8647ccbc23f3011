// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/gfx/gfxtest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCount(t *testing.T) {
	for min, want := range []uint32{2, 2, 2, 3, 3, 3} {
		assert.Equal(t, want, core.ImageCount(uint32(min)), "min %d", min)
	}
	assert.Equal(t, uint32(3), core.ImageCount(^uint32(0)))
}

func TestSwapchainImageCountFollowsSurface(t *testing.T) {
	for _, tc := range []struct {
		min  uint32
		want int
	}{
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 3},
	} {
		a := gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU)
		a.Capabilities.MinImageCount = tc.min
		d := gfxtest.New(a)

		ctx, err := core.Create(d, testWindow, 640, 480, core.DefaultConfiguration())
		require.NoError(t, err)

		assert.Equal(t, uint32(tc.want), d.SwapchainInfo.MinImageCount)
		assert.Len(t, ctx.Swapchain().Images, tc.want)
		assert.Len(t, ctx.Swapchain().Views, tc.want)
		ctx.Destroy()
	}
}

func TestSwapchainRejectsEmptyExtent(t *testing.T) {
	for _, size := range [][2]uint32{{0, 480}, {640, 0}, {0, 0}} {
		d := gfxtest.New(gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU))

		ctx, err := core.Create(d, testWindow, size[0], size[1], core.DefaultConfiguration())
		assert.Nil(t, ctx)

		var scErr *core.SwapchainError
		require.True(t, errors.As(err, &scErr), "size %v", size)
		assert.Equal(t, "create", scErr.Op)
		assert.Zero(t, d.Count("CreateSwapchain"))
		assert.Zero(t, d.Live())
	}
}

func TestSwapchainCreateInfo(t *testing.T) {
	a := gfxtest.NewAdapter("gpu", gfx.DeviceTypeDiscreteGPU)
	a.Capabilities.CurrentTransform = 1
	d := gfxtest.New(a)

	ctx, err := core.Create(d, testWindow, 800, 600, core.DefaultConfiguration())
	require.NoError(t, err)
	defer ctx.Destroy()

	info := d.SwapchainInfo
	assert.Equal(t, gfx.Extent2D{Width: 800, Height: 600}, info.Extent)
	assert.Equal(t, gfx.PresentModeFifoRelaxed, info.PresentMode)
	assert.Equal(t, gfx.FormatB8G8R8A8Srgb, info.Format.Format)
	assert.Equal(t, uint32(1), info.Transform)
	assert.Equal(t, ctx.Swapchain().Extent, info.Extent)
}
