// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"
	"unsafe"

	"github.com/devblok/prism/gfx"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultError(t *testing.T) {
	for _, res := range []vk.Result{vk.Success, vk.Incomplete, vk.Suboptimal} {
		assert.NoError(t, resultError("op", res), "result %d", res)
	}

	for res, want := range map[vk.Result]error{
		vk.ErrorOutOfDate:   gfx.ErrOutOfDate,
		vk.Timeout:          gfx.ErrTimeout,
		vk.NotReady:         gfx.ErrTimeout,
		vk.ErrorDeviceLost:  gfx.ErrDeviceLost,
		vk.ErrorSurfaceLost: gfx.ErrSurfaceLost,
	} {
		err := resultError("vk.QueuePresent()", res)
		assert.True(t, errors.Is(err, want), "result %d", res)
		assert.Contains(t, err.Error(), "vk.QueuePresent()")
	}

	err := resultError("vk.CreateDevice()", vk.ErrorOutOfHostMemory)
	assert.Error(t, err)
	for _, sentinel := range []error{gfx.ErrOutOfDate, gfx.ErrTimeout, gfx.ErrDeviceLost, gfx.ErrSurfaceLost} {
		assert.False(t, errors.Is(err, sentinel))
	}
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "VK_KHR_swapchain\x00", safeString("VK_KHR_swapchain"))
	assert.Equal(t, "VK_KHR_swapchain\x00", safeString("VK_KHR_swapchain\x00"))
	assert.Equal(t, "\x00", safeString(""))

	assert.Nil(t, safeStrings(nil))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestTable(t *testing.T) {
	var tbl table[string]
	assert.Equal(t, "", tbl.get(1))

	a, b := tbl.add("a"), tbl.add("b")
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "b", tbl.get(b))
	assert.Equal(t, 2, tbl.len())

	v, ok := tbl.remove(a)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = tbl.remove(a)
	assert.False(t, ok)
	assert.Equal(t, 1, tbl.len())

	assert.NotEqual(t, a, tbl.add("c"))
}

func TestResolveRendering(t *testing.T) {
	var begin, end, beginKHR, endKHR byte
	entries := func(names map[string]unsafe.Pointer) func(string) unsafe.Pointer {
		return func(name string) unsafe.Pointer { return names[name] }
	}

	rc, err := resolveRendering(entries(map[string]unsafe.Pointer{
		"vkCmdBeginRendering":    unsafe.Pointer(&begin),
		"vkCmdEndRendering":      unsafe.Pointer(&end),
		"vkCmdBeginRenderingKHR": unsafe.Pointer(&beginKHR),
		"vkCmdEndRenderingKHR":   unsafe.Pointer(&endKHR),
	}))
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(&begin), rc.begin)
	assert.Equal(t, unsafe.Pointer(&end), rc.end)

	rc, err = resolveRendering(entries(map[string]unsafe.Pointer{
		"vkCmdBeginRenderingKHR": unsafe.Pointer(&beginKHR),
		"vkCmdEndRenderingKHR":   unsafe.Pointer(&endKHR),
	}))
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(&beginKHR), rc.begin)
	assert.Equal(t, unsafe.Pointer(&endKHR), rc.end)

	_, err = resolveRendering(entries(map[string]unsafe.Pointer{
		"vkCmdBeginRendering": unsafe.Pointer(&begin),
	}))
	assert.Error(t, err)
}

func TestDispatchable(t *testing.T) {
	var target byte
	handle := unsafe.Pointer(&target)
	assert.Equal(t, handle, dispatchable(&handle))
}
