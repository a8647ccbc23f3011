// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

/*
#cgo linux LDFLAGS: -ldl

#include <stdlib.h>

typedef void* (*PFN_getProcAddr)(void* handle, const char* name);
typedef void (*PFN_cmdBeginRendering)(void* commandBuffer, const void* pRenderingInfo);
typedef void (*PFN_cmdEndRendering)(void* commandBuffer);

#if defined(_WIN32)
#include <windows.h>

static void* loaderProcAddr() {
	HMODULE lib = LoadLibraryA("vulkan-1.dll");
	if (lib == NULL) {
		return NULL;
	}
	return (void*)GetProcAddress(lib, "vkGetInstanceProcAddr");
}
#else
#include <dlfcn.h>

static void* loaderProcAddr() {
	void* lib = dlopen("libvulkan.so.1", RTLD_NOW | RTLD_LOCAL);
	if (lib == NULL) {
		lib = dlopen("libvulkan.so", RTLD_NOW | RTLD_LOCAL);
	}
	if (lib == NULL) {
		lib = dlopen("libvulkan.1.dylib", RTLD_NOW | RTLD_LOCAL);
	}
	if (lib == NULL) {
		return NULL;
	}
	return dlsym(lib, "vkGetInstanceProcAddr");
}
#endif

static void* getProcAddr(void* f, void* handle, const char* name) {
	return ((PFN_getProcAddr)f)(handle, name);
}

static void vkCmdBeginRendering(void* f, void* commandBuffer, const void* pRenderingInfo) {
	((PFN_cmdBeginRendering)f)(commandBuffer, pRenderingInfo);
}

static void vkCmdEndRendering(void* f, void* commandBuffer) {
	((PFN_cmdEndRendering)f)(commandBuffer);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

// renderingCommands are the dynamic rendering entry points of one device.
// The bindings carry the structures but not the commands, so they are
// resolved through the loader.
type renderingCommands struct {
	begin unsafe.Pointer
	end   unsafe.Pointer
}

// systemProcAddr opens the system Vulkan loader and returns its
// vkGetInstanceProcAddr, nil when there is no loader.
func systemProcAddr() unsafe.Pointer {
	return C.loaderProcAddr()
}

// procAddr looks name up through a vkGetInstanceProcAddr or
// vkGetDeviceProcAddr style function.
func procAddr(f, handle unsafe.Pointer, name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.getProcAddr(f, handle, cname)
}

// dispatchable returns the native pointer behind a dispatchable handle.
func dispatchable[T any](h *T) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(h))
}

// resolveRendering finds the dynamic rendering commands, taking the
// core names first and the VK_KHR_dynamic_rendering aliases second.
func resolveRendering(lookup func(name string) unsafe.Pointer) (renderingCommands, error) {
	find := func(name string) unsafe.Pointer {
		if fn := lookup(name); fn != nil {
			return fn
		}
		return lookup(name + "KHR")
	}

	rc := renderingCommands{
		begin: find("vkCmdBeginRendering"),
		end:   find("vkCmdEndRendering"),
	}
	if rc.begin == nil || rc.end == nil {
		return renderingCommands{}, errors.New("vkCmdBeginRendering/vkCmdEndRendering not available")
	}
	return rc, nil
}

// loadRendering resolves the rendering commands of device through the
// vkGetDeviceProcAddr of instance.
func (d *Driver) loadRendering(instance, device unsafe.Pointer) (renderingCommands, error) {
	getDeviceProcAddr := procAddr(d.procAddr, instance, "vkGetDeviceProcAddr")
	if getDeviceProcAddr == nil {
		return renderingCommands{}, errors.New("vkGetDeviceProcAddr not available")
	}
	return resolveRendering(func(name string) unsafe.Pointer {
		return procAddr(getDeviceProcAddr, device, name)
	})
}

func cmdBeginRendering(f, commandBuffer, info unsafe.Pointer) {
	C.vkCmdBeginRendering(f, commandBuffer, info)
}

func cmdEndRendering(f, commandBuffer unsafe.Pointer) {
	C.vkCmdEndRendering(f, commandBuffer)
}
