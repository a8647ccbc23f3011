// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"io/ioutil"

	"github.com/devblok/prism/gfx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Option customizes a Context at creation.
type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	shaders ShaderSource
}

// WithLogger sets the logger the context reports to.
// By default nothing is logged.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithShaders overrides where the shader binaries are loaded from.
func WithShaders(src ShaderSource) Option {
	return func(o *options) {
		o.shaders = src
	}
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

// Context owns every GPU object needed to put a triangle on a window
// surface, and drives the frame cycle. It is not safe for concurrent use.
type Context struct {
	driver gfx.Driver
	log    logrus.FieldLogger
	cfg    RendererConfiguration

	instance  gfx.Instance
	messenger gfx.DebugMessenger
	surface   gfx.Surface
	selection Selection
	device    gfx.Device
	queue     gfx.Queue
	commands  CommandResources
	swapchain *Swapchain
	pipeline  *PipelineBundle
	sync      SyncSet

	state     State
	frames    uint64
	aborted   bool
	destroyed bool
	release   releaseStack
}

// Create negotiates capabilities with the driver and builds the whole
// rendering context for a window of the given size. On failure every
// object created so far is destroyed and no context is returned.
func Create(driver gfx.Driver, window gfx.Window, width, height uint32, cfg Configuration, opts ...Option) (*Context, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = discardLogger()
	}
	cfg = cfg.withDefaults()

	c := &Context{
		driver: driver,
		log:    o.log,
		cfg:    cfg.Renderer,
	}

	if o.shaders == nil {
		if cfg.Renderer.ShaderArchive != "" {
			archive, err := OpenShaderArchive(cfg.Renderer.ShaderArchive)
			if err != nil {
				return nil, &PipelineError{Op: "load shaders", Err: err}
			}
			defer archive.Close()
			o.shaders = archive
		} else {
			o.shaders = EmbeddedShaders()
		}
	}

	if err := c.build(window, gfx.Extent2D{Width: width, Height: height}, cfg.Instance, o.shaders); err != nil {
		c.teardown()
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"device": c.selection.Properties.Name,
		"format": c.swapchain.Format,
		"images": len(c.swapchain.Images),
		"extent": c.swapchain.Extent,
	}).Info("render context created")
	return c, nil
}

func (c *Context) build(window gfx.Window, extent gfx.Extent2D, icfg InstanceConfiguration, shaders ShaderSource) error {
	d, rs := c.driver, &c.release

	/* Instance */
	extensions, layers, err := negotiateInstance(d, window, icfg)
	if err != nil {
		return err
	}

	instance, err := d.CreateInstance(gfx.InstanceCreateInfo{
		Application: gfx.ApplicationInfo{
			Name:       icfg.ApplicationName,
			EngineName: "Prism",
			Version:    1,
		},
		Extensions: extensions,
		Layers:     layers,
	})
	if err != nil {
		return errors.Wrap(err, "create instance")
	}
	c.instance = instance
	rs.push(stepInstance, func() { d.DestroyInstance(instance) })

	if icfg.DebugMode {
		messenger, err := d.CreateDebugMessenger(instance)
		if err != nil {
			return errors.Wrap(err, "create debug messenger")
		}
		c.messenger = messenger
		rs.push(stepDebugMessenger, func() { d.DestroyDebugMessenger(instance, messenger) })
	}

	/* Surface */
	surface, err := d.CreateSurface(instance, window)
	if err != nil {
		return errors.Wrap(err, "create surface")
	}
	c.surface = surface
	rs.push(stepSurface, func() { d.DestroySurface(instance, surface) })

	/* Device */
	req := DeviceRequirements{
		Extensions:  appendUnique([]string{gfx.SwapchainExtension}, c.cfg.DeviceExtensions...),
		PresentMode: *c.cfg.PresentMode,
	}
	if icfg.DebugMode {
		req.Layers = []string{gfx.ValidationLayer}
	}
	if c.selection, err = SelectDevice(d, instance, surface, req, c.log); err != nil {
		return err
	}

	device, err := d.CreateDevice(c.selection.PhysicalDevice, gfx.DeviceCreateInfo{
		QueueFamily: c.selection.QueueFamily,
		Extensions:  c.selection.Extensions,
		Layers:      c.selection.Layers,
	})
	if err != nil {
		return errors.Wrap(err, "create device")
	}
	c.device = device
	rs.push(stepDevice, func() { d.DestroyDevice(device) })
	c.queue = d.DeviceQueue(device, c.selection.QueueFamily)

	/* Commands */
	if c.commands, err = newCommandResources(d, device, c.selection.QueueFamily, rs); err != nil {
		return err
	}

	/* Swapchain */
	if c.swapchain, err = newSwapchain(d, device, surface, c.selection, extent, rs); err != nil {
		return err
	}

	/* Pipeline */
	if c.pipeline, err = newPipeline(d, device, shaders, c.swapchain, rs); err != nil {
		return err
	}

	/* Synchronization */
	if c.sync, err = newSyncSet(d, device, rs); err != nil {
		return err
	}

	return nil
}

// negotiateInstance collects the instance extensions and layers
// to enable and checks that the driver supports all of them.
func negotiateInstance(d gfx.Driver, window gfx.Window, cfg InstanceConfiguration) ([]string, []string, error) {
	extensions := appendUnique(nil, window.VulkanGetInstanceExtensions()...)
	extensions = appendUnique(extensions, cfg.Extensions...)
	layers := appendUnique(nil, cfg.Layers...)
	if cfg.DebugMode {
		extensions = appendUnique(extensions, gfx.DebugReportExtension)
		layers = appendUnique(layers, gfx.ValidationLayer)
	}

	supported, err := d.InstanceExtensions()
	if err != nil {
		return nil, nil, errors.Wrap(err, "enumerate instance extensions")
	}
	if err := CheckSupport("instance extensions", extensions, supported); err != nil {
		return nil, nil, err
	}

	if len(layers) > 0 {
		supported, err := d.InstanceLayers()
		if err != nil {
			return nil, nil, errors.Wrap(err, "enumerate instance layers")
		}
		if err := CheckSupport("instance layers", layers, supported); err != nil {
			return nil, nil, err
		}
	}

	return extensions, layers, nil
}

// Destroy waits for the device to finish and releases every object the
// context created. Only the first call has an effect.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.teardown()
	c.log.WithField("frames", c.frames).Info("render context destroyed")
}

func (c *Context) teardown() {
	if c.release.has(stepDevice) {
		if err := c.driver.DeviceWaitIdle(c.device); err != nil {
			c.log.WithError(err).Warn("device wait idle failed")
		}
	}
	c.release.Release()
}

// State returns the frame cycle state.
func (c *Context) State() State {
	return c.state
}

// Frames returns the number of frames presented.
func (c *Context) Frames() uint64 {
	return c.frames
}

// Selection returns the outcome of device negotiation.
func (c *Context) Selection() Selection {
	return c.selection
}

// Swapchain returns the swapchain and its views.
func (c *Context) Swapchain() *Swapchain {
	return c.swapchain
}

// Sync returns the frame synchronization primitives.
func (c *Context) Sync() SyncSet {
	return c.sync
}
