// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/devblok/prism/gfx"

// PipelineBundle is the fixed graphics pipeline and what it was built from.
type PipelineBundle struct {
	Vertex   gfx.ShaderModule
	Fragment gfx.ShaderModule
	Layout   gfx.PipelineLayout
	Pipeline gfx.Pipeline
}

// Fixed rasterization state of the pipeline.
const (
	pipelineCullMode  = gfx.CullFront
	pipelineFrontFace = gfx.FrontFaceCounterClockwise
	shaderEntryPoint  = "main"
)

func newShaderModule(d gfx.Driver, dev gfx.Device, src ShaderSource, name string, rs *releaseStack) (gfx.ShaderModule, error) {
	data, err := src.Shader(name)
	if err != nil {
		return 0, &PipelineError{Op: "load shader", Err: err}
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return 0, err
	}
	module, err := d.CreateShaderModule(dev, code)
	if err != nil {
		return 0, &PipelineError{Op: "create shader module " + name, Err: err}
	}
	rs.push(stepShaderModules, func() { d.DestroyShaderModule(dev, module) })
	return module, nil
}

// newPipeline builds the shader modules, the empty pipeline layout and
// the graphics pipeline rendering into the swapchain format.
func newPipeline(d gfx.Driver, dev gfx.Device, src ShaderSource, sc *Swapchain, rs *releaseStack) (*PipelineBundle, error) {
	var (
		pb  PipelineBundle
		err error
	)

	/* Shaders */
	if pb.Vertex, err = newShaderModule(d, dev, src, VertexShader, rs); err != nil {
		return nil, err
	}
	if pb.Fragment, err = newShaderModule(d, dev, src, FragmentShader, rs); err != nil {
		return nil, err
	}

	/* Pipeline Layout */
	layout, err := d.CreatePipelineLayout(dev)
	if err != nil {
		return nil, &PipelineError{Op: "create layout", Err: err}
	}
	pb.Layout = layout
	rs.push(stepPipelineLayout, func() { d.DestroyPipelineLayout(dev, layout) })

	/* Pipeline */
	pipeline, err := d.CreateGraphicsPipeline(dev, gfx.GraphicsPipelineCreateInfo{
		Layout:      layout,
		Vertex:      pb.Vertex,
		Fragment:    pb.Fragment,
		EntryPoint:  shaderEntryPoint,
		Extent:      sc.Extent,
		ColorFormat: sc.Format.Format,
		CullMode:    pipelineCullMode,
		FrontFace:   pipelineFrontFace,
	})
	if err != nil {
		return nil, &PipelineError{Op: "create graphics pipeline", Err: err}
	}
	pb.Pipeline = pipeline
	rs.push(stepPipeline, func() { d.DestroyPipeline(dev, pipeline) })

	return &pb, nil
}
