// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sort"
	"strings"

	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
)

// Shader binaries the pipeline is built from.
const (
	VertexShader   = "triangle.vert.spv"
	FragmentShader = "triangle.frag.spv"
)

const (
	shaderSuffix = ".spv"
	spirvMagic   = 0x07230203
)

// ShaderSource provides compiled shader binaries by name.
type ShaderSource interface {
	Shader(name string) ([]byte, error)
}

// ShaderFile is a compiled shader known by its file name.
type ShaderFile struct {
	Name  string
	Stage gfx.ShaderStage
}

// ParseShaderName recognizes compiled shader file names. It is important
// that the file name does not contain more than two dots, the first part
// is the name of the shader, second is the stage, and the .spv extension
// ensures that the shader is compiled.
func ParseShaderName(name string) (ShaderFile, bool) {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if !strings.HasSuffix(base, shaderSuffix) {
		return ShaderFile{}, false
	}
	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) != 2 || nodes[0] == "" {
		return ShaderFile{}, false
	}

	switch nodes[1] {
	case "vert":
		return ShaderFile{Name: name, Stage: gfx.ShaderStageVertex}, true
	case "frag":
		return ShaderFile{Name: name, Stage: gfx.ShaderStageFragment}, true
	}
	return ShaderFile{}, false
}

// EmbeddedShaders returns the shaders built into the binary.
func EmbeddedShaders() *BoxShaders {
	return &BoxShaders{box: packr.NewBox("./shaders")}
}

// BoxShaders serves shaders from a packr box.
type BoxShaders struct {
	box packr.Box
}

// Shader implements ShaderSource.
func (b *BoxShaders) Shader(name string) ([]byte, error) {
	data, err := b.box.Find(name)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return data, nil
}

// Files lists the compiled shaders in the box, sorted by name.
func (b *BoxShaders) Files() ([]ShaderFile, error) {
	var files []ShaderFile
	if err := b.box.Walk(func(path string, _ packd.File) error {
		if f, ok := ParseShaderName(path); ok {
			files = append(files, f)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ArchiveShaders serves shaders from a memory mapped kar archive.
type ArchiveShaders struct {
	file *kar.File
}

// OpenShaderArchive opens a kar archive holding compiled shaders.
func OpenShaderArchive(path string) (*ArchiveShaders, error) {
	f, err := kar.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "shader archive %s", path)
	}
	return &ArchiveShaders{file: f}, nil
}

// Shader implements ShaderSource.
func (a *ArchiveShaders) Shader(name string) ([]byte, error) {
	data, err := a.file.ReadAll(name)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return data, nil
}

// Close unmaps the archive.
func (a *ArchiveShaders) Close() error {
	return a.file.Close()
}

// DecodeSPIRV validates a SPIR-V binary and returns its words in host
// order. Binaries written in the opposite byte order are swapped.
func DecodeSPIRV(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, &PipelineError{Op: "decode", Err: errors.Errorf("invalid SPIR-V length %d", len(code))}
	}

	words := SliceUint32(code)
	decoded := make([]uint32, len(words))
	switch words[0] {
	case spirvMagic:
		copy(decoded, words)
	case swapUint32(spirvMagic):
		for i, w := range words {
			decoded[i] = swapUint32(w)
		}
	default:
		return nil, &PipelineError{Op: "decode", Err: errors.Errorf("invalid SPIR-V magic %#08x", words[0])}
	}
	return decoded, nil
}
