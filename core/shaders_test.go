// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/utility/kar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spirvMagic = 0x07230203

func embedded(t *testing.T, name string) []byte {
	t.Helper()
	data, err := core.EmbeddedShaders().Shader(name)
	require.NoError(t, err)
	return data
}

func TestEmbeddedShadersDecode(t *testing.T) {
	for _, name := range []string{core.VertexShader, core.FragmentShader} {
		data := embedded(t, name)
		words, err := core.DecodeSPIRV(data)
		require.NoError(t, err, name)
		assert.Equal(t, uint32(spirvMagic), words[0], name)
		assert.Len(t, words, len(data)/4)
	}
}

func TestDecodeSPIRVSwapsByteOrder(t *testing.T) {
	data := embedded(t, core.VertexShader)
	want, err := core.DecodeSPIRV(data)
	require.NoError(t, err)

	swapped := make([]byte, len(data))
	for i := 0; i < len(data); i += 4 {
		swapped[i], swapped[i+1], swapped[i+2], swapped[i+3] = data[i+3], data[i+2], data[i+1], data[i]
	}

	got, err := core.DecodeSPIRV(swapped)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeSPIRVRejects(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"short":     {0x03, 0x02, 0x23},
		"unaligned": append(embedded(t, core.FragmentShader), 0),
		"magic":     make([]byte, 16),
		"text":      []byte("#version 450\n\nvoid main() {}\n"),
	} {
		_, err := core.DecodeSPIRV(data)
		var pErr *core.PipelineError
		require.True(t, errors.As(err, &pErr), name)
		assert.Equal(t, "decode", pErr.Op, name)
	}
}

func TestDecodeSPIRVDoesNotAlias(t *testing.T) {
	data := embedded(t, core.FragmentShader)
	words, err := core.DecodeSPIRV(data)
	require.NoError(t, err)

	words[0] = 0
	again, err := core.DecodeSPIRV(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(spirvMagic), again[0])
}

func TestParseShaderName(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ok    bool
		stage gfx.ShaderStage
	}{
		{"triangle.vert.spv", true, gfx.ShaderStageVertex},
		{"triangle.frag.spv", true, gfx.ShaderStageFragment},
		{"shaders/triangle.frag.spv", true, gfx.ShaderStageFragment},
		{"triangle.vert", false, 0},
		{"triangle.geom.spv", false, 0},
		{"tri.angle.vert.spv", false, 0},
		{".vert.spv", false, 0},
		{"triangle.spv", false, 0},
	} {
		f, ok := core.ParseShaderName(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.name, f.Name)
			assert.Equal(t, tc.stage, f.Stage, tc.name)
		}
	}
}

func TestEmbeddedShaderFiles(t *testing.T) {
	files, err := core.EmbeddedShaders().Files()
	require.NoError(t, err)
	assert.Equal(t, []core.ShaderFile{
		{Name: core.FragmentShader, Stage: gfx.ShaderStageFragment},
		{Name: core.VertexShader, Stage: gfx.ShaderStageVertex},
	}, files)
}

func TestEmbeddedShaderMissing(t *testing.T) {
	_, err := core.EmbeddedShaders().Shader("missing.vert.spv")
	assert.Error(t, err)
}

// writeShaderArchive packs the embedded shaders into a kar file.
func writeShaderArchive(t *testing.T, names ...string) string {
	t.Helper()
	builder, err := kar.NewBuilder(kar.Header{Author: "prism", Version: 1})
	require.NoError(t, err)
	defer builder.Close()

	for _, name := range names {
		require.NoError(t, builder.Add(name, bytes.NewReader(embedded(t, name))))
	}

	path := filepath.Join(t.TempDir(), "shaders.kar")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = builder.WriteTo(f)
	require.NoError(t, err)
	return path
}

func TestArchiveShaders(t *testing.T) {
	path := writeShaderArchive(t, core.VertexShader, core.FragmentShader)

	src, err := core.OpenShaderArchive(path)
	require.NoError(t, err)
	defer src.Close()

	for _, name := range []string{core.VertexShader, core.FragmentShader} {
		data, err := src.Shader(name)
		require.NoError(t, err)
		assert.Equal(t, embedded(t, name), data)
	}

	_, err = src.Shader("missing.frag.spv")
	assert.Error(t, err)
}

func TestOpenShaderArchiveMissing(t *testing.T) {
	_, err := core.OpenShaderArchive(filepath.Join(t.TempDir(), "nope.kar"))
	assert.Error(t, err)
}
