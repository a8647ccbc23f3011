// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/devblok/prism/utility/kar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(t testing.TB, level kar.CompressionLevel, files map[string]string) []byte {
	t.Helper()
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	require.NoError(t, err)
	defer builder.Close()

	builder.SetCompression(level)
	for name, contents := range files {
		require.NoError(t, builder.Add(name, strings.NewReader(contents)))
	}

	var buf bytes.Buffer
	_, err = builder.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	data := buildArchive(t, kar.CompressionDefault, map[string]string{
		"test":  testString1,
		"test2": testString2,
	})

	ar, err := kar.Open(bytes.NewReader(data))
	require.NoError(t, err)

	f, err := ar.Open("test")
	require.NoError(t, err)
	assert.Equal(t, int64(len(testString1)), f.Size())

	var result bytes.Buffer
	_, err = result.ReadFrom(f)
	require.NoError(t, err)
	assert.Equal(t, testString1, result.String())
}

func TestCreateAndReadAll(t *testing.T) {
	for _, level := range []kar.CompressionLevel{
		kar.CompressionFastest,
		kar.CompressionFast,
		kar.CompressionDefault,
		kar.CompressionHigh,
		kar.CompressionMax,
	} {
		data := buildArchive(t, level, map[string]string{
			"test":  testString1,
			"test2": testString2,
			"big":   strings.Repeat(testString2, 4096),
			"empty": "",
		})

		ar, err := kar.Open(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"big", "empty", "test", "test2"}, ar.Names())

		for name, want := range map[string]string{
			"test":  testString1,
			"test2": testString2,
			"big":   strings.Repeat(testString2, 4096),
			"empty": "",
		} {
			got, err := ar.ReadAll(name)
			require.NoError(t, err, "level %d file %s", level, name)
			assert.Equal(t, want, string(got), "level %d file %s", level, name)
		}
	}
}

func TestHeaderPreserved(t *testing.T) {
	data := buildArchive(t, kar.CompressionDefault, map[string]string{"a": "b"})
	ar, err := kar.Open(bytes.NewReader(data))
	require.NoError(t, err)

	header := ar.Header()
	assert.Equal(t, "devblok", header.Author)
	assert.Equal(t, int64(1), header.Version)
	require.Len(t, header.Index, 1)

	e, err := ar.Stat("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Size)
	assert.Equal(t, int64(0), e.Offset)
}

func TestMissingFile(t *testing.T) {
	data := buildArchive(t, kar.CompressionDefault, map[string]string{"test": testString1})
	ar, err := kar.Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = ar.Open("nope")
	assert.Equal(t, kar.ErrNotFound, err)
	_, err = ar.ReadAll("nope")
	assert.Equal(t, kar.ErrNotFound, err)
	_, err = ar.Stat("nope")
	assert.Equal(t, kar.ErrNotFound, err)
}

func TestOpenRejectsGarbage(t *testing.T) {
	valid := buildArchive(t, kar.CompressionDefault, map[string]string{"test": testString1})

	for name, data := range map[string][]byte{
		"empty":       {},
		"bad magic":   []byte("TAR\x00aaaaaaaaaaaaaaaa"),
		"no size":     kar.Magic[:],
		"short":       valid[:kar.MagicLength+kar.HeaderSizeNumberLength+2],
		"zero header": append(kar.Magic[:], make([]byte, kar.HeaderSizeNumberLength)...),
	} {
		_, err := kar.Open(bytes.NewReader(data))
		assert.Equal(t, kar.ErrFileFormat, err, name)
	}
}
