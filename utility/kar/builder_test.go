// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndWrite(t *testing.T) {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	require.NoError(t, err)
	defer builder.Close()

	require.NoError(t, builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")))
	require.NoError(t, builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")))
	assert.Len(t, builder.files, 2, "incorrect number of files present")

	var buf bytes.Buffer
	num, err := builder.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), num)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), Magic[:]))
}

func TestAddReplacesSameName(t *testing.T) {
	builder, err := NewBuilder(Header{Version: 1})
	require.NoError(t, err)
	defer builder.Close()

	require.NoError(t, builder.Add("shader", strings.NewReader("first")))
	require.NoError(t, builder.Add("shader", strings.NewReader("second version")))
	require.Equal(t, 1, builder.Len())
	assert.Equal(t, int64(len("second version")), builder.files[0].Size)
}

func TestHeaderSizeEncoding(t *testing.T) {
	for _, n := range []int64{0, 1, 255, 1 << 40} {
		got, err := binaryToint64(int64ToBinary(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}

	_, err := binaryToint64([]byte{1, 2})
	assert.Equal(t, ErrFileFormat, err)
}
