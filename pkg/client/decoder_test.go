package client

import (
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader 按预设块边界吐数据，模拟网络分片
type chunkReader struct {
	chunks [][]byte
	pos    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	r.pos++
	return n, nil
}

func drainDecoder(t *testing.T, d *StreamDecoder) []string {
	t.Helper()
	var pieces []string
	for {
		text, err := d.Next()
		if err == io.EOF {
			return pieces
		}
		require.NoError(t, err)
		pieces = append(pieces, text)
	}
}

func TestDecoderSplitMultiByteRune(t *testing.T) {
	// "你" = e4 bd a0，故意在字符中间切开
	raw := []byte("你好, world")
	reader := &chunkReader{chunks: [][]byte{
		raw[:2], // "你" 的前两个字节
		raw[2:5],
		raw[5:],
	}}

	pieces := drainDecoder(t, NewStreamDecoder(reader))

	assert.Equal(t, "你好, world", strings.Join(pieces, ""))
	for _, piece := range pieces {
		assert.True(t, utf8.ValidString(piece), "piece %q must be valid UTF-8", piece)
	}
}

func TestDecoderSplitEmoji(t *testing.T) {
	// 四字节字符逐字节到达
	raw := []byte("ok 🌍 done")
	var chunks [][]byte
	for i := range raw {
		chunks = append(chunks, raw[i:i+1])
	}

	pieces := drainDecoder(t, NewStreamDecoder(&chunkReader{chunks: chunks}))

	assert.Equal(t, "ok 🌍 done", strings.Join(pieces, ""))
	for _, piece := range pieces {
		assert.True(t, utf8.ValidString(piece))
	}
}

func TestDecoderAsciiPassThrough(t *testing.T) {
	reader := &chunkReader{chunks: [][]byte{[]byte("hello "), []byte("world")}}
	d := NewStreamDecoder(reader)

	first, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello ", first)

	second, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "world", second)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderTruncatedRuneAtEOF(t *testing.T) {
	// 流在字符中间断掉：残缺字节在 EOF 前吐出，不会丢
	raw := []byte("abc你")
	reader := &chunkReader{chunks: [][]byte{raw[:len(raw)-1]}}

	pieces := drainDecoder(t, NewStreamDecoder(reader))
	assert.Equal(t, string(raw[:len(raw)-1]), strings.Join(pieces, ""))
}

func TestDecoderEmptyStream(t *testing.T) {
	d := NewStreamDecoder(&chunkReader{})
	_, err := d.Next()
	assert.Equal(t, io.EOF, err)
}
