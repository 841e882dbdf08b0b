package client

import (
	"io"
	"unicode/utf8"
)

// StreamDecoder 把 chat 字节流增量解码成文本。
// 一个多字节字符可能被块边界劈开，残缺的尾部字节
// 留到下一次读取再拼接，绝不按块独立解码。
type StreamDecoder struct {
	r       io.Reader
	buf     []byte
	pending []byte
}

func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return &StreamDecoder{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next 返回下一段完整可解码的文本，流结束返回 io.EOF。
// 流在字符中间被截断时，残缺字节在 EOF 前原样吐出。
func (d *StreamDecoder) Next() (string, error) {
	for {
		n, err := d.r.Read(d.buf)
		if n > 0 {
			data := append(d.pending, d.buf[:n]...)
			cut := completeLen(data)
			// 先落定返回值再更新 pending，二者可能共用底层数组
			text := string(data[:cut])
			d.pending = append([]byte(nil), data[cut:]...)
			if cut > 0 {
				return text, nil
			}
			// 这一块连一个完整字符都凑不齐，继续读
			continue
		}
		if err != nil {
			if err == io.EOF && len(d.pending) > 0 {
				text := string(d.pending)
				d.pending = nil
				return text, nil
			}
			return "", err
		}
	}
}

// completeLen 返回 b 中不截断任何 UTF-8 序列的最长前缀长度
func completeLen(b []byte) int {
	// 从末尾回退到最后一个字符的起始字节，最多回看 utf8.UTFMax 字节
	i := len(b) - 1
	for lim := 0; i >= 0 && lim < utf8.UTFMax; lim++ {
		if b[i]&0xC0 != 0x80 {
			break
		}
		i--
	}
	if i < 0 || !utf8.RuneStart(b[i]) {
		// 找不到起始字节说明数据本身不是合法 UTF-8，原样放行
		return len(b)
	}
	if utf8.FullRune(b[i:]) {
		return len(b)
	}
	return i
}
