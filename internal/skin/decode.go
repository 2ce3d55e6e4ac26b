package skin

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	ErrBadEncoding = errors.New("skin: invalid base64 data")
	ErrBadSize     = errors.New("skin: unsupported skin data size")
)

// IsInvalid 报告 err 是否属于输入校验错误（对应 400）
func IsInvalid(err error) bool {
	return errors.Is(err, ErrBadEncoding) || errors.Is(err, ErrBadSize)
}

// Size 一种允许的皮肤尺寸
type Size struct{ W, H int }

func (s Size) Bytes() int { return s.W * s.H * 4 }

// Sizes 支持的全部尺寸（字节长度互不相同）
var Sizes = []Size{
	{64, 32},
	{64, 64},
	{128, 64},
	{128, 128},
}

// SizeFor 按解码后的字节长度查尺寸
func SizeFor(n int) (Size, bool) {
	for _, s := range Sizes {
		if s.Bytes() == n {
			return s, true
		}
	}
	return Size{}, false
}

// Decode base64 -> 按长度识别尺寸 -> NRGBA（行优先、无填充）
func Decode(data string) (*image.NRGBA, error) {
	raw, err := decodeBase64(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	sz, ok := SizeFor(len(raw))
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadSize, len(raw))
	}
	img := &image.NRGBA{
		Pix:    raw,
		Stride: sz.W * 4,
		Rect:   image.Rect(0, 0, sz.W, sz.H),
	}
	return img, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	// 客户端偶尔会去掉末尾的 '='
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
