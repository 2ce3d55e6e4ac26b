package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrMissing = errors.New("secret: key file not found")
	ErrEmpty   = errors.New("secret: key file is empty")
)

func IsMissing(err error) bool { return errors.Is(err, ErrMissing) }

// Load 读取共享密钥文件（纯文本，首尾空白会被去掉）
func Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return "", err
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return key, nil
}

// Equal 常量时间比较；want 为空时一律拒绝
func Equal(want, got string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
