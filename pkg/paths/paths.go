package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	once       sync.Once
	cachedRoot string
	cachedErr  error
)

// Root 运行根目录：PROJECT_ROOT > 工作目录 > 可执行文件所在目录
func Root() (string, error) {
	once.Do(func() {
		if v := strings.TrimSpace(os.Getenv("PROJECT_ROOT")); v != "" {
			if isDir(v) {
				cachedRoot = v
				return
			}
		}
		if wd, err := os.Getwd(); err == nil && wd != "" {
			cachedRoot = wd
			return
		}
		if exe, err := os.Executable(); err == nil {
			cachedRoot = filepath.Dir(exe)
			return
		}
		cachedErr = errors.New("paths: base dir not found")
	})
	if cachedErr != nil {
		return "", cachedErr
	}
	return cachedRoot, nil
}

// Join = filepath.Join(Root(), elems...)
func Join(elems ...string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	all := append([]string{root}, elems...)
	return filepath.Join(all...), nil
}

// Resolve 相对路径按 Root() 展开，绝对路径原样返回
func Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if abs, err := Join(p); err == nil {
		return abs
	}
	return p
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
