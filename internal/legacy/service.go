// Package legacy 是 1.x 的上传/下载接口：原样保存 PNG，按文件名取回，均需共享密钥。
package legacy

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"skinwall/internal/artifact"
	"skinwall/internal/secret"
	"skinwall/pkg/paths"
)

var ErrNotPNG = errors.New("legacy: only .png files are accepted")

type Config struct {
	Dir     string
	KeyFile string
}

func ConfigFromEnv() Config {
	return Config{
		Dir:     paths.Resolve(getenv("LEGACY_DIR", "uploads")),
		KeyFile: paths.Resolve(getenv("LEGACY_KEY_FILE", "key.txt")),
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

type Service struct {
	Store *artifact.FileStore
	key   string
}

func NewService(cfg Config) (*Service, error) {
	key, err := secret.Load(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	store, err := artifact.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	log.Printf("[legacy] dir=%q", cfg.Dir)
	return &Service{Store: store, key: key}, nil
}

func (s *Service) Authorized(key string) bool { return secret.Equal(s.key, key) }

// CleanName 取上传文件名的 base 部分，并要求 .png 后缀
func CleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." || !strings.HasSuffix(strings.ToLower(name), ".png") {
		return "", fmt.Errorf("%w: %q", ErrNotPNG, name)
	}
	return name, nil
}

// Save 原样写入，同名覆盖
func (s *Service) Save(name string, r io.Reader) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Store.Dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(s.Store.Dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	return name, f.Close()
}

func (s *Service) Path(name string) (string, error) { return s.Store.Open(name) }
