package skinwall

import (
	"os"
	"strconv"
	"strings"

	"skinwall/pkg/paths"
)

// Config 启动时构造一次，之后只读
type Config struct {
	Dir         string  // 产物目录
	LegacyDir   string  // 1.x 旧目录
	Migrate     bool    // 启动时是否迁移 LegacyDir
	KeyFile     string  // 共享密钥文件
	SQLitePath  string  // 生成记录；空则关闭
	WebPQuality float32 // >= 100 时无损
}

func ConfigFromEnv() Config {
	q, err := strconv.Atoi(getenv("SKINWALL_WEBP_QUALITY", "100"))
	if err != nil || q <= 0 || q > 100 {
		q = 100
	}
	return Config{
		Dir:         paths.Resolve(getenv("SKINWALL_DIR", "uploads_v2")),
		LegacyDir:   paths.Resolve(getenv("SKINWALL_LEGACY_DIR", "uploads")),
		Migrate:     parseBool(getenv("SKINWALL_MIGRATE", "true")),
		KeyFile:     paths.Resolve(getenv("SKINWALL_KEY_FILE", "key.txt")),
		SQLitePath:  sqlitePath(os.Getenv("SKINWALL_SQLITE_PATH")),
		WebPQuality: float32(q),
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func sqlitePath(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "file:") {
		return v
	}
	return paths.Resolve(v)
}
