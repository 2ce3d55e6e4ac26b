package envinit

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"skinwall/pkg/paths"

	"github.com/joho/godotenv"
)

const (
	dirName  = "config/legacy"
	mainEnv  = ".env"      // 模块主配置
	localEnv = "local.env" // 开发者本地覆盖
)

func defaultEnv() []byte {
	now := time.Now().Format(time.RFC3339)
	return []byte(
		"# Auto-generated on " + now + "\n" +
			"# Legacy (1.x) upload module config. Disabled unless legacy_ENABLED=true.\n\n" +
			// 原样保存上传的 PNG
			"LEGACY_DIR=uploads\n" +
			"LEGACY_KEY_FILE=key.txt\n",
	)
}

// Init: 在运行根目录创建 config/legacy/.env 并加载
func Init() {
	base, err := paths.Root()
	if err != nil {
		log.Printf("[legacy/envinit] %v; skip init", err)
		return
	}

	cfgDir := filepath.Join(base, dirName)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		log.Printf("[legacy/envinit] mkdir %s: %v", cfgDir, err)
		return
	}

	envPath := filepath.Join(cfgDir, mainEnv)
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, defaultEnv(), 0o644); err != nil {
			log.Printf("[legacy/envinit] write default env: %v", err)
		} else {
			log.Printf("[legacy/envinit] created %s", envPath)
		}
	}

	_ = godotenv.Load(envPath)
	_ = godotenv.Overload(filepath.Join(cfgDir, localEnv))
	log.Printf("[legacy/envinit] loaded %s", cfgDir)
}
