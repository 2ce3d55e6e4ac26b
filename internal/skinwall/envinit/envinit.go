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
	dirName  = "config/skinwall"
	mainEnv  = ".env"      // 模块主配置
	localEnv = "local.env" // 开发者本地覆盖
)

func defaultEnv() []byte {
	now := time.Now().Format(time.RFC3339)
	return []byte(
		"# Auto-generated on " + now + "\n" +
			"# Skinwall module config.\n\n" +
			// 壁纸/图标保存目录
			"SKINWALL_DIR=uploads_v2\n" +
			// 1.x 旧目录，启动时迁移后删除
			"SKINWALL_LEGACY_DIR=uploads\n" +
			"SKINWALL_MIGRATE=true\n" +
			// 共享密钥文件，不存在则无法启动
			"SKINWALL_KEY_FILE=key.txt\n" +
			// 生成记录；留空则不记录
			"SKINWALL_SQLITE_PATH=databases/skinwall/skinwall.db\n" +
			// ?format=webp 的质量（100 = 无损）
			"SKINWALL_WEBP_QUALITY=100\n",
	)
}

// Init: 在运行根目录创建 config/skinwall/.env 并加载
func Init() {
	base, err := paths.Root()
	if err != nil {
		log.Printf("[skinwall/envinit] %v; skip init", err)
		return
	}

	cfgDir := filepath.Join(base, dirName)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		log.Printf("[skinwall/envinit] mkdir %s: %v", cfgDir, err)
		return
	}

	envPath := filepath.Join(cfgDir, mainEnv)
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, defaultEnv(), 0o644); err != nil {
			log.Printf("[skinwall/envinit] write default env: %v", err)
		} else {
			log.Printf("[skinwall/envinit] created %s", envPath)
		}
	}

	_ = godotenv.Load(envPath)
	_ = godotenv.Overload(filepath.Join(cfgDir, localEnv))
	log.Printf("[skinwall/envinit] loaded %s", cfgDir)
}
