// Package migrate 把 1.x 的 uploads/wallpaper-<id>.png 转成新的双文件布局。
// 只在启动时跑一次；任何错误都应让进程退出，不允许半迁移状态下提供服务。
package migrate

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"skinwall/internal/artifact/storage"
	"skinwall/internal/skin"
)

const (
	legacyPrefix = "wallpaper-"
	legacySuffix = ".png"
)

// Recorder 迁移成功的 xuid 写入生成记录；可为 nil
type Recorder interface {
	Record(ctx context.Context, xuid int64, source string, w, h int) error
}

// LegacyID 从 wallpaper-<id>.png 中取出 id；不匹配返回 false
func LegacyID(name string) (string, bool) {
	if !strings.HasPrefix(name, legacyPrefix) || !strings.HasSuffix(name, legacySuffix) {
		return "", false
	}
	// 与 1.x 一致：取第一个 '-' 之后、到下一个 '-' 或 '.' 为止
	rest := strings.TrimPrefix(name, legacyPrefix)
	if i := strings.IndexAny(rest, "-."); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// Run 迁移 legacyDir 下的全部旧壁纸到 dir，成功后删除 legacyDir。
// legacyDir 不存在时什么也不做。
func Run(ctx context.Context, legacyDir, dir string, rec Recorder) (int, error) {
	st, err := os.Stat(legacyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("migrate: stat %s: %w", legacyDir, err)
	}
	if !st.IsDir() {
		return 0, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("migrate: mkdir %s: %w", dir, err)
	}

	entries, err := os.ReadDir(legacyDir)
	if err != nil {
		return 0, fmt.Errorf("migrate: read %s: %w", legacyDir, err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := LegacyID(e.Name())
		if !ok {
			continue
		}
		if err := migrateOne(ctx, filepath.Join(legacyDir, e.Name()), dir, id, rec); err != nil {
			return n, fmt.Errorf("migrate: %s: %w", e.Name(), err)
		}
		log.Printf("[migrate] converted %s -> %s_wallpaper.png, %s_icon.png", e.Name(), id, id)
		n++
	}

	if err := os.RemoveAll(legacyDir); err != nil {
		return n, fmt.Errorf("migrate: remove %s: %w", legacyDir, err)
	}
	log.Printf("[migrate] done: %d file(s), removed %s", n, legacyDir)
	return n, nil
}

func migrateOne(ctx context.Context, src, dir, id string, rec Recorder) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	icon := skin.Icon(skin.Face(img))
	if err := imaging.Save(icon, filepath.Join(dir, id+"_icon.png")); err != nil {
		return fmt.Errorf("save icon: %w", err)
	}
	// 旧壁纸原样保留，不走新的 854x480 生成流程
	if err := os.WriteFile(filepath.Join(dir, id+"_wallpaper.png"), raw, 0o644); err != nil {
		return fmt.Errorf("save wallpaper: %w", err)
	}

	if rec == nil {
		return nil
	}
	xuid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		log.Printf("[migrate] %s: non-numeric id, not recorded", id)
		return nil
	}
	b := img.Bounds()
	return rec.Record(ctx, xuid, storage.SourceMigrate, b.Dx(), b.Dy())
}
