package skinwall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"skinwall/internal/artifact"
	"skinwall/internal/artifact/storage"
	"skinwall/internal/migrate"
	"skinwall/internal/secret"
	"skinwall/internal/skin"
)

var ErrNoLedger = errors.New("skinwall: generation ledger disabled")

type Service struct {
	Cfg    Config
	Store  *artifact.FileStore
	Ledger *storage.SQLite // 可为 nil

	key  string
	webp *TTLCache[[]byte]
}

// NewService 读取密钥、准备目录、打开生成记录，并在返回前完成旧数据迁移。
// 任何一步失败都应视为启动失败。
func NewService(cfg Config) (*Service, error) {
	key, err := secret.Load(cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("skinwall: prepare %s: %w", cfg.Dir, err)
	}

	s := &Service{
		Cfg:   cfg,
		Store: store,
		key:   key,
		webp:  NewTTLCache[[]byte](10*time.Minute, 512),
	}

	if cfg.SQLitePath != "" {
		if s.Ledger, err = storage.Open(cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("skinwall: open ledger: %w", err)
		}
	}

	if cfg.Migrate {
		var rec migrate.Recorder
		if s.Ledger != nil {
			rec = s.Ledger
		}
		if _, err := migrate.Run(context.Background(), cfg.LegacyDir, cfg.Dir, rec); err != nil {
			s.Close()
			return nil, err
		}
	}

	log.Printf("[skinwall] dir=%q legacy=%q ledger=%q webpQuality=%.0f", cfg.Dir, cfg.LegacyDir, cfg.SQLitePath, cfg.WebPQuality)
	return s, nil
}

func (s *Service) Close() error {
	if s.Ledger == nil {
		return nil
	}
	return s.Ledger.Close()
}

func (s *Service) Authorized(key string) bool { return secret.Equal(s.key, key) }

// Create 解码皮肤 -> 生成壁纸/图标 -> 备份式替换。
// 校验错误（skin.IsInvalid）不会触碰磁盘。
func (s *Service) Create(ctx context.Context, xuid int64, skinData string) error {
	img, err := skin.Decode(skinData)
	if err != nil {
		return err
	}
	if err := s.Store.Put(ctx, xuid, skin.Derive(img)); err != nil {
		return err
	}
	if s.Ledger != nil {
		b := img.Bounds()
		if err := s.Ledger.Record(ctx, xuid, storage.SourceCreate, b.Dx(), b.Dy()); err != nil {
			log.Printf("[skinwall] ledger record %d: %v", xuid, err)
		}
	}
	return nil
}

// Path 目录内文件的完整路径
func (s *Service) Path(name string) (string, error) { return s.Store.Open(name) }

// WebP 把存储的 PNG 转成 WebP；按文件名+修改时间缓存
func (s *Service) WebP(name string) ([]byte, error) {
	fp, err := s.Store.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(fp)
	if err != nil {
		return nil, err
	}
	ck := name + "|" + strconv.FormatInt(st.ModTime().UnixNano(), 10) + "|" + strconv.FormatInt(st.Size(), 10)
	if b, ok := s.webp.Get(ck); ok {
		return b, nil
	}

	img, err := imaging.Open(fp)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	opt := &webp.Options{Lossless: s.Cfg.WebPQuality >= 100, Quality: s.Cfg.WebPQuality}
	if err := webp.Encode(&out, img, opt); err != nil {
		return nil, err
	}
	s.webp.Set(ck, out.Bytes())
	return out.Bytes(), nil
}

func (s *Service) Meta(ctx context.Context, xuid int64) (*storage.Generation, error) {
	if s.Ledger == nil {
		return nil, ErrNoLedger
	}
	return s.Ledger.Get(ctx, xuid)
}
