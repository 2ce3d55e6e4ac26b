package artifact

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"skinwall/internal/skin"
)

var (
	ErrNotFound = errors.New("artifact: file not found")
	ErrWrite    = errors.New("artifact: write failed")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Repository 产物存取；Put 成功则两个文件都是新的，失败则恢复到调用前
type Repository interface {
	Open(name string) (string, error)
	Put(ctx context.Context, xuid int64, a skin.Artifacts) error
}

// EncodeFunc 图片编码器，测试里可替换
type EncodeFunc func(w io.Writer, img image.Image) error

func encodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// FileStore 单目录平铺存储：{xuid}_wallpaper.png / {xuid}_icon.png
type FileStore struct {
	Dir    string
	Encode EncodeFunc

	locks *keyLocks
}

var _ Repository = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{Dir: dir, Encode: encodePNG, locks: newKeyLocks()}, nil
}

func (s *FileStore) path(name string) string { return filepath.Join(s.Dir, name) }

// Open 返回目录内文件的完整路径；不允许子路径
func (s *FileStore) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." || name == "." {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	fp := s.path(name)
	st, err := os.Stat(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fp, nil
}

// Put 备份旧文件 -> 写新文件 -> 成功删备份 / 失败回滚
func (s *FileStore) Put(ctx context.Context, xuid int64, a skin.Artifacts) error {
	// 注意：nil *image.NRGBA 装进 image.Image 后不等于 nil，必须在具体类型上判断
	if a.Wallpaper == nil || a.Icon == nil {
		return fmt.Errorf("%w: missing image", ErrWrite)
	}

	unlock := s.locks.Lock(xuid)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	imgs := map[Kind]image.Image{KindWallpaper: a.Wallpaper, KindIcon: a.Icon}
	st := make(map[Kind]*opState, len(Kinds))

	// 编码器 panic 时同样回滚
	committed := false
	defer func() {
		if !committed {
			s.rollback(xuid, st)
		}
	}()

	for _, k := range Kinds {
		st[k] = &opState{}
		backed, err := s.backup(xuid, k)
		if err != nil {
			return fmt.Errorf("%w: backup %s: %v", ErrWrite, k, err)
		}
		st[k].backedUp = backed
	}

	for _, k := range Kinds {
		st[k].touched = true
		if err := s.write(FileName(xuid, k), imgs[k]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWrite, k, err)
		}
	}
	committed = true

	for _, k := range Kinds {
		if err := removeIfExists(s.path(BackupName(xuid, k))); err != nil {
			log.Printf("[artifact] remove backup %s: %v", BackupName(xuid, k), err)
		}
	}
	return nil
}

type opState struct {
	backedUp bool // 主文件已改名为 _old
	touched  bool // 已尝试写入主文件
}

// backup 主文件存在时改名为 _old（先删掉残留的 _old）
func (s *FileStore) backup(xuid int64, k Kind) (bool, error) {
	primary := s.path(FileName(xuid, k))
	if _, err := os.Stat(primary); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	old := s.path(BackupName(xuid, k))
	if err := removeIfExists(old); err != nil {
		return false, err
	}
	if err := os.Rename(primary, old); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) write(name string, img image.Image) error {
	f, err := os.Create(s.path(name))
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
	}()
	if err := s.Encode(f, img); err != nil {
		return err
	}
	closed = true
	return f.Close()
}

// rollback 删掉本次写过的（可能残缺的）主文件，有备份则改名回去；
// 首次生成失败时主文件保持不存在
func (s *FileStore) rollback(xuid int64, st map[Kind]*opState) {
	for _, k := range Kinds {
		o := st[k]
		if o == nil || (!o.backedUp && !o.touched) {
			continue
		}
		primary := s.path(FileName(xuid, k))
		if err := removeIfExists(primary); err != nil {
			log.Printf("[artifact] rollback remove %s: %v", primary, err)
			continue
		}
		if !o.backedUp {
			continue
		}
		if err := os.Rename(s.path(BackupName(xuid, k)), primary); err != nil {
			log.Printf("[artifact] rollback restore %s: %v", primary, err)
		}
	}
}

func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
