package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	SourceCreate  = "create"
	SourceMigrate = "migrate"
)

// Generation 某个 xuid 最近一次生成的记录；文件本身才是真相，这里只做索引
type Generation struct {
	XUID        int64     `json:"xuid"`
	Source      string    `json:"source"`
	SkinWidth   int       `json:"skinWidth"`
	SkinHeight  int       `json:"skinHeight"`
	Generations int       `json:"generations"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type SQLite struct{ DB *sql.DB }

func Open(dsn string) (*SQLite, error) {
	if p := filePath(dsn); p != "" && p != ":memory:" {
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.DB.Close() }

func (s *SQLite) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS generations (
  xuid         INTEGER PRIMARY KEY,
  source       TEXT NOT NULL,
  skin_width   INTEGER NOT NULL DEFAULT 0,
  skin_height  INTEGER NOT NULL DEFAULT 0,
  generations  INTEGER NOT NULL DEFAULT 0,
  created_at   DATETIME NOT NULL,
  updated_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_updated ON generations(updated_at);
`
	_, err := s.DB.Exec(ddl)
	return err
}

// Record 新增或累加一次生成
func (s *SQLite) Record(ctx context.Context, xuid int64, source string, w, h int) error {
	now := time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO generations(xuid, source, skin_width, skin_height, generations, created_at, updated_at)
VALUES(?,?,?,?,1,?,?)
ON CONFLICT(xuid) DO UPDATE SET
  source=excluded.source,
  skin_width=excluded.skin_width,
  skin_height=excluded.skin_height,
  generations=generations+1,
  updated_at=excluded.updated_at
`, xuid, source, w, h, now, now)
	return err
}

// Get 未找到时返回 (nil, nil)
func (s *SQLite) Get(ctx context.Context, xuid int64) (*Generation, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT xuid, source, skin_width, skin_height, generations, created_at, updated_at
FROM generations WHERE xuid=?`, xuid)
	var g Generation
	if err := row.Scan(&g.XUID, &g.Source, &g.SkinWidth, &g.SkinHeight, &g.Generations, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// 兼容 file:xxx.db?cache=shared 形式的 DSN
func filePath(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		rest := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(rest, '?'); i >= 0 {
			rest = rest[:i]
		}
		return strings.TrimPrefix(rest, "///")
	}
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}
