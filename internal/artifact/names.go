package artifact

import "strconv"

// Kind 产物类型
type Kind string

const (
	KindWallpaper Kind = "wallpaper"
	KindIcon      Kind = "icon"
)

// Kinds 写入顺序：先壁纸后图标
var Kinds = []Kind{KindWallpaper, KindIcon}

func FileName(xuid int64, k Kind) string {
	return strconv.FormatInt(xuid, 10) + "_" + string(k) + ".png"
}

func BackupName(xuid int64, k Kind) string {
	return strconv.FormatInt(xuid, 10) + "_" + string(k) + "_old.png"
}

func WallpaperName(xuid int64) string { return FileName(xuid, KindWallpaper) }
func IconName(xuid int64) string      { return FileName(xuid, KindIcon) }
