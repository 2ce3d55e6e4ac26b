package skin

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	WallpaperWidth  = 854
	WallpaperHeight = 480
	FaceSize        = 222
	IconSize        = 8
)

// FaceRect 脸部区域：固定取 (8,8) 起的 8x8，与皮肤尺寸无关
var FaceRect = image.Rect(8, 8, 16, 16)

// Artifacts 一次生成得到的壁纸与图标
type Artifacts struct {
	Wallpaper *image.NRGBA
	Icon      *image.NRGBA
}

// Face 裁出脸部区域，坐标归零；超出原图的部分为全透明
func Face(img image.Image) *image.NRGBA {
	canvas := imaging.New(FaceRect.Dx(), FaceRect.Dy(), color.NRGBA{})
	return imaging.Paste(canvas, img, image.Point{}.Sub(FaceRect.Min))
}

// BackgroundColor 脸部平均色向白色混合 50%，整数截断
func BackgroundColor(face *image.NRGBA) color.NRGBA {
	var r, g, b, n int
	bb := face.Bounds()
	for y := bb.Min.Y; y < bb.Max.Y; y++ {
		i := face.PixOffset(bb.Min.X, y)
		for x := bb.Min.X; x < bb.Max.X; x++ {
			r += int(face.Pix[i])
			g += int(face.Pix[i+1])
			b += int(face.Pix[i+2])
			n++
			i += 4
		}
	}
	if n == 0 {
		return color.NRGBA{255, 255, 255, 255}
	}
	// (sum/n + 255) / 2 的整数形式
	blend := func(sum int) uint8 { return uint8((sum + 255*n) / (2 * n)) }
	return color.NRGBA{R: blend(r), G: blend(g), B: blend(b), A: 255}
}

// Icon 脸部最近邻缩放到 8x8
func Icon(face image.Image) *image.NRGBA {
	return imaging.Resize(face, IconSize, IconSize, imaging.NearestNeighbor)
}

// Derive 生成壁纸和图标，纯函数，不落盘
func Derive(img image.Image) Artifacts {
	face := Face(img)

	bg := imaging.New(WallpaperWidth, WallpaperHeight, BackgroundColor(face))
	big := imaging.Resize(face, FaceSize, FaceSize, imaging.NearestNeighbor)
	pos := image.Pt((WallpaperWidth-FaceSize)/2, (WallpaperHeight-FaceSize)/2)
	// over 合成：半透明像素只混合颜色，壁纸始终不透明
	wallpaper := imaging.Overlay(bg, big, pos, 1.0)

	return Artifacts{Wallpaper: wallpaper, Icon: Icon(face)}
}
