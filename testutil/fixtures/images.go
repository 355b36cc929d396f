// =============================================================================
// 📦 测试数据工厂 - 图像测试数据
// =============================================================================
// 提供程序化生成的真实图像字节，用于测试
// =============================================================================
package fixtures

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 🖼️ 图像工厂
// =============================================================================

// TinyPNG 返回 1x1 透明 PNG，字节是真实可解码的图像数据
func TinyPNG() types.Image {
	return SolidPNG(1, 1, color.Transparent)
}

// SolidPNG 返回指定尺寸的纯色 PNG
func SolidPNG(width, height int, c color.Color) types.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(fmt.Sprintf("fixtures: encode png: %v", err))
	}
	return types.NewImage(types.MIMETypePNG, buf.Bytes())
}

// SolidJPEG 返回指定尺寸的纯色 JPEG
func SolidJPEG(width, height int, c color.Color) types.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(fmt.Sprintf("fixtures: encode jpeg: %v", err))
	}
	return types.NewImage(types.MIMETypeJPEG, buf.Bytes())
}

// Gallery 返回 n 张互不相同的纯色 PNG
func Gallery(n int) []types.Image {
	gallery := make([]types.Image, n)
	for i := range gallery {
		gallery[i] = SolidPNG(2, 2, color.RGBA{R: uint8(i * 40), G: uint8(255 - i*40), B: 128, A: 255})
	}
	return gallery
}
