package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

//go:embed assets/discs/*.svg
var discFiles embed.FS

type discCacheKey struct {
	color reversi.Color
	size  int
}

var (
	discCache   = map[discCacheKey]image.Image{}
	discCacheMu sync.RWMutex
)

// renderDiscImage rasterizes the embedded disc art at the given pixel
// size. Results are cached per color and size; the cache never holds
// more than a handful of entries because sizes come from the fixed
// layout.
func renderDiscImage(c reversi.Color, size int) (image.Image, error) {
	key := discCacheKey{color: c, size: size}

	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	name := discAssetName(c)
	data, err := discFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read disc asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()

	return img, nil
}

func discAssetName(c reversi.Color) string {
	if c == reversi.White {
		return "assets/discs/white.svg"
	}
	return "assets/discs/black.svg"
}
