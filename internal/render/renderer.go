// Package render draws tournament boards as PNG images for the live
// web surface.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Frojdholm/reversi-tournament/internal/reversi"
)

// Options carry the per-frame extras around the bare board.
type Options struct {
	// LastMove gets a marker dot on its disc.
	LastMove *reversi.Move
	// Header is the top-left HUD line, usually the pairing.
	Header string
	// Status is the centered HUD line, usually whose turn it is or the
	// final result. Empty hides the panel.
	Status string
}

// BoardRenderer turns a board into an encoded image.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, board reversi.Board, opts Options) ([]byte, error)
}

type feltRenderer struct{}

// NewBoardRenderer returns the felt-and-discs renderer.
func NewBoardRenderer() BoardRenderer { return &feltRenderer{} }

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	discSize     = squareSize - 8
	sideMargin   = 36
	topMargin    = 104
	bottomMargin = 40

	titleHeight    = 36
	statusHeight   = 26
	panelGap       = 12
	gapToBoard     = 20
	panelRadius    = 10
	panelPaddingX  = 22
	shadowOffsetY  = 5
	titleMinWidth  = 280
	countMinWidth  = 90
	statusMinWidth = 150
)

var (
	backgroundColor  = color.RGBA{R: 16, G: 20, B: 24, A: 255}
	feltColor        = color.RGBA{G: 112, B: 74, A: 255}
	gridColor        = color.RGBA{G: 72, B: 48, A: 255}
	starPointColor   = color.NRGBA{G: 56, B: 38, A: 255}
	markerColor      = color.NRGBA{R: 226, G: 62, B: 54, A: 235}
	panelColor       = color.NRGBA{R: 30, G: 36, B: 50, A: 250}
	statusPanelColor = color.NRGBA{R: 36, G: 42, B: 58, A: 245}
	shadowColor      = color.NRGBA{A: 50}
	textPrimary      = color.NRGBA{R: 235, G: 240, B: 250, A: 255}
	statusTextColor  = color.NRGBA{R: 205, G: 212, B: 232, A: 255}
	coordColor       = color.NRGBA{R: 168, G: 190, B: 180, A: 255}
)

func (r *feltRenderer) RenderPNG(ctx context.Context, board reversi.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, board, opts, boardRect)
	drawFelt(img, origin)
	if err := drawDiscs(img, board, origin); err != nil {
		return nil, err
	}
	drawLastMove(img, opts.LastMove, origin)
	drawCoordinates(img, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawFelt(img *image.RGBA, origin image.Point) {
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)
	imagedraw.Draw(img, boardRect, image.NewUniform(feltColor), image.Point{}, imagedraw.Src)

	grid := image.NewUniform(gridColor)
	for i := 0; i <= boardSquares; i++ {
		x := origin.X + i*squareSize
		imagedraw.Draw(img, image.Rect(x, boardRect.Min.Y, x+1, boardRect.Max.Y), grid, image.Point{}, imagedraw.Src)
		y := origin.Y + i*squareSize
		imagedraw.Draw(img, image.Rect(boardRect.Min.X, y, boardRect.Max.X, y+1), grid, image.Point{}, imagedraw.Src)
	}

	// Star points at the 2-2 line crossings, as on club boards.
	for _, p := range []image.Point{{2, 2}, {6, 2}, {2, 6}, {6, 6}} {
		center := image.Point{X: origin.X + p.X*squareSize, Y: origin.Y + p.Y*squareSize}
		drawDot(img, center, 4, starPointColor)
	}
}

func drawDiscs(img *image.RGBA, board reversi.Board, origin image.Point) error {
	inset := (squareSize - discSize) / 2
	for s := reversi.Square(0); s < 64; s++ {
		c := board.At(s)
		if c == reversi.Empty {
			continue
		}
		disc, err := renderDiscImage(c, discSize)
		if err != nil {
			return err
		}
		rect := squareRect(s, origin)
		target := image.Rect(rect.Min.X+inset, rect.Min.Y+inset, rect.Min.X+inset+discSize, rect.Min.Y+inset+discSize)
		imagedraw.Draw(img, target, disc, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawLastMove(img *image.RGBA, m *reversi.Move, origin image.Point) {
	if m == nil {
		return
	}
	rect := squareRect(m.Square, origin)
	center := image.Point{X: rect.Min.X + squareSize/2, Y: rect.Min.Y + squareSize/2}
	drawDot(img, center, squareSize/9, markerColor)
}

func drawCoordinates(img *image.RGBA, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordColor)}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()

	for i := 0; i < boardSquares; i++ {
		rankBaseline := origin.Y + i*squareSize + (squareSize+ascent)/2
		drawCenteredText(drawer, fmt.Sprintf("%d", i+1), origin.X-sideMargin/2, rankBaseline)

		fileCenter := origin.X + i*squareSize + squareSize/2
		fileBaseline := origin.Y + boardSize + ascent + 8
		drawCenteredText(drawer, string(rune('a'+i)), fileCenter, fileBaseline)
	}
}

func drawHUD(img *image.RGBA, board reversi.Board, opts Options, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Header)
	if title == "" {
		title = "reversi"
	}
	countText := fmt.Sprintf("%d : %d", board.Count(reversi.Black), board.Count(reversi.White))
	status := strings.TrimSpace(opts.Status)

	statusBottom := boardRect.Min.Y - gapToBoard
	statusTop := statusBottom - statusHeight
	titleBottom := statusTop - panelGap
	titleTop := titleBottom - titleHeight

	titleWidth := drawer.MeasureString(title).Round() + panelPaddingX*2
	if titleWidth < titleMinWidth {
		titleWidth = titleMinWidth
	}
	countWidth := drawer.MeasureString(countText).Round() + panelPaddingX*2
	if countWidth < countMinWidth {
		countWidth = countMinWidth
	}
	statusWidth := drawer.MeasureString(status).Round() + panelPaddingX*2
	if statusWidth < statusMinWidth {
		statusWidth = statusMinWidth
	}

	if maxTitle := boardRect.Dx() - countWidth - 16; titleWidth > maxTitle {
		titleWidth = maxTitle
	}
	if statusWidth > boardRect.Dx() {
		statusWidth = boardRect.Dx()
	}

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	countRect := image.Rect(boardRect.Max.X-countWidth, titleTop, boardRect.Max.X, titleBottom)
	statusLeft := boardRect.Min.X + (boardRect.Dx()-statusWidth)/2
	statusRect := image.Rect(statusLeft, statusTop, statusLeft+statusWidth, statusBottom)

	shadow := image.Pt(0, shadowOffsetY)
	drawRoundedPanel(img, titleRect.Add(shadow), panelRadius, shadowColor)
	drawRoundedPanel(img, countRect.Add(shadow), panelRadius, shadowColor)
	if status != "" {
		drawRoundedPanel(img, statusRect.Add(shadow), panelRadius, shadowColor)
	}

	drawRoundedPanel(img, titleRect, panelRadius, panelColor)
	drawRoundedPanel(img, countRect, panelRadius, panelColor)
	if status != "" {
		drawRoundedPanel(img, statusRect, panelRadius, statusPanelColor)
	}

	title = truncateWithEllipsis(face, title, titleRect.Dx()-panelPaddingX*2)
	drawCenteredString(drawer, titleRect, title, textPrimary)
	drawCenteredString(drawer, countRect, countText, textPrimary)
	if status != "" {
		status = truncateWithEllipsis(face, status, statusRect.Dx()-panelPaddingX*2)
		drawCenteredString(drawer, statusRect, status, statusTextColor)
	}
}

// squareRect places rank 1 at the top, the usual othello diagram
// orientation.
func squareRect(s reversi.Square, origin image.Point) image.Rectangle {
	x := origin.X + s.File()*squareSize
	y := origin.Y + s.Rank()*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if radius < 0 {
		radius = 0
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	core := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	top := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Min.Y+radius)
	imagedraw.Draw(img, top, fill, image.Point{}, imagedraw.Over)
	bottom := image.Rect(rect.Min.X+radius, rect.Max.Y-radius, rect.Max.X-radius, rect.Max.Y)
	imagedraw.Draw(img, bottom, fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawDot(img, center, radius, clr)
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawDot(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0
	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}
	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * outA * 255.0),
		G: floatToUint8(outG * outA * 255.0),
		B: floatToUint8(outB * outA * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
