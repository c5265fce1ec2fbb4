// HUD text rendering: a glyph atlas plus a triangle-list vertex builder
// adapted from the teacher's TextRenderer (voxelrt/rt/core/text_renderer.go),
// narrowed to one line of text, the Stats line (fps, frameTime,
// frameCount, sampleCount), instead of the teacher's general
// multi-item text-item list. Renderer.Frame does not draw this text;
// nothing in this package uploads the atlas or vertices to the GPU.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// GlyphInfo is one baked glyph's atlas UV rect and layout metrics.
type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// TextRenderer bakes a single-page glyph atlas for the printable ASCII
// range and builds vertex lists against it.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
}

const atlasSize = 512

// NewTextRenderer parses an OpenType/TrueType font and bakes its
// printable-ASCII glyphs into one atlas texture.
func NewTextRenderer(fontPath string, fontSize float64) (*TextRenderer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("render: read font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &TextRenderer{AtlasImage: atlas, Glyphs: glyphs, Face: face}, nil
}

// BuildVertices lays out text starting at pixel position (posX, posY),
// origin top-left, and returns a triangle-list vertex buffer in clip
// space ([-1, 1], Y flipped), 6 vertices per glyph.
func (tr *TextRenderer) BuildVertices(text string, posX, posY, scale float32, color [4]float32, screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(text)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := tr.Face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	startX := posX
	curX := posX
	curY := posY + ascent*scale

	for _, r := range text {
		if r == '\n' {
			curX = startX
			curY += lineHeight * scale
			continue
		}

		g, ok := tr.Glyphs[r]
		if !ok {
			continue
		}

		x0 := (curX+g.Off[0]*scale)/sw*2.0 - 1.0
		y0 := 1.0 - (curY+g.Off[1]*scale)/sh*2.0
		x1 := (curX+(g.Off[0]+g.Size[0])*scale)/sw*2.0 - 1.0
		y1 := 1.0 - (curY+(g.Off[1]+g.Size[1])*scale)/sh*2.0

		vertices = append(vertices,
			TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: color},
			TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: color},
			TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: color},
			TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: color},
			TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: color},
			TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: color},
		)

		curX += g.Adv * scale
	}

	return vertices
}

// StatsLine formats Stats as a one-line HUD string.
func StatsLine(s Stats) string {
	return fmt.Sprintf("fps %.1f  frame %.2fms  #%d  spp %d", s.FPS, s.FrameTime*1000.0, s.FrameCount, s.SampleCount)
}
