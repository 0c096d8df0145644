package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	tooltipBorder = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	tooltipText   = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	cursorColor   = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

const (
	tooltipPad    = 8
	tooltipOffset = 10
	activeDotSize = 4
)

// Tooltip returns a copy of the chart with the hover cursor, an active dot and
// a tooltip box drawn for the i-th point.
func (c *Chart) Tooltip(i int) (image.Image, error) {
	p, ok := c.Point(i)
	if !ok {
		return nil, &RenderError{Err: fmt.Errorf("no point at index %d", i)}
	}

	b := c.img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, c.img, b.Min, draw.Src)

	// Cursor line across the plot area
	cursor := image.Rect(p.X, c.plot.Min.Y, p.X+1, c.plot.Max.Y)
	draw.Draw(rgba, cursor, image.NewUniform(cursorColor), image.Point{}, draw.Over)

	dot := image.Rect(p.X-activeDotSize, p.Y-activeDotSize, p.X+activeDotSize+1, p.Y+activeDotSize+1)
	draw.Draw(rgba, dot, image.NewUniform(lineColor(c)), image.Point{}, draw.Over)

	lines := []string{p.Timestamp, "value : " + FormatValue(p.Value)}
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: rgba, Src: image.NewUniform(tooltipText), Face: face}

	var width int
	for _, line := range lines {
		if w := dr.MeasureString(line).Ceil(); w > width {
			width = w
		}
	}
	lineHeight := face.Metrics().Height.Ceil()
	boxW := width + 2*tooltipPad
	boxH := len(lines)*lineHeight + 2*tooltipPad

	// Right of the point unless that runs off the canvas
	x := p.X + tooltipOffset
	if x+boxW > b.Max.X {
		x = p.X - tooltipOffset - boxW
	}
	if x < b.Min.X {
		x = b.Min.X
	}
	y := p.Y - boxH/2
	if y+boxH > b.Max.Y {
		y = b.Max.Y - boxH
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}

	box := image.Rect(x, y, x+boxW, y+boxH)
	draw.Draw(rgba, box, image.NewUniform(tooltipBorder), image.Point{}, draw.Src)
	draw.Draw(rgba, box.Inset(1), image.NewUniform(color.White), image.Point{}, draw.Src)

	baseline := y + tooltipPad + face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		dr.Dot = fixed.Point26_6{X: fixed.I(x + tooltipPad), Y: fixed.I(baseline)}
		dr.DrawString(line)
		baseline += lineHeight
	}
	return rgba, nil
}

func lineColor(c *Chart) color.Color {
	if c.lineColor != nil {
		return c.lineColor
	}
	return tooltipText
}
