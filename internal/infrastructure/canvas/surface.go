package canvas

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
)

const PlaceholderText = "Run Detection to see model results here"

var (
	placeholderBackground = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
	placeholderForeground = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
	demoSea               = color.RGBA{R: 0x1e, G: 0x3a, B: 0x5f, A: 0xff}
	demoSpill             = color.NRGBA{R: 239, G: 68, B: 68, A: 150}
	demoLabel             = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Surface холст 800×600, на котором рисуется результат детекции
type Surface struct {
	mu    sync.Mutex
	img   *image.RGBA
	state entity.CanvasState
}

// NewSurface создаёт холст в состоянии заглушки
func NewSurface() *Surface {
	s := &Surface{img: image.NewRGBA(image.Rect(0, 0, entity.CanvasWidth, entity.CanvasHeight))}
	s.Clear()
	return s
}

// Clear рисует заглушку
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	fill(s.img, placeholderBackground)
	drawText(s.img, PlaceholderText, placeholderForeground, centerX(PlaceholderText), entity.CanvasHeight/2)
	s.state = entity.CanvasPlaceholder
}

// Paint растягивает изображение на весь холст. nil игнорируется.
func (s *Surface) Paint(img image.Image) {
	if img == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draw.CatmullRom.Scale(s.img, s.img.Bounds(), img, img.Bounds(), draw.Src, nil)
	s.state = entity.CanvasRendered
}

// PaintDemo рисует условное пятно разлива посреди моря
func (s *Surface) PaintDemo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	fill(s.img, demoSea)
	spill := ellipse{
		center: image.Pt(entity.CanvasWidth/2, entity.CanvasHeight/2),
		rx:     160,
		ry:     90,
	}
	draw.DrawMask(s.img, spill.Bounds(), image.NewUniform(demoSpill), image.Point{}, spill, spill.Bounds().Min, draw.Over)
	drawText(s.img, "Demo: simulated oil spill", demoLabel, 16, entity.CanvasHeight-16)
	s.state = entity.CanvasRendered
}

// Snapshot возвращает копию текущего кадра
func (s *Surface) Snapshot() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

// State возвращает состояние холста
func (s *Surface) State() entity.CanvasState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EncodePNG записывает кадр в формате PNG
func EncodePNG(w io.Writer, frame image.Image) error {
	return png.Encode(w, frame)
}

func fill(dst *image.RGBA, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(dst *image.RGBA, text string, c color.Color, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func centerX(text string) int {
	w := font.MeasureString(basicfont.Face7x13, text).Ceil()
	return (entity.CanvasWidth - w) / 2
}

// ellipse маска-эллипс для draw.DrawMask
type ellipse struct {
	center image.Point
	rx, ry int
}

func (e ellipse) ColorModel() color.Model { return color.AlphaModel }

func (e ellipse) Bounds() image.Rectangle {
	return image.Rect(e.center.X-e.rx, e.center.Y-e.ry, e.center.X+e.rx, e.center.Y+e.ry)
}

func (e ellipse) At(x, y int) color.Color {
	dx := float64(x-e.center.X) + 0.5
	dy := float64(y-e.center.Y) + 0.5
	rx, ry := float64(e.rx), float64(e.ry)
	if dx*dx/(rx*rx)+dy*dy/(ry*ry) <= 1 {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}

var _ port.Surface = (*Surface)(nil)
