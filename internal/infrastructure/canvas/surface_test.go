package canvas

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"spill-bot/internal/domain/entity"
)

func TestNewSurface_Placeholder(t *testing.T) {
	s := NewSurface()
	require.Equal(t, entity.CanvasPlaceholder, s.State())

	frame := s.Snapshot()
	require.Equal(t, image.Rect(0, 0, 800, 600), frame.Bounds())

	r, g, b, _ := frame.At(5, 5).RGBA()
	require.Equal(t, uint32(0xf8), r>>8)
	require.Equal(t, uint32(0xfa), g>>8)
	require.Equal(t, uint32(0xfc), b>>8)
}

func TestSurface_PaintScalesToCanvas(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}

	s := NewSurface()
	s.Paint(src)
	require.Equal(t, entity.CanvasRendered, s.State())

	frame := s.Snapshot()
	for _, p := range []image.Point{{0, 0}, {400, 300}, {799, 599}} {
		r, g, b, _ := frame.At(p.X, p.Y).RGBA()
		require.InDelta(t, 10, float64(r>>8), 1, p)
		require.InDelta(t, 200, float64(g>>8), 1, p)
		require.InDelta(t, 30, float64(b>>8), 1, p)
	}
}

func TestSurface_PaintNilKeepsState(t *testing.T) {
	s := NewSurface()
	s.Paint(nil)
	require.Equal(t, entity.CanvasPlaceholder, s.State())
}

func TestSurface_PaintDemoDeterministic(t *testing.T) {
	a := NewSurface()
	a.PaintDemo()
	b := NewSurface()
	b.PaintDemo()

	require.Equal(t, entity.CanvasRendered, a.State())
	require.Equal(t, a.Snapshot(), b.Snapshot())

	// Центр эллипса красноватый, угол остаётся морем
	r, _, bl, _ := a.Snapshot().At(400, 300).RGBA()
	require.Greater(t, r, bl)
	r, _, bl, _ = a.Snapshot().At(2, 2).RGBA()
	require.Less(t, r, bl)
}

func TestSurface_ClearAfterPaint(t *testing.T) {
	s := NewSurface()
	placeholder := s.Snapshot()

	s.PaintDemo()
	s.Clear()
	require.Equal(t, entity.CanvasPlaceholder, s.State())
	require.Equal(t, placeholder, s.Snapshot())
}

func TestSurface_SnapshotIsCopy(t *testing.T) {
	s := NewSurface()
	frame := s.Snapshot().(*image.RGBA)
	frame.Set(0, 0, color.Black)

	r, _, _, _ := s.Snapshot().At(0, 0).RGBA()
	require.Equal(t, uint32(0xf8), r>>8)
}

func TestEncodePNG(t *testing.T) {
	s := NewSurface()
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, s.Snapshot()))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 800, 600), decoded.Bounds())
}
