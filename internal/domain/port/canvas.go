package port

import (
	"image"

	"spill-bot/internal/domain/entity"
)

// Surface холст фиксированного размера для результата
type Surface interface {
	Clear()
	Paint(img image.Image)
	PaintDemo()
	Snapshot() image.Image
	State() entity.CanvasState
}
