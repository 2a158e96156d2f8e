package presenter

import (
	"image"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"
)

// SnapshotSource supplies the committed overlay state. The presenter never
// triggers detection; it only reads what the scheduler already committed.
type SnapshotSource interface {
	Snapshot() overlay.Snapshot
}

// OverlayView displays a painted overlay frame.
type OverlayView interface {
	ShowOverlay(img image.Image)
}

// OverlayPresenter paints the latest snapshot once per render tick and
// pushes it to the view when something changed.
type OverlayPresenter struct {
	source  SnapshotSource
	painter *images.Painter
	model   *model.RenderModel
	view    OverlayView
}

func NewOverlayPresenter(source SnapshotSource, painter *images.Painter, m *model.RenderModel, view OverlayView) *OverlayPresenter {
	if m == nil {
		m = model.NewRenderModel()
	}
	return &OverlayPresenter{source: source, painter: painter, model: m, view: view}
}

// Render reads one snapshot and repaints when it differs from the last one.
func (p *OverlayPresenter) Render() {
	if p == nil || p.source == nil || p.painter == nil || p.view == nil {
		return
	}
	snap := p.source.Snapshot()
	if !p.model.NeedsPaint(snap) {
		return
	}
	p.view.ShowOverlay(p.painter.Paint(snap))
}

// Invalidate forces a repaint on the next Render, e.g. after the window was
// re-mapped.
func (p *OverlayPresenter) Invalidate() {
	if p != nil {
		p.model.Invalidate()
	}
}
