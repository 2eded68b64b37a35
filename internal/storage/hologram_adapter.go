package storage

import (
	"context"
	"time"

	"github.com/meshrepublic/kudzu/internal/hologram"
)

// HologramStorer adapts a Controller to hologram.Storer, the narrow
// durability contract a hologram's RecordTrace/ReceiveTrace hand off to
// without that package needing to know this package's Record shape.
type HologramStorer struct {
	Controller *Controller
	Clock      func() time.Time
}

// NewHologramStorer wraps ctrl for use as a hologram.Storer.
func NewHologramStorer(ctrl *Controller) *HologramStorer {
	return &HologramStorer{Controller: ctrl, Clock: time.Now}
}

func (s *HologramStorer) Store(ctx context.Context, r hologram.StoreRequest) error {
	record := FromTrace(r.Trace, r.HologramID, s.Clock())
	record.Importance = r.Importance
	return s.Controller.Store(ctx, record)
}
