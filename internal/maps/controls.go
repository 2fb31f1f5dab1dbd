package maps

import "log"

// BaseControl is one radio-exclusive base layer selector.
type BaseControl struct {
	ID       string
	Title    string
	Selected bool
}

// OverlayControl is one independent overlay toggle. Locked controls render
// disabled and ignore interaction.
type OverlayControl struct {
	ID      string
	Title   string
	Visible bool
	Locked  bool
}

// ControlBinder keeps UI controls in sync with registry state. It only
// reads registry snapshots and requests mutations through registry
// operations; it never touches live layers.
type ControlBinder struct {
	reg *Registry
}

// NewControlBinder creates a binder over reg.
func NewControlBinder(reg *Registry) *ControlBinder {
	return &ControlBinder{reg: reg}
}

// Controls returns the current control set in registration order.
func (b *ControlBinder) Controls() ([]BaseControl, []OverlayControl) {
	var bases []BaseControl
	var overlays []OverlayControl
	for _, l := range b.reg.Snapshot() {
		switch l.Descriptor.Category {
		case CategoryBase:
			bases = append(bases, BaseControl{
				ID:       l.Descriptor.ID,
				Title:    l.Descriptor.Title,
				Selected: l.Visible,
			})
		case CategoryOverlay:
			overlays = append(overlays, OverlayControl{
				ID:      l.Descriptor.ID,
				Title:   l.Descriptor.Title,
				Visible: l.Visible,
				Locked:  l.Descriptor.AlwaysOn,
			})
		}
	}
	return bases, overlays
}

// SelectBase handles a click on a base control.
func (b *ControlBinder) SelectBase(id string) {
	b.reg.SetBaseVisible(id)
}

// ToggleOverlay handles a click on an overlay control, applying the inverse
// of its current visibility. Clicks on locked controls are ignored.
func (b *ControlBinder) ToggleOverlay(id string) {
	l, ok := b.reg.Get(id)
	if !ok {
		log.Printf("[controls] toggle for unknown overlay %q", id)
		return
	}
	if l.Descriptor.AlwaysOn {
		// locked control, inert
		return
	}
	if err := b.reg.SetOverlayVisible(id, !l.Visible); err != nil {
		log.Printf("[controls] toggle %q refused: %v", id, err)
	}
}
