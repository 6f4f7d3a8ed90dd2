package cart

import (
	"sync"
	"time"
)

// DefaultAutoClose is how long the drawer stays open after an item was added.
const DefaultAutoClose = 5 * time.Second

// Drawer is the open/closed state of a cart summary overlay. While open, an
// increase of the cart's total quantity arms an auto-close timer; pointer
// entry or closing cancels it.
type Drawer struct {
	mu        sync.Mutex
	open      bool
	lastTotal int
	autoClose time.Duration
	timer     *time.Timer
	// gen invalidates timers that fired after being cancelled.
	gen      uint64
	onChange func(open bool)
}

// NewDrawer returns a closed drawer. autoClose <= 0 selects DefaultAutoClose.
func NewDrawer(autoClose time.Duration, onChange func(open bool)) *Drawer {
	if autoClose <= 0 {
		autoClose = DefaultAutoClose
	}
	return &Drawer{autoClose: autoClose, onChange: onChange}
}

func (d *Drawer) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// TimerActive reports whether an auto-close countdown is pending.
func (d *Drawer) TimerActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Drawer) Open() {
	d.setOpen(true)
}

func (d *Drawer) Close() {
	d.setOpen(false)
}

func (d *Drawer) Toggle() {
	d.mu.Lock()
	next := !d.open
	d.mu.Unlock()
	d.setOpen(next)
}

// PointerEnter cancels a pending auto-close; the drawer stays open.
func (d *Drawer) PointerEnter() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Track records the cart's current total quantity. When the drawer is open
// and the total grew since the last call, the auto-close timer is (re)armed.
func (d *Drawer) Track(total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open && total > d.lastTotal {
		d.armLocked()
	}
	d.lastTotal = total
}

// Stop cancels any pending timer. The drawer keeps its state.
func (d *Drawer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Drawer) setOpen(open bool) {
	d.mu.Lock()
	if !open {
		d.cancelLocked()
	}
	changed := d.open != open
	d.open = open
	d.mu.Unlock()

	if changed && d.onChange != nil {
		d.onChange(open)
	}
}

func (d *Drawer) armLocked() {
	d.cancelLocked()
	gen := d.gen
	d.timer = time.AfterFunc(d.autoClose, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.Close()
	})
}

func (d *Drawer) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
