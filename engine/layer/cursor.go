package layer

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
)

// Cursor routes unindexed parameter calls to a selectable current layer of a Manager.
// It is meant for interactive controls; producers should always address layers explicitly.
type Cursor struct {
	manager Manager
	current atomic.Int64
}

// NewCursor creates a Cursor over m with layer 0 selected.
//
// Parameters:
//   - m: the manager to route calls to
//
// Returns:
//   - *Cursor: the new cursor
func NewCursor(m Manager) *Cursor {
	return &Cursor{manager: m}
}

// Manager returns the manager the cursor routes to.
func (c *Cursor) Manager() Manager {
	return c.manager
}

// SetCurrent selects the current layer. Out of range indices panic.
func (c *Cursor) SetCurrent(index int) {
	if index < 0 || index >= c.manager.Count() {
		panic(fmt.Sprintf("layer: index %d out of range [0,%d)", index, c.manager.Count()))
	}
	c.current.Store(int64(index))
}

// Current returns the selected layer index.
func (c *Cursor) Current() int {
	return int(c.current.Load())
}

// Next selects the following layer, wrapping around after the last one.
func (c *Cursor) Next() int {
	next := (c.Current() + 1) % c.manager.Count()
	c.current.Store(int64(next))
	return next
}

func (c *Cursor) SetBrightness(v float64) {
	c.manager.SetParameter(c.Current(), Brightness, v)
}

func (c *Cursor) Brightness() float64 {
	return c.manager.Parameter(c.Current(), Brightness)
}

func (c *Cursor) AddBrightness(delta float64) {
	c.manager.AddBrightness(c.Current(), delta)
}

func (c *Cursor) SetGamma(v float64) {
	c.manager.SetParameter(c.Current(), Gamma, v)
}

func (c *Cursor) Gamma() float64 {
	return c.manager.Parameter(c.Current(), Gamma)
}

func (c *Cursor) SetQuality(v float64) {
	c.manager.SetParameter(c.Current(), Quality, v)
}

func (c *Cursor) Quality() float64 {
	return c.manager.Parameter(c.Current(), Quality)
}

func (c *Cursor) SetDithering(v float64) {
	c.manager.SetParameter(c.Current(), Dithering, v)
}

func (c *Cursor) SetTransferFunctionRange(lo, hi float64) {
	c.manager.SetTransferFunctionRange(c.Current(), lo, hi)
}

func (c *Cursor) AddTransferFunctionRangePosition(delta float64) {
	c.manager.AddTransferFunctionRangePosition(c.Current(), delta)
}

func (c *Cursor) AddTransferFunctionRangeWidth(delta float64) {
	c.manager.AddTransferFunctionRangeWidth(c.Current(), delta)
}

func (c *Cursor) SetTransferFunction(tf transfer.Function) {
	c.manager.SetTransferFunction(c.Current(), tf)
}

func (c *Cursor) SetVisible(visible bool) {
	c.manager.SetVisible(c.Current(), visible)
}

// ToggleVisible flips the visibility of the current layer and returns the new value.
func (c *Cursor) ToggleVisible() bool {
	i := c.Current()
	v := !c.manager.IsVisible(i)
	c.manager.SetVisible(i, v)
	return v
}
