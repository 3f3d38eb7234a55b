package controls

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-volume/common"
	"github.com/Carmen-Shannon/oxy-volume/engine/camera"
	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInput struct {
	onKey    func(uint32)
	onScroll func(float32)
	onDrag   func(float32, float32)
}

func (f *fakeInput) SetKeyDownCallback(cb func(uint32))        { f.onKey = cb }
func (f *fakeInput) SetScrollCallback(cb func(float32))        { f.onScroll = cb }
func (f *fakeInput) SetDragCallback(cb func(float32, float32)) { f.onDrag = cb }

func newTestControls(layers int) (*Controls, *layer.Cursor, camera.Camera) {
	cursor := layer.NewCursor(layer.NewManager(layers, 1))
	cam := camera.NewCamera()
	return NewControls(cursor, cam, WithBrightnessStep(1), WithRangeStep(0.1)), cursor, cam
}

func TestLayerSelection(t *testing.T) {
	c, cursor, _ := newTestControls(3)

	assert.True(t, c.HandleKey(common.Key1+2))
	assert.Equal(t, 2, cursor.Current())

	assert.False(t, c.HandleKey(common.Key1+5))
	assert.Equal(t, 2, cursor.Current())

	assert.True(t, c.HandleKey(common.KeyTab))
	assert.Equal(t, 0, cursor.Current())
}

func TestPhotometryKeys(t *testing.T) {
	c, cursor, _ := newTestControls(2)
	m := cursor.Manager()

	c.HandleKey(common.KeyUp)
	assert.InDelta(t, 2, m.Parameter(0, layer.Brightness), 1e-9)
	assert.InDelta(t, 1, m.Parameter(1, layer.Brightness), 1e-9)

	c.HandleKey(common.KeyS)
	assert.InDelta(t, 0.1, m.Parameter(0, layer.TransferRangeMin), 1e-9)
	assert.InDelta(t, 0.9, m.Parameter(0, layer.TransferRangeMax), 1e-9)

	c.HandleKey(common.KeyRight)
	assert.InDelta(t, 0.2, m.Parameter(0, layer.TransferRangeMin), 1e-9)
	assert.InDelta(t, 1.0, m.Parameter(0, layer.TransferRangeMax), 1e-9)

	c.HandleKey(common.KeyV)
	assert.False(t, m.IsVisible(0))

	c.HandleKey(common.KeyR)
	assert.InDelta(t, 1, m.Parameter(0, layer.Brightness), 1e-9)
	assert.InDelta(t, 0, m.Parameter(0, layer.TransferRangeMin), 1e-9)
	assert.InDelta(t, 1, m.Parameter(0, layer.TransferRangeMax), 1e-9)

	assert.False(t, c.HandleKey(common.KeyEsc))
}

func TestBindRoutesMouseToCamera(t *testing.T) {
	c, _, cam := newTestControls(1)
	in := &fakeInput{}
	c.Bind(in)
	require.NotNil(t, in.onKey)
	require.NotNil(t, in.onScroll)
	require.NotNil(t, in.onDrag)

	in.onScroll(4)
	assert.InDelta(t, camera.DefaultTranslationZ+1, cam.Translation().Z(), 1e-6)

	in.onDrag(100, 0)
	assert.False(t, cam.Rotation().ApproxEqual(mgl32.QuatIdent()))

	in.onKey(common.KeyR)
	assert.InDelta(t, camera.DefaultTranslationZ, cam.Translation().Z(), 1e-6)
	assert.True(t, cam.Rotation().ApproxEqual(mgl32.QuatIdent()))
}
