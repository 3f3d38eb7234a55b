package main

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/Carmen-Shannon/oxy-volume/engine"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillXOR(t *testing.T) {
	f := volume.NewFrame(volume.Dimensions{16, 16, 16}, 1, make([]byte, 16*16*16))

	fillXOR(f, 0, 0)
	assert.Equal(t, byte(0), f.Data[0])
	// x=15 y=0 z=0
	assert.Equal(t, byte(15), f.Data[15])
	// x=1 y=1 z=1 is below the noise floor
	assert.Equal(t, byte(0), f.Data[1+16+256])

	fillXOR(f, 1, 0)
	assert.Equal(t, byte(255), f.Data[0])

	fillXOR(f, 0, 3)
	assert.Equal(t, byte(0), f.Data[1])
	assert.Equal(t, byte(12), f.Data[9])
}

func TestFillXORSixteenBit(t *testing.T) {
	f := volume.NewFrame(volume.Dimensions{16, 1, 1}, 2, make([]byte, 32))
	fillXOR(f, 0, 0)
	assert.Equal(t, uint16(15*257), binary.LittleEndian.Uint16(f.Data[30:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(f.Data[2:]))
}

func TestProduceDrawsFromPipelinePool(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Demo.Size = 8
	cfg.Demo.Frames = 5
	cfg.Demo.Interval = 0
	cfg.Pool.Capacity = 2

	e, err := engine.NewEngine(cfg, engine.WithStatsInterval(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := produce(ctx, e.Pipeline(), 0, 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	stats := e.Controller().Pool().Stats()
	assert.Equal(t, uint64(4), stats.Requested)
	assert.Equal(t, uint64(1), stats.Allocated)
	assert.Equal(t, map[int]string{0: "xor-0"}, e.Controller().Channels())

	e.Quit()
	assert.NoError(t, e.Run(context.Background()))
}
