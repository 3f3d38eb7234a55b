package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/Carmen-Shannon/oxy-volume/engine"
	"github.com/Carmen-Shannon/oxy-volume/engine/processor"
	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// Demo streams synthetic volumes through the engine.
func Demo(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	applyDemoFlags(ctx, cfg)

	bytesPerVoxel := ctx.Int("bpv")
	if bytesPerVoxel != 1 && bytesPerVoxel != 2 {
		return fmt.Errorf("bpv must be 1 or 2, got %d", bytesPerVoxel)
	}
	if cfg.Demo.Channels < 1 || cfg.Demo.Size < 1 {
		return errors.New("demo needs at least one channel and a positive size")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	options := []engine.EngineBuilderOption{engine.WithRegistry(reg)}
	if ctx.Bool("analyse") {
		options = append(options,
			engine.WithProcessors(processor.CenterOfMass{}, processor.IntensityStats{}),
			engine.WithProcessorListener(func(name string, channel int, result any) {
				logger.Infof("channel %d %s: %+v", channel, name, result)
			}),
		)
	}

	e, err := engine.NewEngine(cfg, options...)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Address, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	e.SetVisible(ctx.Bool("show"))

	runErr := make(chan error, 1)
	go func() {
		runErr <- e.Run(runCtx)
	}()

	start := time.Now()
	sent := make([]int, cfg.Demo.Channels)
	g, gctx := errgroup.WithContext(runCtx)
	for channel := range cfg.Demo.Channels {
		g.Go(func() error {
			n, err := produce(gctx, e.Pipeline(), channel, bytesPerVoxel, cfg)
			sent[channel] = n
			return err
		})
	}
	produceErr := g.Wait()
	if errors.Is(produceErr, context.Canceled) {
		produceErr = nil
	}
	displaySummary(e, sent, time.Since(start))

	if ctx.Bool("show") && runCtx.Err() == nil {
		logger.Notice("all frames sent, press ctrl-c to exit")
		<-runCtx.Done()
	}
	e.Quit()

	return errors.Join(produceErr, <-runErr)
}

func applyDemoFlags(ctx *cli.Context, cfg *config.Config) {
	if v := ctx.String("backend"); v != "" {
		cfg.Renderer.Backend = v
	}
	if v := ctx.Int("channels"); v > 0 {
		cfg.Demo.Channels = v
	}
	if v := ctx.Int("size"); v > 0 {
		cfg.Demo.Size = v
	}
	if v := ctx.Int("frames"); v > 0 {
		cfg.Demo.Frames = v
	}
}

// produce sends cfg.Demo.Frames frames of one channel into head and returns how many it sent.
func produce(ctx context.Context, head relay.Stage, channel, bytesPerVoxel int, cfg *config.Config) (int, error) {
	size := uint64(cfg.Demo.Size)
	dims := volume.Dimensions{size, size, size}

	for t := range cfg.Demo.Frames {
		f, err := requestFrame(ctx, head, dims, bytesPerVoxel)
		if err != nil {
			return t, err
		}
		fillXOR(f, channel, t)
		f.ChannelID = channel
		f.ChannelName = fmt.Sprintf("xor-%d", channel)
		f.TimeIndex = int64(t)

		if err := head.Consume(ctx, f); err != nil {
			return t, fmt.Errorf("channel %d frame %d: %w", channel, t, err)
		}

		if cfg.Demo.Interval > 0 {
			select {
			case <-ctx.Done():
				return t + 1, ctx.Err()
			case <-time.After(cfg.Demo.Interval):
			}
		}
	}
	return cfg.Demo.Frames, nil
}

// requestFrame draws a frame from the pipeline's pool when it matches the voxel format and
// allocates one otherwise, which happens before the first renderer exists.
func requestFrame(ctx context.Context, head relay.Stage, dims volume.Dimensions, bytesPerVoxel int) (*volume.Frame, error) {
	if provider, ok := head.(relay.PoolProvider); ok {
		if pool := provider.Pool(); pool != nil && pool.BytesPerVoxel() == bytesPerVoxel {
			f, err := pool.Request(ctx, dims)
			if err == nil || !errors.Is(err, volume.ErrPoolClosed) {
				return f, err
			}
		}
	}
	return volume.NewFrame(dims, bytesPerVoxel, make([]byte, dims.Voxels()*uint64(bytesPerVoxel))), nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Noticef("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func displaySummary(e engine.Engine, sent []int, elapsed time.Duration) {
	stats := e.Stats()
	channels := e.Controller().Channels()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Channel", "Name", "Frames sent"})
	total := 0
	for channel, n := range sent {
		table.Append([]string{
			fmt.Sprintf("%d", channel),
			channels[channel],
			fmt.Sprintf("%d", n),
		})
		total += n
	}
	table.SetFooter([]string{"TOTAL", elapsed.Round(time.Millisecond).String(), fmt.Sprintf("%d", total)})
	table.Render()

	logger.Noticef("demo summary\n%s", buf.String())
	logger.Noticef("renderer: state=%s layers=%d bpv=%d frames=%d uploads=%d upload errors=%d reconfigurations=%d",
		stats.State, stats.Layers, stats.BytesPerVoxel, stats.Frames.Frames, stats.Frames.Uploads,
		stats.Frames.UploadErrors, stats.Reconfigurations)
}
