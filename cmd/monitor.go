package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/internal/metrics"
	"github.com/wavesurfer/mctg/internal/mirror"
)

var monitorFlags = struct {
	mirror  bool
	metrics string
}{}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Subscribe to all electrodes and log every notification and telegraph until interrupted.",
	Run:   runWithClient(monitor),
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorFlags.mirror, "mirror", false, "mirror every telegraph to the configured Modbus server")
	monitorCmd.Flags().StringVar(&monitorFlags.metrics, "metrics", "", "serve /metrics on this address")
	rootCmd.AddCommand(monitorCmd)
}

func monitor(ctx context.Context, c *client.Client, _ *cobra.Command, _ []string) {
	c.Notify(new(messageLogger))
	c.Notify(metrics.NewTrackerListener())

	metricsAddr := cfg.Metrics.Listen
	if monitorFlags.metrics != "" {
		metricsAddr = monitorFlags.metrics
	}
	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, c)
	}

	if monitorFlags.mirror || cfg.Mirror.Enabled {
		writer, err := mirror.NewEndpointClient(mirror.EndpointConfig{
			Endpoint: cfg.Mirror.Endpoint,
			Timeout:  cfg.Mirror.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Str("endpoint", cfg.Mirror.Endpoint).Msg("cannot connect to the modbus server")
		}
		defer writer.Close()
		c.Notify(mirror.New(writer, uint8(cfg.Mirror.UnitID), uint16(cfg.Mirror.BaseAddress)))
		log.Info().Str("endpoint", cfg.Mirror.Endpoint).Int("unit_id", cfg.Mirror.UnitID).Msg("mirroring telegraphs")
	}

	ids, err := c.GetAllElectrodeIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot collect electrode ids")
	}
	if len(ids) == 0 {
		log.Warn().Msg("no electrode answered, waiting for reconnects")
	}
	for _, id := range ids {
		if err := c.RequestOpenConnection(id); err != nil {
			log.Error().Err(err).Stringer("id", id).Msg("cannot open connection")
		}
	}

	<-ctx.Done()

	for _, id := range ids {
		if err := c.RequestCloseConnection(id); err != nil {
			log.Error().Err(err).Stringer("id", id).Msg("cannot close connection")
		}
	}
}

type messageLogger struct{}

func (l *messageLogger) Notification(n client.Notification) {
	log.Debug().Stringer("notification", n).Msg("received")
}

func (l *messageLogger) ElectrodeIdentified(id client.ElectrodeID) {
	log.Info().Stringer("id", id).Msg("electrode identified")
}

func (l *messageLogger) Telegraph(state client.ElectrodeState) {
	log.Info().
		Stringer("id", state.ID).
		Stringer("mode", state.OperatingMode).
		Float64("gain", state.ScaledGain()).
		Str("units", state.ScaledUnits()).
		Float64("lpf_cutoff", state.LPFCutoff).
		Msg("telegraph")
}

func serveMetrics(ctx context.Context, addr string, c *client.Client) {
	r := metrics.NewRouter(log.Logger)
	r.GET("/health", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"running": c.IsRunning(),
			"version": client.Version,
		})
	})

	httpServer := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", addr).Msg("serving metrics")
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("address", addr).Msg("cannot serve metrics")
	}
}
