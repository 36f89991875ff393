package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/status"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
)

// healthService is the gRPC service name reported next to the overall "".
const healthService = "farmwater.Watering"

// cycleTimeout bounds one scheduled cycle.
const cycleTimeout = time.Hour

var runNow bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Water on the farm file's cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := login(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.connect(ctx); err != nil {
			return err
		}
		if err := a.ctrl.Preflight(ctx); err != nil {
			L.Warn("preflight", "err", err)
		}

		// === HTTP ===
		deps := status.Deps{Reports: a.ctrl, Gatherer: a.metrics.Registry}
		if a.broker != nil {
			deps.Broker = a.broker
		}
		if a.events != nil {
			deps.Influx = a.events
			deps.Query = telemetry.NewQuerier(a.influx, cfg.InfluxOrg, cfg.InfluxBucket)
		}
		hs := &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           status.NewHTTPMux(deps),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			L.Info("status http listening", "addr", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				L.Error("http server error", "err", err)
				stop()
			}
		}()

		// === gRPC health ===
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("listen :%s: %w", cfg.GRPCPort, err)
		}
		gs := grpc.NewServer()
		hsrv := health.NewServer()
		healthpb.RegisterHealthServer(gs, hsrv)
		go func() {
			L.Info("grpc health listening", "addr", lis.Addr().String())
			if err := gs.Serve(lis); err != nil {
				L.Error("grpc serve error", "err", err)
			}
		}()
		go watchHealth(ctx, hsrv, deps.Broker)

		// === schedule ===
		c := cron.New()
		if _, err := c.AddFunc(cfg.Farm.Schedule, func() { scheduledCycle(ctx, a.ctrl) }); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Farm.Schedule, err)
		}
		c.Start()
		L.Info("watering scheduled", "cron", cfg.Farm.Schedule, "dry_run", flags.dryRun)
		if runNow {
			go scheduledCycle(ctx, a.ctrl)
		}

		<-ctx.Done()
		L.Info("shutting down...")

		// attende che un ciclo in corso smonti l'ugello
		<-c.Stop().Done()
		hsrv.Shutdown()
		gs.GracefulStop()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = hs.Shutdown(shCtx)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNow, "now", false, "also run one cycle at startup")
}

func scheduledCycle(ctx context.Context, ctrl *controller.Controller) {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()
	if _, err := ctrl.RunCycle(ctx); err != nil {
		if errors.Is(err, controller.ErrCycleInProgress) {
			L.Warn("previous cycle still running, skipping this one")
			return
		}
		L.Error("scheduled cycle", "err", err)
	}
}

// watchHealth mirrors the broker connection into the gRPC health status.
func watchHealth(ctx context.Context, hsrv *health.Server, broker status.Connectivity) {
	set := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if broker != nil && !broker.Connected() {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hsrv.SetServingStatus("", st)
		hsrv.SetServingStatus(healthService, st)
	}
	set()
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
