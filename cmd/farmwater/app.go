package main

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/config"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/device"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/farmapi"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/weather"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/rabbitmq"
)

// app is everything a command may need, built from config. Parts a command
// does not ask for stay nil.
type app struct {
	cfg     *config.Config
	api     *farmapi.Client
	session model.Session
	weather *weather.Client

	mqtt       mqtt.Client
	device     device.Device
	broker     *device.MQTTDevice
	connCancel context.CancelFunc

	metrics *telemetry.Metrics
	influx  influxdb2.Client
	events  *telemetry.InfluxSink

	ctrl *controller.Controller
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.envFile, flags.farmPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel == "" {
		logging.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}

// login builds the web app and forecast clients and opens a session.
func login(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		api:     farmapi.NewClient(cfg.Server, 15*time.Second, nil),
		weather: weather.NewClient(cfg.ForecastURL, cfg.ForecastKey, 10*time.Second, nil),
		metrics: telemetry.NewMetrics(),
	}
	s, err := a.api.CreateToken(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return nil, err
	}
	a.session = s
	return a, nil
}

// connect adds the device, telemetry and the controller to a logged-in app.
// With --dry-run the device is a Recorder and no broker connection is made.
func (a *app) connect(ctx context.Context) error {
	if flags.dryRun {
		L.Warn("dry run: device commands are logged, not sent")
		a.device = device.NewRecorder()
	} else {
		// the broker must outlive ctx so a cancelled cycle can still
		// close the valve and unmount the tool
		connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.connCancel = cancel
		client, err := rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
			Scheme:   a.cfg.MQTTScheme,
			Host:     a.session.MQTTHost,
			Port:     a.cfg.MQTTPort,
			User:     a.session.DeviceID,
			Password: a.session.Token,
			ClientID: "farmwater-" + uuid.NewString()[:8],
		}, connCtx)
		if err != nil {
			return err
		}
		a.mqtt = client
		a.broker = device.NewMQTTDevice(client, a.session.DeviceID, device.Config{
			Speed:   a.cfg.Farm.Speed,
			Timeout: a.cfg.Farm.RPCTimeout,
			Observe: a.metrics.ObserveRPC,
		})
		if err := a.broker.Start(connCtx); err != nil {
			return fmt.Errorf("device: %w", err)
		}
		a.device = a.broker
	}

	sinks := []telemetry.Sink{a.metrics}
	if a.cfg.InfluxEnabled() {
		a.influx = influxdb2.NewClientWithOptions(a.cfg.InfluxURL, a.cfg.InfluxToken,
			influxdb2.DefaultOptions().SetBatchSize(20).SetFlushInterval(1000))
		a.events = telemetry.NewInfluxSink(a.influx.WriteAPI(a.cfg.InfluxOrg, a.cfg.InfluxBucket))
		sinks = append(sinks, a.events)
	}

	ctrl, err := controller.New(a.api, a.weather, a.device, a.session, controller.Options{
		Farm:      a.cfg.Farm,
		Latitude:  a.cfg.Latitude,
		Longitude: a.cfg.Longitude,
		Sink:      telemetry.Multi(sinks...),
	})
	if err != nil {
		return err
	}
	a.ctrl = ctrl
	return nil
}

func (a *app) Close() {
	if a.events != nil {
		a.events.Flush()
	}
	if a.influx != nil {
		a.influx.Close()
	}
	if a.mqtt != nil {
		rabbitmq.CloseRabbitMQConn(a.mqtt)
	}
	if a.connCancel != nil {
		a.connCancel()
	}
}
