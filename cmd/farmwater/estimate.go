package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/estimator"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/weather"
)

var (
	estimateNeed float64
	estimateFlow float64
	estimateCrop string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Print the watering time for a need given the current forecast",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		need := estimateNeed
		if !cmd.Flags().Changed("need") {
			need = cfg.Farm.NeedFor(estimateCrop)
		}
		flow := estimateFlow
		if !cmd.Flags().Changed("flow") {
			flow = cfg.Farm.FlowRate
		}

		wc := weather.NewClient(cfg.ForecastURL, cfg.ForecastKey, 10*time.Second, nil)
		forecast, err := wc.HourlyForecast(cmd.Context(), cfg.Latitude, cfg.Longitude)
		if err != nil {
			return err
		}
		secs, err := estimator.EstimateDuration(flow, need, forecast)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "expected rain (12h): %.2f\n", estimator.ExpectedPrecipitation(forecast))
		fmt.Fprintf(out, "need: %.2f  flow: %.2f/s\n", need, flow)
		fmt.Fprintf(out, "watering time: %s\n", estimator.Seconds(secs))
		return nil
	},
}

func init() {
	f := estimateCmd.Flags()
	f.Float64Var(&estimateNeed, "need", 0, "water need (default from the farm file)")
	f.Float64Var(&estimateFlow, "flow", 0, "nozzle flow per second (default from the farm file)")
	f.StringVar(&estimateCrop, "crop", "", "openfarm slug to take the need from")
}
