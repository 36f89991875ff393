package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/planner"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/device"
)

var planVerbose bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the watering tour without moving the device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := login(ctx, cfg)
		if err != nil {
			return err
		}
		// planning never sends commands
		ctrl, err := controller.New(a.api, a.weather, device.NewRecorder(), a.session, controller.Options{Farm: cfg.Farm})
		if err != nil {
			return err
		}

		_, legs, err := ctrl.Plan(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STEP\tPLANT\tNAME\tX\tY\tLEG (mm)")
		for _, l := range legs {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%.0f\t%.0f\t%.1f\n", l.Step+1, l.Plant.ID, l.Plant.Name, l.Plant.X, l.Plant.Y, l.Distance)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d plants, %.1f mm total\n", len(legs), planner.Length(legs))

		if !planVerbose {
			return nil
		}
		tools, err := a.api.Tools(ctx, a.session)
		if err != nil {
			return err
		}
		seqs, err := a.api.Sequences(ctx, a.session)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\ntools:")
		for _, t := range tools {
			fmt.Fprintf(out, "  %d\t%s\n", t.ID, t.Name)
		}
		fmt.Fprintln(out, "sequences:")
		for _, s := range seqs {
			fmt.Fprintf(out, "  %d\t%s\n", s.ID, s.Name)
		}
		if err := ctrl.Preflight(ctx); err != nil {
			fmt.Fprintf(out, "preflight: %v\n", err)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "also list tools and sequences and check the configured ones")
}
