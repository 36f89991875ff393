// Command farmwater waters a FarmBot garden: it plans a tour over the
// plants and runs the nozzle at each one for as long as the weather
// forecast leaves the crop short of water.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

var L = logging.Logger

type globalFlags struct {
	farmPath string
	envFile  string
	dryRun   bool
	logLevel string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "farmwater",
	Short: "Nearest-neighbour watering tours for FarmBot",
	Long: `farmwater logs in to the FarmBot web app, orders the garden's plants into
a nearest-neighbour tour from the origin and waters each one for as long as
the next 12 hours of forecast rain leave its need uncovered.

Commands:
  run       Water on a cron schedule and serve status, metrics and gRPC health
  water     Run one watering cycle now
  plan      Print the tour without moving the device
  estimate  Print the watering time the forecast leads to
  health    Probe a running daemon over gRPC health`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if flags.logLevel != "" {
			logging.SetLevel(flags.logLevel)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.farmPath, "config", "", "farm YAML file (default $FARM_CONFIG_PATH or farm.yaml)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with FARMBOT_EMAIL, FARMBOT_PASSWORD, ...")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "log device commands instead of sending them")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")

	rootCmd.AddCommand(runCmd, waterCmd, planCmd, estimateCmd, healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
