package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/britebottle/fleet/internal/sim"
)

func newSimulateCmd() *cobra.Command {
	var (
		baseURL  string
		apiKey   string
		interval time.Duration
		crushers []string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive randomized device traffic against a running server",
		Long: `Post randomized crush, telemetry, and alert reports to the ingest API of
a running fleet server. Useful for demos and for exercising the dashboard
without physical crushers.`,
		Example: `  fleet simulate --crushers c-101,c-102
  fleet simulate --url http://localhost:8080 --interval 2s --crushers c-101`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(baseURL, apiKey, interval, crushers)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "Base URL of the fleet server")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Ingest API key (if the server requires one)")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Interval between simulated reports")
	cmd.Flags().StringSliceVar(&crushers, "crushers", nil, "Crusher IDs to simulate (required)")
	cmd.MarkFlagRequired("crushers")

	return cmd
}

func runSimulate(baseURL, apiKey string, interval time.Duration, crushers []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	simulator := sim.New(sim.Config{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Interval:   interval,
		CrusherIDs: crushers,
	}, logger)

	if err := simulator.Start(); err != nil {
		return err
	}
	fmt.Printf("Simulating %d crusher(s) against %s every %s. Ctrl-C to stop.\n",
		len(crushers), baseURL, interval)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	simulator.Stop()
	return nil
}
