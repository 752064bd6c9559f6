package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/ammocrawl/internal/app"
	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/law-makers/ammocrawl/internal/runctx"
	"github.com/law-makers/ammocrawl/internal/ui"
	"github.com/law-makers/ammocrawl/internal/utils/output"
	"github.com/law-makers/ammocrawl/pkg/models"
)

type scrapeOptions struct {
	output      string
	metricsAddr string
	top         int
	progress    bool
	sort        bool
}

var scrapeOpts scrapeOptions

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [caliber...]",
	Short: "Scrape every configured storefront for one or more calibers",
	Long: `Runs one scrape per caliber. Each run opens a single browser session and
visits the caliber's targets one after another; a site that fails is
reported and skipped without stopping the run.

Targets come from the "calibers" map of the config file and from
MM_<CALIBER>_URLS environment variables ("site;url,site;url").`,
	Example: `  # Scrape the default calibers
  ammocrawl scrape

  # Scrape two calibers and save the results
  ammocrawl scrape "9mm Luger" "5.56x45 NATO" --output deals.xlsx

  # Targets from the environment
  MM_9MM_LUGER_URLS="kirammo;https://www.kirammo.com/9mm" ammocrawl scrape

  # Expose Prometheus metrics while scraping
  ammocrawl scrape --metrics-addr :9090`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeOpts.output, "output", "o", "", "Save products to a file (.json, .csv, .md, .xlsx, .db)")
	scrapeCmd.Flags().StringVar(&scrapeOpts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while scraping")
	scrapeCmd.Flags().IntVar(&scrapeOpts.top, "top", 20, "Products printed per caliber (0 prints all)")
	scrapeCmd.Flags().BoolVar(&scrapeOpts.progress, "progress", true, "Show a progress bar on stderr")
	scrapeCmd.Flags().BoolVar(&scrapeOpts.sort, "sort", true, "Sort products by cost per round")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	opts := scrapeOpts
	if opts.output == "" {
		opts.output = a.Config.Output
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = a.Config.MetricsAddr
	}
	if a.Config.JSONLog || a.Config.LogLevel == "error" {
		opts.progress = false
	}

	calibers := args
	if len(calibers) == 0 {
		calibers = a.Config.Calibers
	}

	if opts.metricsAddr != "" {
		errs := make(chan error, 1)
		srv := a.Metrics.Serve(opts.metricsAddr, errs)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		go func() {
			if err := <-errs; err != nil {
				log.Error().Err(err).Str("addr", opts.metricsAddr).Msg("Metrics server stopped")
			}
		}()
		log.Info().Str("addr", opts.metricsAddr).Msg("Serving metrics on /metrics")
	}

	return scrape(cmd.Context(), a, calibers, opts, nil, os.Stdout, os.Stderr)
}

// scrape runs every caliber in turn. All target lists are resolved before
// the first browser starts so a bad site id fails fast.
func scrape(ctx context.Context, a *app.Application, calibers []string, opts scrapeOptions, launch engine.Launcher, stdout, stderr io.Writer) error {
	if opts.output != "" {
		if _, err := output.FormatFor(opts.output); err != nil {
			return err
		}
	}

	targets := make([][]models.Target, len(calibers))
	for i, caliber := range calibers {
		t, err := a.Targets(caliber)
		if err != nil {
			return err
		}
		targets[i] = t
	}

	var all []models.Product
	var runErr error
	for i, caliber := range calibers {
		if len(targets[i]) == 0 {
			log.Warn().Str("caliber", caliber).Msg("No targets configured, skipping")
			continue
		}

		var obs []engine.Observer
		var bar *progressObserver
		if opts.progress {
			bar = newProgressObserver(stderr, caliber, len(targets[i]))
			obs = append(obs, bar)
		}

		runCtx := runctx.WithRun(ctx, caliber)
		res, err := a.Orchestrator(launch, obs...).Run(runCtx, targets[i])
		if bar != nil {
			bar.finish()
		}
		if res != nil {
			products := res.Products
			if opts.sort {
				sortByCPR(products)
			}
			printSiteTable(stdout, res)
			printSkipReasons(stdout, res)
			printProducts(stdout, products, opts.top)
			fmt.Fprintf(stdout, "%s\n", ui.Bold(fmt.Sprintf("Found %d deals for %s", len(products), caliber)))
			all = append(all, products...)
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if opts.output != "" {
		if err := output.Save(all, opts.output); err != nil {
			return errors.Join(runErr, fmt.Errorf("save %s: %w", opts.output, err))
		}
		log.Info().Str("file", opts.output).Int("products", len(all)).Msg("Output saved")
		fmt.Fprintf(stdout, "%s Saved %d products to %s\n", ui.Success("✓"), len(all), opts.output)
	}
	return runErr
}
