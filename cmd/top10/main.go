// top10: live dashboard for the daily top Solana tokens.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goubera/top10/api"
	"github.com/goubera/top10/internal/apiclient"
	"github.com/goubera/top10/internal/config"
	"github.com/goubera/top10/internal/dashboard"
	"github.com/goubera/top10/internal/infra"
	"github.com/goubera/top10/pkg/models"
	"github.com/goubera/top10/pkg/utils"
	"github.com/goubera/top10/web"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "top10",
	Short: "top10: live dashboard for the daily top Solana tokens",
	Long: `top10 serves a dashboard over the token tracker backend: today's
stat cards, the top gainers, newly listed tokens, multi-day trends and
volume charts, refreshed on a timer and pushed to every open browser.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statusCmd)
}

// cliLogger is the logger for one-shot commands. Their stdout carries the
// result, so logs stay quiet unless --log-level asks otherwise.
func cliLogger(cmd *cobra.Command) *zap.Logger {
	lc := cfg.Logging
	if level, _ := cmd.Flags().GetString("log-level"); level == "" {
		lc.Level = "error"
	}
	log, err := infra.NewLogger(lc)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newClient(log *zap.Logger, opts ...apiclient.Option) *apiclient.Client {
	opts = append([]apiclient.Option{
		apiclient.WithLogger(log),
		apiclient.WithUserAgent("top10/" + version),
	}, opts...)
	return apiclient.New(cfg.Backend, cfg.Dashboard.PageHost, opts...)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("top10 %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := infra.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("logger setup failed: %w", err)
		}
		defer log.Sync() //nolint:errcheck

		srv, err := api.NewServer(cfg, log, version)
		if err != nil {
			return err
		}
		log.Info("starting top10",
			zap.String("version", version),
			zap.String("backend", apiclient.BaseURL(cfg.Backend, cfg.Dashboard.PageHost)),
			zap.Duration("refresh_interval", cfg.Dashboard.RefreshInterval))
		return srv.ListenAndServe(cfg.API.Addr())
	},
}

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load the dashboard once and print it",
	Long: `Load every dashboard region once and print the resulting page to stdout.
With --text, print the stat cards and the last update time instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cliLogger(cmd)
		defer log.Sync() //nolint:errcheck

		view, err := dashboard.NewView(web.Page(), log)
		if err != nil {
			return err
		}
		toast := dashboard.NewToaster(view, cfg.Dashboard.ToastDuration)
		src := &recordingSource{Client: newClient(log, apiclient.WithNotifier(toast))}
		loader := dashboard.NewLoader(src, view, toast, dashboard.NewLoading(view), cfg.Dashboard, log)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout+5*time.Second)
		defer cancel()
		loader.LoadAll(ctx)

		if text, _ := cmd.Flags().GetBool("text"); !text {
			_, err := view.WriteTo(os.Stdout)
			return err
		}

		if st := src.stats; st != nil {
			if st.Today != "" {
				fmt.Printf("  Day:              %s\n", st.Today)
			}
			fmt.Printf("  Unique tokens:    %s\n", utils.FormatCount(st.TotalUniqueTokens))
		}
		fmt.Printf("  Tokens tracked:   %s\n", view.Text(dashboard.IDTokensTracked))
		fmt.Printf("  Total volume:     %s\n", view.Text(dashboard.IDTotalVolume))
		fmt.Printf("  New tokens:       %s\n", view.Text(dashboard.IDNewTokens))
		fmt.Printf("  Avg price change: %s\n", view.Text(dashboard.IDAvgChange))
		fmt.Printf("  Last updated:     %s\n", view.Text(dashboard.IDLastUpdate))
		if st := view.State().Toast; st.Kind == dashboard.ToastError {
			fmt.Printf("\n  %s\n", st.Message)
		}
		return nil
	},
}

// recordingSource keeps the last stats snapshot for the text summary.
type recordingSource struct {
	*apiclient.Client
	stats *models.StatsSnapshot
}

func (r *recordingSource) Stats(ctx context.Context) *models.StatsSnapshot {
	r.stats = r.Client.Stats(ctx)
	return r.stats
}

func init() {
	renderCmd.Flags().Bool("text", false, "print a plain-text summary instead of HTML")
}

// --- Collect Command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Ask the backend to collect today's tokens now",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cliLogger(cmd)
		defer log.Sync() //nolint:errcheck

		res, err := newClient(log).Collect(cmd.Context())
		if err != nil {
			return fmt.Errorf("collection request failed: %w", err)
		}
		if res == nil || !res.Success {
			return fmt.Errorf("collection failed")
		}
		fmt.Println("Collection completed successfully!")
		return nil
	},
}

// --- Token Command ---

var tokenCmd = &cobra.Command{
	Use:   "token [address]",
	Short: "Show the tracked history of one token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := utils.NormalizeAddress(args[0])
		if err != nil {
			return err
		}
		log := cliLogger(cmd)
		defer log.Sync() //nolint:errcheck

		detail := newClient(log).TokenDetail(cmd.Context(), address)
		if detail == nil {
			return fmt.Errorf("token lookup failed for %s", utils.TruncateAddress(address))
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		}

		fmt.Printf("%s (%s)  %s\n", detail.TokenSymbol, detail.TokenName, address)
		fmt.Printf("  %d day(s) in the daily top\n\n", detail.HistoryCount)
		for _, h := range detail.History {
			fmt.Printf("  %-10s  %12s  %12s  %8s\n",
				h.Date,
				utils.FormatPrice(h.PriceUSD),
				utils.FormatCurrency(h.Volume24h),
				utils.FormatPercent(h.PriceChange24h))
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().Bool("json", false, "print the raw token detail as JSON")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and where each setting came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := utils.LoadLocation(cfg.Dashboard.Timezone)

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  top10 Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:      %s (%s)\n", version, commit)
		fmt.Printf("  Time:         %s\n", utils.FormatTimestamp(time.Now(), loc))
		fmt.Printf("  Backend:      %s\n", apiclient.BaseURL(cfg.Backend, cfg.Dashboard.PageHost))
		fmt.Printf("  Listen:       %s\n", cfg.API.Addr())
		if path := config.ConfigFilePath(); path != "" {
			fmt.Printf("  Config file:  %s\n", path)
		}
		fmt.Println()

		fmt.Println("  Settings:")
		for _, s := range config.Describe(cfg) {
			value := s.Value
			if value == "" {
				value = "(unset)"
			}
			fmt.Printf("    %-28s %-28s [%s]\n", s.Name+":", value, s.Source)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
