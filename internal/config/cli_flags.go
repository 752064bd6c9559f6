package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().String("proxy", "", "Upstream proxy for the browser (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", DefaultTimeout.String(), "Timeout for each browser operation")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringSliceP("header", "H", nil, "Extra request header (\"Key: Value\"), repeatable")
	cmd.PersistentFlags().Bool("headless", DefaultHeadless, "Run Chrome headless")
	cmd.PersistentFlags().String("chrome-path", "", "Path to the Chrome/Chromium binary")
	cmd.PersistentFlags().Int("max-pages", DefaultMaxPages, "Maximum listing pages read per site")
	cmd.PersistentFlags().String("scroll-settle", DefaultScrollSettle.String(), "Pause between infinite-scroll attempts")
	cmd.PersistentFlags().String("sites-file", "", "YAML file with extra or replacement site descriptors")
	cmd.PersistentFlags().String("manufacturers-file", "", "YAML file with extra manufacturer aliases")
}
