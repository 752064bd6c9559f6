package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/law-makers/ammocrawl/internal/sites"
	"github.com/law-makers/ammocrawl/internal/ui"
)

// sitesCmd represents the sites command
var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the storefronts ammocrawl knows how to read",
	Long: `Lists the registered site descriptors. Built-in descriptors can be
replaced or extended with --sites-file.`,
	Example: `  # List all sites
  ammocrawl sites

  # Show the descriptor of one site as YAML
  ammocrawl sites show kirammo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}
		listSites(os.Stdout, a.Sites)
		return nil
	},
}

var sitesShowCmd = &cobra.Command{
	Use:   "show <site-id>",
	Short: "Print one site descriptor as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}
		return showSite(os.Stdout, a.Sites, args[0])
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.AddCommand(sitesShowCmd)
}

func listSites(w io.Writer, r *sites.Registry) {
	fmt.Fprintf(w, "\n%s\n\n", ui.Bold(fmt.Sprintf("Sites (%d)", r.Len())))
	for _, id := range r.IDs() {
		d, err := r.Lookup(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %-28s %s\n", ui.Accent(fmt.Sprintf("%-18s", id)), d.Name, ui.Dim(fmt.Sprintf("pagination=%s wait=%s", d.Pagination.Kind, d.Wait)))
	}
	fmt.Fprintln(w)
}

func showSite(w io.Writer, r *sites.Registry, id string) error {
	d, err := r.Lookup(id)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}
