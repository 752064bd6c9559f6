package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/ammocrawl/internal/manufacturer"
	"github.com/law-makers/ammocrawl/internal/ui"
)

// manufacturersCmd represents the manufacturers command
var manufacturersCmd = &cobra.Command{
	Use:     "manufacturers",
	Aliases: []string{"brands"},
	Short:   "List canonical manufacturers or test brand resolution",
	Example: `  # List canonical names
  ammocrawl manufacturers

  # See what a listing title resolves to
  ammocrawl manufacturers resolve "American Eagle 9mm 115gr FMJ"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}
		names := a.Manufacturers.Names()
		fmt.Printf("\n%s\n\n", ui.Bold(fmt.Sprintf("Manufacturers (%d)", len(names))))
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
		fmt.Println()
		return nil
	},
}

var manufacturersResolveCmd = &cobra.Command{
	Use:   "resolve <text>...",
	Short: "Resolve brand text to a canonical manufacturer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return fmt.Errorf("application not initialized")
		}
		resolveBrands(os.Stdout, a.Manufacturers, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(manufacturersCmd)
	manufacturersCmd.AddCommand(manufacturersResolveCmd)
}

func resolveBrands(w io.Writer, t *manufacturer.Table, texts []string) {
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if name, ok := t.Resolve(text); ok {
			fmt.Fprintf(w, "%s -> %s\n", text, ui.Success(name))
		} else {
			fmt.Fprintf(w, "%s -> %s\n", text, ui.Warn("unknown"))
		}
	}
}
