package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		sferrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront document composition engine",
		Long: `Storefront stores, validates, publishes and renders the component
trees that make up a shop's pages, prefabs, layouts and themes.

Configuration is read from storefront.json in the --config directory
or the nearest parent of the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "Directory containing storefront.json")

	rootCmd.AddCommand(
		serveCmd(&configDir),
		validateCmd(&configDir),
		componentsCmd(&configDir),
		actionsCmd(),
		themeCmd(&configDir),
		publishCmd(&configDir),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
