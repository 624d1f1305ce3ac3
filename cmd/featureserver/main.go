// Command featureserver serves GeoJSON sources as Esri FeatureServer
// endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	root := &cobra.Command{
		Use:           "featureserver",
		Short:         "Serve GeoJSON sources as FeatureServer endpoints",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	serve := newServeCmd(&envFiles)
	root.AddCommand(serve, newLintCmd(), newLoadCmd(&envFiles))
	// bare invocation serves
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}
