package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kudzu: %v\n", err)
		os.Exit(1)
	}
}

var (
	flagConfigPath string
	flagDataDir    string
	flagAddr       string
	flagAPIKey     string
	flagDev        bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kudzu",
		Short: "Distributed biomimetic memory substrate node",
		Long: `kudzu runs a node of holograms, expertise silos and a sovereign
cognition core over tiered hot/warm/cold storage, gossiping membership
and traces with the rest of its mesh.`,
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a node config YAML file")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./data", "directory for registry records and the warm-tier database")
	root.PersistentFlags().StringVar(&flagAddr, "addr", "http://localhost:8080", "node API address, for status/query/mesh commands")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "bearer token, if the target node has api_auth enabled")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "use a human-readable development logger")

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newMeshCmd())

	return root
}
