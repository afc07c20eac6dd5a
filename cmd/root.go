package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/jsonq/cmd/bench"
	"github.com/ValentinKolb/jsonq/cmd/exec"
	"github.com/ValentinKolb/jsonq/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "jsonq",
		Short: "asynchronous JSON document command engine",
		Long: fmt.Sprintf(`jsonq (v%s)

An asynchronous command engine in front of pluggable, schema-less
document stores. Requests are JSON documents:

  {"id": "...", "op": "provision|save|fetch|delete|list", "store": "...", "payload": ...}`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of jsonq",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jsonq v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(exec.ExecCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupEngineFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
