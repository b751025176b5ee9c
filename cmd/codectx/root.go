package main

import (
	"github.com/spf13/cobra"
)

var configPathFlag string

var rootCmd = &cobra.Command{
	Use:   "codectx",
	Short: "Local code-context service: a semantic/lexical/graph search index served over MCP",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "path to an optional TOML config file")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print build information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}
