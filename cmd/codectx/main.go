package main

import (
	"fmt"
	"log"
	"os"

	"github.com/guvensoft/codectx-mcp/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	log.SetOutput(os.Stderr) // stdout is reserved for MCP protocol framing

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("codectx-mcp\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Build Mode: %s\n", store.BuildMode)
}
