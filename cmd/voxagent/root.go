package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voxagent",
	Short: "Voxagent runs schema-driven voice agent sessions",
	Long:  `Voxagent is a slot-filling session engine: personas are declarative schemas, the conversational control flow is shared. The run command starts an interactive console session with one of the built-in personas or a schema file.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
}
