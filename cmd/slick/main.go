package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/slick"
	"github.com/hupe1980/slick/cmd/slick/commands"
)

var rootCmd = &cobra.Command{
	Use:     "slick",
	Short:   "Typed prompt functions for Go",
	Long:    `slick manages the model providers and default model selection used by slick prompt functions.`,
	Version: slick.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		return commands.Setup(verbosity)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase verbosity (-v info, -vv debug)")
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(commands.ModelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		commands.PrintError(err)
		os.Exit(1)
	}
}
