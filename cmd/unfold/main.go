package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("unfold")

func main() {
	var verbose int
	var logFile string

	rootCmd := &cobra.Command{
		Use:          "unfold",
		Short:        "Expand #include directives and map the output back to its sources",
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		var path *string
		if logFile != "" {
			path = &logFile
		}
		commonlog.Configure(verbose, path)
	}
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newDepsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
