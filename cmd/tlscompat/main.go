// Command tlscompat fetches URLs using an emulated platform, with or
// without the TLSv1.2 compatibility patch, and lists the protocols and
// cipher suites available on an emulated platform.
package main

import (
	"os"

	"github.com/apex/log"
	"github.com/gotev/tlscompat/internal/log/handlers/cli"
	"github.com/spf13/cobra"
)

func main() {
	log.SetHandler(cli.Default)
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand creates the root command.
func newRootCommand() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:          "tlscompat",
		Short:        "Tool for checking TLSv1.2 support on emulated platforms",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "emit debug messages")
	root.AddCommand(getSubcommand())
	root.AddCommand(providersSubcommand())
	return root
}
