package main

import (
	"github.com/lanikai/virtucam/internal/logging"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var log = logging.DefaultLogger.WithTag("virtucamd")

// Global flags
var (
	flagConfig   string
	flagLogLevel string
	flagVersion  bool
)

const defaultConfigPath = "/data/local/tmp/virtucam.yaml"

func addGlobalFlags(fs *flag.FlagSet) {
	fs.StringVarP(&flagConfig, "config", "c", defaultConfigPath, "Configuration file")
	fs.StringVar(&flagLogLevel, "loglevel", "", "Log level directives, e.g. \"info,source=debug\"")
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "virtucamd",
		Short:         "Virtual camera substitution toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagLogLevel != "" {
				return logging.Configure(flagLogLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagVersion {
				version()
				return nil
			}
			return cmd.Help()
		},
	}
	addGlobalFlags(root.PersistentFlags())
	root.Flags().BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")

	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == root {
			banner()
		}
		defaultHelp(cmd, args)
		if cmd == root {
			cmd.Println(helpFooter)
		}
	})

	root.AddCommand(
		newInjectCommand(),
		newProbeCommand(),
		newConfigCommand(),
		newProvideCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
