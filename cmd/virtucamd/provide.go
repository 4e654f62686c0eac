package main

import (
	"net/http"

	"github.com/lanikai/virtucam/internal/config"
	"github.com/spf13/cobra"
)

func newProvideCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "provide",
		Short: "Serve the configuration file to hooked processes over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mux := http.NewServeMux()
			mux.Handle("/config", config.NewProvider(config.NewFileSource(flagConfig)))
			log.Info("Serving %s on ws://%s/config", flagConfig, listen)
			return http.ListenAndServe(listen, mux)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:8000", "Listen address")
	return cmd
}
