package main

import (
	"fmt"
	"strings"

	"github.com/lanikai/virtucam/internal/config"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the substitution configuration",
	}
	cmd.AddCommand(newConfigShowCommand(), newConfigSetCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src config.Source = config.NewFileSource(flagConfig)
			if remote != "" {
				src = config.NewRemoteSource(remote)
			}
			snap, err := src.Read()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Query a running provider, e.g. ws://127.0.0.1:8000/config")
	return cmd
}

// setFlags collects "config set" options. Only flags the user passed are
// applied.
type setFlags struct {
	enabled  bool
	mode     string
	stream   string
	media    string
	rotation int
	apps     []string
}

func (s *setFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&s.enabled, "enabled", false, "Enable substitution")
	fs.StringVarP(&s.mode, "mode", "m", "", "Mode: image, video or stream")
	fs.StringVarP(&s.stream, "stream-url", "u", "", "RTSP or RTMP stream URL")
	fs.StringVarP(&s.media, "media", "i", "", "Image or video file")
	fs.IntVarP(&s.rotation, "rotation", "r", config.DefaultRotation, "Rotation, in degrees")
	fs.StringSliceVarP(&s.apps, "target-apps", "a", nil, "Packages to substitute for (comma-separated, empty for all)")
}

func (s *setFlags) apply(fs *flag.FlagSet, snap *config.Snapshot) error {
	if fs.Changed("enabled") {
		snap.Enabled = s.enabled
	}
	if fs.Changed("mode") {
		m, err := config.ParseMode(s.mode)
		if err != nil {
			return err
		}
		snap.Mode = m
	}
	if fs.Changed("stream-url") {
		snap.StreamURL = strings.TrimSpace(s.stream)
	}
	if fs.Changed("media") {
		snap.Media = strings.TrimSpace(s.media)
	}
	if fs.Changed("rotation") {
		snap.Rotation = s.rotation
	}
	if fs.Changed("target-apps") {
		snap.TargetApps = s.apps
	}
	return nil
}

func newConfigSetCommand() *cobra.Command {
	var s setFlags
	cmd := &cobra.Command{
		Use:   "set [flags]",
		Short: "Update the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(flagConfig)
			snap, err := store.Read()
			if err != nil {
				return err
			}
			if err := s.apply(cmd.Flags(), &snap); err != nil {
				return err
			}
			if err := store.Write(snap); err != nil {
				return err
			}
			log.Info("Saved %s: %v", flagConfig, snap)
			return nil
		},
	}
	s.register(cmd.Flags())
	return cmd
}
