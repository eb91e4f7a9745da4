package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/supergoodsystems/wiretap/pkg/store"
)

func newSettingsCmd(a *app) *cobra.Command {
	var s store.Settings

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the stored diagnostic settings, or change them with flags",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if flags.Changed("debug") || flags.Changed("show-on-release") {
				current, err := a.store.GetSettings(ctx)
				if err != nil {
					return err
				}
				if flags.Changed("debug") {
					current.DebugMode = s.DebugMode
				}
				if flags.Changed("show-on-release") {
					current.ShowOnRelease = s.ShowOnRelease
				}
				if err := a.store.PutSettings(ctx, current); err != nil {
					return err
				}
			}

			current, err := a.store.GetSettings(ctx)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(current)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(b))
			return err
		}),
	}

	cmd.Flags().BoolVar(&s.DebugMode, "debug", false, "record exchanges in debug builds")
	cmd.Flags().BoolVar(&s.ShowOnRelease, "show-on-release", false, "record exchanges in release builds")
	return cmd
}
