package main

import (
	"fmt"
	"sort"

	"github.com/odvcencio/gitwire/pkg/client"
	"github.com/odvcencio/gitwire/pkg/object"
	"github.com/spf13/cobra"
)

func newLsRemoteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ls-remote <remote>",
		Short: "List references advertised by a remote repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			uri, err := resolveRemote(cfg, args[0])
			if err != nil {
				return err
			}

			c, path, err := client.New(uri, client.Options{})
			if err != nil {
				return err
			}
			defer c.Close()

			// Selecting no wants ends the conversation right after
			// the advertisement.
			none := func(map[string]object.ID) ([]object.ID, error) { return nil, nil }
			refs, err := c.FetchPack(path, none, nil, nil, nil)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(refs))
			for name := range refs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", refs[name], name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigFile, "config file with named remotes")
	return cmd
}
