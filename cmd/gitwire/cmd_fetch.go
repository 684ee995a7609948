package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/gitwire/pkg/client"
	"github.com/odvcencio/gitwire/pkg/object"
	"github.com/spf13/cobra"
)

// emptyWalker reports no local ancestors, so the server sends complete
// history.
type emptyWalker struct{}

func (emptyWalker) Next() (object.ID, bool) { return object.ZeroID, false }
func (emptyWalker) Ack(object.ID)           {}

func newFetchCmd() *cobra.Command {
	var configPath string
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <remote>",
		Short: "Fetch all advertised refs into a pack file",
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

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			store := object.NewMemoryStore()
			wants := func(refs map[string]object.ID) ([]object.ID, error) {
				return store.DetermineWantsAll(refs), nil
			}
			packData := func(chunk []byte) { f.Write(chunk) }
			progress := func(text []byte) { os.Stderr.Write(text) }

			refs, err := c.FetchPack(path, wants, emptyWalker{}, packData, progress)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d refs into %s\n", len(refs), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigFile, "config file with named remotes")
	cmd.Flags().StringVarP(&output, "output", "o", "fetched.pack", "pack file to write")
	return cmd
}
