package main

import (
	"fmt"

	"github.com/odvcencio/gitwire/pkg/index"
	"github.com/odvcencio/gitwire/pkg/object"
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect a git index file",
	}
	cmd.AddCommand(newIndexLsCmd())
	cmd.AddCommand(newIndexWriteTreeCmd())
	return cmd
}

func newIndexLsCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := index.Open(indexPath)
			if err != nil {
				return err
			}
			for _, e := range ix.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%06o %s\t%s\n", e.Mode, e.ID, e.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", ".git/index", "index file to read")
	return cmd
}

func newIndexWriteTreeCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "Build the tree the index describes and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := index.Open(indexPath)
			if err != nil {
				return err
			}
			root, err := ix.Commit(object.NewMemoryStore())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), root)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", ".git/index", "index file to read")
	return cmd
}
