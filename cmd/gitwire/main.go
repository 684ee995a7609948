package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gitwire",
		Short: "Git smart-protocol client and index tooling",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLsRemoteCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newIndexCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gitwire 0.1.0-dev")
		},
	}
}
