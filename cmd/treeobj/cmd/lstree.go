package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var lsCmd = &cobra.Command{
	Use:     "ls <oid> [prefix]",
	Aliases: []string{"ls-tree"},
	Short:   "List entries in a tree",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	tree, err := treeobj.LoadTree(ctx, db, oid)
	if err != nil {
		return err
	}

	entries := tree.Entries()
	if len(args) > 1 {
		entries = tree.Descendants(args[1])
	}
	for key, e := range entries {
		fmt.Printf("%s\t%s\n", e.Digest, key)
	}
	return nil
}
