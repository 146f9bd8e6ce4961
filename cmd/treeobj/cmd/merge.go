package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var (
	mergeForce bool
	mergeBase  string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <oid> <oid>",
	Short: "Merge two stored trees and write the result",
	Long:  "Merge two trees, the second side's additions and modifications winning. Without --force, overlapping modifications fail the merge. With --base, conflicts are limited to paths both sides changed relative to the base tree.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "skip conflict detection")
	mergeCmd.Flags().StringVar(&mergeBase, "base", "", "three-way merge base tree oid")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}

	oidA, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	oidB, err := resolveOid(ctx, db, args[1])
	if err != nil {
		return err
	}

	var base *treeobj.Tree
	if mergeBase != "" {
		baseOid, err := resolveOid(ctx, db, mergeBase)
		if err != nil {
			return err
		}
		if base, err = treeobj.LoadTree(ctx, db, baseOid); err != nil {
			return err
		}
	}

	var opts []treeobj.MergeOption
	if mergeForce {
		opts = append(opts, treeobj.WithTheirs())
	}

	merged, err := treeobj.Merge(ctx, db, base, oidA, oidB, opts...)
	var conflict *treeobj.ConflictError
	if errors.As(err, &conflict) {
		fmt.Fprintln(os.Stderr, "Following files in conflicts:")
		for _, path := range conflict.Paths {
			fmt.Fprintln(os.Stderr, path)
		}
		return fmt.Errorf("%d conflicting paths", len(conflict.Paths))
	}
	if err != nil {
		return err
	}

	oid, err := merged.Save(ctx, db)
	if err != nil {
		return err
	}
	fmt.Println(oid)
	return nil
}
