package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var (
	diffUnchanged bool
	diffContent   bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <oid> <oid>",
	Short: "Diff two stored trees",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffUnchanged, "unchanged", false, "also print unchanged entries")
	diffCmd.Flags().BoolVar(&diffContent, "content", false, "print content-level diffs for modified files")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}

	var trees [2]*treeobj.Tree
	for i, arg := range args {
		oid, err := resolveOid(ctx, db, arg)
		if err != nil {
			return err
		}
		if trees[i], err = treeobj.LoadTree(ctx, db, oid); err != nil {
			return err
		}
	}

	d, err := treeobj.Diff(ctx, trees[0], trees[1], db)
	if err != nil {
		return err
	}

	added := color.New(color.FgGreen)
	deleted := color.New(color.FgRed)
	modified := color.New(color.FgYellow)

	for _, c := range d.Added {
		added.Printf("added: %s\n", describeSide(c.New))
	}
	for _, c := range d.Deleted {
		deleted.Printf("deleted: %s\n", describeSide(c.Old))
	}
	for _, c := range d.Modified {
		modified.Printf("modified: %s -> %s\n", describeSide(c.Old), describeSide(c.New))
		if diffContent && !c.New.Meta.IsDir() && c.Key() != treeobj.RootKey {
			if err := printContentDiff(cmd, db, c); err != nil {
				return err
			}
		}
	}
	if diffUnchanged {
		for _, c := range d.Unchanged {
			fmt.Printf("unchanged: %s\n", describeSide(c.New))
		}
	}
	return nil
}

func describeSide(side *treeobj.DiffEntry) string {
	key := side.Key
	if key == treeobj.RootKey {
		key = "ROOT"
	}
	missing := ""
	if !side.InCache {
		missing = ", missing"
	}
	return fmt.Sprintf("%s (%s%s)", key, side.Digest.Short(), missing)
}

func printContentDiff(cmd *cobra.Command, db treeobj.ObjectStore, c treeobj.Change) error {
	ctx := cmd.Context()
	oldObj, err := treeobj.Load(ctx, db, c.Old.Digest)
	if err != nil {
		return err
	}
	newObj, err := treeobj.Load(ctx, db, c.New.Digest)
	if err != nil {
		return err
	}
	oldBlob, okOld := oldObj.(*treeobj.Blob)
	newBlob, okNew := newObj.(*treeobj.Blob)
	if !okOld || !okNew {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(oldBlob.Data), string(newBlob.Data), false)
	fmt.Print(dmp.DiffPrettyText(diffs))
	fmt.Println()
	return nil
}
