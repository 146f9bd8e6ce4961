package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var catCheck bool

var showCmd = &cobra.Command{
	Use:   "show <oid>",
	Short: "Show an object: tree listing or raw content",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var catCmd = &cobra.Command{
	Use:   "cat <oid>",
	Short: "Print the raw content of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

var duCmd = &cobra.Command{
	Use:   "du <oid>",
	Short: "Summarize store disk usage of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runDu,
}

func init() {
	catCmd.Flags().BoolVarP(&catCheck, "check", "c", false, "verify the object hashes back to its oid instead of printing it")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(duCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	obj, err := treeobj.Load(ctx, db, oid)
	if err != nil {
		return err
	}

	switch o := obj.(type) {
	case *treeobj.Tree:
		for key, e := range o.Entries() {
			fmt.Printf("%s\t%s\n", e.Digest, key)
		}
	case *treeobj.Blob:
		os.Stdout.Write(o.Data)
	}
	return nil
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	if catCheck {
		return db.Check(ctx, oid, true)
	}
	data, err := db.Get(ctx, oid)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runDu(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	total, err := treeobj.DiskUsage(ctx, db, oid)
	if err != nil {
		return err
	}
	fmt.Println(formatSize(total))
	return nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
