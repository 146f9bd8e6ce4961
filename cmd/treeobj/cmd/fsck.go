package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Verify every object in the store",
	Args:  cobra.NoArgs,
	RunE:  runFsck,
}

var countObjectsCmd = &cobra.Command{
	Use:   "count-objects",
	Short: "Count objects and their disk consumption",
	Args:  cobra.NoArgs,
	RunE:  runCountObjects,
}

func init() {
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(countObjectsCmd)
}

func runFsck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}

	bad := 0
	for oid, err := range db.Oids(ctx) {
		if err != nil {
			return err
		}
		if err := db.Check(ctx, oid, true); err != nil {
			bad++
			fmt.Fprintln(os.Stderr, err)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d corrupt objects", bad)
	}
	return nil
}

func runCountObjects(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}

	var count int
	var total int64
	for oid, err := range db.Oids(ctx) {
		if err != nil {
			return err
		}
		count++
		if size, ok := db.Stat(ctx, oid); ok {
			total += size
		}
	}
	fmt.Printf("%d objects, %s\n", count, formatSize(total))
	return nil
}
