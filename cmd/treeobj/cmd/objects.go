package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var o2pCmd = &cobra.Command{
	Use:   "o2p <oid>",
	Short: "Print the store path of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runO2p,
}

var p2oCmd = &cobra.Command{
	Use:   "p2o <path>",
	Short: "Recover an oid from a store path",
	Args:  cobra.ExactArgs(1),
	RunE:  runP2o,
}

var rmCmd = &cobra.Command{
	Use:   "rm <oid>",
	Short: "Remove an object from the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(o2pCmd)
	rootCmd.AddCommand(p2oCmd)
	rootCmd.AddCommand(rmCmd)
}

func runO2p(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(cmd.Context(), db, args[0])
	if err != nil {
		return err
	}
	fmt.Println(db.Path(oid))
	return nil
}

func runP2o(cmd *cobra.Command, args []string) error {
	// objects/ab/cdef... -> abcdef...
	dir, name := filepath.Split(filepath.Clean(args[0]))
	shard := filepath.Base(filepath.Clean(dir))
	if len(shard) != 2 || strings.ContainsAny(shard, "/\\") {
		return fmt.Errorf("not a store path: %q", args[0])
	}
	fmt.Println(treeobj.Digest(shard + name))
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	oid, err := resolveOid(ctx, db, args[0])
	if err != nil {
		return err
	}
	return db.Remove(ctx, oid)
}
