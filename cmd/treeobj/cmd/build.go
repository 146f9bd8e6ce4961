package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
	"github.com/treedata/treeobj/internal/odb"
)

var buildWrite bool

var buildCmd = &cobra.Command{
	Use:   "build <path>",
	Short: "Snapshot a file or directory tree",
	Long:  "Hash a file or directory tree into a staging store and print the resulting digest. With --write, transfer the objects into the local store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildWrite, "write", "w", false, "write objects to the local store")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	staging := odb.NewMemDB()
	obj, err := treeobj.Build(ctx, staging, afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}

	if buildWrite {
		db, err := openDB()
		if err != nil {
			return err
		}
		copied, err := treeobj.Transfer(ctx, staging, db, oidOf(obj))
		if err != nil {
			return err
		}
		slog.Debug("objects written", "count", copied)
	}

	fmt.Println(oidOf(obj))
	return nil
}

func oidOf(obj treeobj.Object) treeobj.Digest {
	if t, ok := obj.(*treeobj.Tree); ok {
		oid, _ := t.Digest()
		return oid
	}
	return obj.Oid()
}
