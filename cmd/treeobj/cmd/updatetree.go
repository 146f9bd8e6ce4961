package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var (
	patchFile   string
	patchAdd    []string
	patchModify []string
	patchMove   []string
	patchCopy   []string
	patchRemove []string
	patchTest   []string
)

var updateTreeCmd = &cobra.Command{
	Use:   "update-tree <oid>",
	Short: "Apply a patch batch to a stored tree",
	Long: `Apply an ordered batch of operations to a tree and write the result.

Operations come from a JSON patch file and/or repeated flags, applied
in order: the patch file first, then adds, modifies, copies, moves,
removes and tests. A failing operation aborts the batch; operations
already applied are not rolled back and nothing is written.

Example patch file:

  [
    {"op": "remove", "path": "test/0/00004.png"},
    {"op": "move", "path": "test/1/00003.png", "to": "test/0/00003.png"},
    {"op": "copy", "path": "test/1/00003.png", "to": "test/1/11113.png"},
    {"op": "test", "path": "test/1/00003.png"},
    {"op": "add", "path": "local/path/to/file.png", "to": "foo"}
  ]

For add and modify, "path" names a local file whose content enters the
store; relative paths are resolved against the patch file's directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdateTree,
}

func init() {
	updateTreeCmd.Flags().StringVar(&patchFile, "patch-file", "", "JSON patch file")
	updateTreeCmd.Flags().StringArrayVar(&patchAdd, "add", nil, "add local file: <file>=<tree path>")
	updateTreeCmd.Flags().StringArrayVar(&patchModify, "modify", nil, "modify from local file: <file>=<tree path>")
	updateTreeCmd.Flags().StringArrayVar(&patchMove, "move", nil, "move a path: <from>=<to>")
	updateTreeCmd.Flags().StringArrayVar(&patchCopy, "copy", nil, "copy a path: <from>=<to>")
	updateTreeCmd.Flags().StringArrayVar(&patchRemove, "remove", nil, "remove a path")
	updateTreeCmd.Flags().StringArrayVar(&patchTest, "test", nil, "check a path exists")
	rootCmd.AddCommand(updateTreeCmd)
}

func runUpdateTree(cmd *cobra.Command, args []string) error {
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

	ops, err := collectOps()
	if err != nil {
		return err
	}
	if err := tree.Apply(ctx, db, afero.NewOsFs(), ops); err != nil {
		return err
	}

	newOid, err := tree.Save(ctx, db)
	if err != nil {
		return err
	}
	fmt.Println(newOid)
	return nil
}

func collectOps() ([]treeobj.Op, error) {
	var ops []treeobj.Op
	if patchFile != "" {
		data, err := os.ReadFile(patchFile)
		if err != nil {
			return nil, err
		}
		fileOps, err := treeobj.ParsePatch(data)
		if err != nil {
			return nil, err
		}
		// Content sources travel with the patch file.
		dir := filepath.Dir(patchFile)
		for i, op := range fileOps {
			if (op.Op == treeobj.OpAdd || op.Op == treeobj.OpModify) && !filepath.IsAbs(op.Path) {
				fileOps[i].Path = filepath.Join(dir, op.Path)
			}
		}
		ops = fileOps
	}

	pairKinds := []struct {
		kind treeobj.OpKind
		args []string
	}{
		{treeobj.OpAdd, patchAdd},
		{treeobj.OpModify, patchModify},
		{treeobj.OpCopy, patchCopy},
		{treeobj.OpMove, patchMove},
	}
	for _, pk := range pairKinds {
		for _, arg := range pk.args {
			from, to, ok := strings.Cut(arg, "=")
			if !ok {
				return nil, fmt.Errorf("--%s wants <from>=<to>, got %q", pk.kind, arg)
			}
			ops = append(ops, treeobj.Op{Op: pk.kind, Path: from, To: to})
		}
	}
	for _, path := range patchRemove {
		ops = append(ops, treeobj.Op{Op: treeobj.OpRemove, Path: path})
	}
	for _, path := range patchTest {
		ops = append(ops, treeobj.Op{Op: treeobj.OpTest, Path: path})
	}
	return ops, nil
}
