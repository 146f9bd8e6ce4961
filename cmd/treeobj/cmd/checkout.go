package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var (
	checkoutRelink bool
	checkoutForce  bool
	checkoutTypes  []string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <oid> <path>",
	Short: "Materialize an object onto the filesystem",
	Long:  "Check a tree or blob out of the store into a destination path. Link strategies are tried per file in the order given; copy always works as the final fallback.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckout,
}

func init() {
	checkoutCmd.Flags().BoolVar(&checkoutRelink, "relink", false, "replace matching files to switch their link type")
	checkoutCmd.Flags().BoolVarP(&checkoutForce, "force", "f", false, "overwrite differing files without confirmation")
	checkoutCmd.Flags().StringSliceVar(&checkoutTypes, "type", []string{"copy"}, "link strategy preference (reflink, hardlink, symlink, copy)")
	rootCmd.AddCommand(checkoutCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
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

	kinds := make([]treeobj.LinkKind, len(checkoutTypes))
	for i, name := range checkoutTypes {
		if kinds[i], err = treeobj.ParseLinkKind(name); err != nil {
			return err
		}
	}

	done := 0
	opts := []treeobj.CheckoutOption{
		treeobj.WithLinkStrategy(kinds...),
		treeobj.WithPrompt(confirm),
		treeobj.WithProgress(func(string) { done++ }),
	}
	if checkoutRelink {
		opts = append(opts, treeobj.WithRelink())
	}
	if checkoutForce {
		opts = append(opts, treeobj.WithForce())
	}

	sum, err := treeobj.Checkout(ctx, args[1], treeobj.NewOsFS(), obj, db, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d/%d entries (%d already up to date, %d denied)\n",
		done, sum.Entries, sum.Skipped, sum.Denied)
	return nil
}

// confirm asks on the terminal; without one, deny.
func confirm(path, reason string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s: %s. Overwrite? [y/N] ", path, reason)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
