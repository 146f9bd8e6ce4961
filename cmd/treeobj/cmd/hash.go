package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treedata/treeobj"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Compute the content digest of a file",
	Long:  "Compute the sha256 content digest of a file without storing it. Pass - to hash stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	oid, n, err := treeobj.HashReader(in)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%d bytes\n", oid, n)
	return nil
}
