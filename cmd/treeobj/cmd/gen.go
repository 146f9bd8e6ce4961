package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate test content",
}

var genRandCmd = &cobra.Command{
	Use:   "rand <file> <size>",
	Short: "Generate a file with random contents",
	Long:  "Generate a file with random contents. Size accepts human-readable suffixes, eg '1kb', '100MB'.",
	Args:  cobra.ExactArgs(2),
	RunE:  runGenRand,
}

var genSparseCmd = &cobra.Command{
	Use:   "sparse <file> <size>",
	Short: "Generate a sparse file",
	Args:  cobra.ExactArgs(2),
	RunE:  runGenSparse,
}

func init() {
	genCmd.AddCommand(genRandCmd)
	genCmd.AddCommand(genSparseCmd)
	rootCmd.AddCommand(genCmd)
}

func runGenRand(cmd *cobra.Command, args []string) error {
	size, err := parseSize(args[1])
	if err != nil {
		return err
	}
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return err
	}
	return os.WriteFile(args[0], data, 0o644)
}

func runGenSparse(cmd *cobra.Command, args []string) error {
	size, err := parseSize(args[1])
	if err != nil {
		return err
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	if size == 0 {
		return nil
	}
	if _, err := f.Seek(size-1, 0); err != nil {
		return err
	}
	_, err = f.Write([]byte{0})
	return err
}

var sizeSuffixes = []struct {
	name string
	mult int64
}{
	{"gb", 1 << 30}, {"g", 1 << 30},
	{"mb", 1 << 20}, {"m", 1 << 20},
	{"kb", 1 << 10}, {"k", 1 << 10},
	{"b", 1},
}

func parseSize(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suf := range sizeSuffixes {
		if num, ok := strings.CutSuffix(s, suf.name); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil {
				return 0, fmt.Errorf("bad size %q", s)
			}
			return int64(n * float64(suf.mult)), nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q", s)
	}
	return n, nil
}
