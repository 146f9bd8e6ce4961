package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treedata/treeobj"
	"github.com/treedata/treeobj/internal/odb"
)

var rootCmd = &cobra.Command{
	Use:   "treeobj",
	Short: "Content-addressable tree store CLI",
	Long:  "Snapshot directory trees into a content-addressable store, then diff, merge, patch and check them out.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/treeobj/config.yaml)")
	rootCmd.PersistentFlags().String("store-dir", "", "object store directory (default: ~/.local/share/treeobj)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	viper.BindPFlag("store_dir", rootCmd.PersistentFlags().Lookup("store-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TREEOBJ")
	viper.AutomaticEnv()
	viper.SetDefault("store_dir", defaultStoreDir())
	viper.SetDefault("compression_level", 2)

	viper.ReadInConfig()

	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "treeobj")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "treeobj")
	}
	return ".treeobj"
}

func defaultStoreDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "treeobj")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "treeobj")
	}
	return ".treeobj"
}

func openDB() (*odb.DB, error) {
	return odb.Open(treeobj.NewOsFS(), viper.GetString("store_dir"),
		odb.WithCompression(viper.GetInt("compression_level")))
}

// resolveOid expands a short oid argument to a full digest. "-" reads
// the oid from stdin.
func resolveOid(ctx context.Context, store treeobj.ObjectStore, arg string) (treeobj.Digest, error) {
	if arg == "-" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		arg = strings.TrimSpace(line)
	}
	oid, err := store.ResolvePrefix(ctx, arg)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	return oid, nil
}
