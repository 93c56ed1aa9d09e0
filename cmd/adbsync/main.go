package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/openadb/adbsync/internal/fsys"
	"github.com/openadb/adbsync/internal/logging"
	"github.com/openadb/adbsync/internal/syncer"
	"github.com/openadb/adbsync/internal/utils"
	"github.com/openadb/adbsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _           = os.UserHomeDir()
	defaultConfigPath = filepath.Join(home, ".adbsync", "config.json")
)

var red = color.New(color.FgHiRed, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:     "adbsync [flags] LOCAL... ANDROID",
	Short:   "Synchronize a local file tree with an Android device over adb",
	Version: version.Detailed(),
	Args:    cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetCount("verbose")
		quiet, _ := cmd.Flags().GetCount("quiet")
		noColor := viper.GetBool("no_color") || !isatty.IsTerminal(os.Stderr.Fd())
		closeLog, err := logging.Setup(verbose, quiet, viper.GetString("log_file"), noColor)
		if err != nil {
			return err
		}
		defer closeLog()

		cmd.SilenceUsage = true

		locals := make([]string, 0, len(args)-1)
		for _, arg := range args[:len(args)-1] {
			resolved, err := utils.ResolvePath(arg)
			if err != nil {
				return fmt.Errorf("local path %q: %w", arg, err)
			}
			locals = append(locals, resolved)
		}
		remote := args[len(args)-1]

		pull, _ := cmd.Flags().GetBool("reverse")
		pairs, err := syncer.BuildPairs(locals, remote, pull)
		if err != nil {
			return err
		}

		excludes, err := collectExcludes(cmd)
		if err != nil {
			return err
		}

		opts := syncer.Options{
			Pull:           pull,
			TwoWay:         flagBool(cmd, "two-way"),
			Delete:         flagBool(cmd, "delete"),
			DeleteExcluded: flagBool(cmd, "delete-excluded"),
			Force:          flagBool(cmd, "force"),
			NoClobber:      flagBool(cmd, "no-clobber"),
			CopyLinks:      flagBool(cmd, "copy-links"),
			PreserveTimes:  flagBool(cmd, "times"),
			DryRun:         flagBool(cmd, "dry-run"),
			Excludes:       excludes,
		}

		adb := adbInvocation(cmd)
		progress := flagBool(cmd, "show-progress")
		return syncer.Run(cmd.Context(), fsys.NewLocalFS(adb, progress), fsys.NewAdbFS(adb, progress), pairs, opts)
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().BoolP("reverse", "R", false, "sync from the device to the local tree (pull)")
	rootCmd.Flags().BoolP("two-way", "2", false, "sync in both directions; the newer minute wins")
	rootCmd.Flags().BoolP("times", "t", false, "preserve access/modification times")
	rootCmd.Flags().Bool("delete", false, "delete destination entries missing on the source")
	rootCmd.Flags().Bool("delete-excluded", false, "delete destination entries matched by exclude patterns")
	rootCmd.Flags().Bool("force", false, "allow replacing a directory with a file and vice versa")
	rootCmd.Flags().Bool("no-clobber", false, "never overwrite existing destination entries")
	rootCmd.Flags().BoolP("copy-links", "L", false, "follow symlinks instead of skipping them")
	rootCmd.Flags().BoolP("dry-run", "n", false, "log the plan without touching anything")
	rootCmd.Flags().Bool("show-progress", false, "show adb's own push/pull transfer progress")
	rootCmd.Flags().StringArray("exclude", nil, "exclude destination-relative paths matching a glob (repeatable)")
	rootCmd.Flags().StringArray("exclude-from", nil, "read exclude globs from a file, one per line (repeatable)")
	rootCmd.Flags().String("adb-bin", "adb", "adb binary to invoke")
	rootCmd.Flags().StringArray("adb-flag", nil, "extra single-letter adb flag, e.g. 'd' (repeatable)")
	rootCmd.Flags().StringArray("adb-option", nil, "extra adb option as KEY=VALUE, e.g. 's=SERIAL' (repeatable)")
	rootCmd.Flags().String("log-file", "", "also log everything to this file")
	rootCmd.Flags().Bool("no-color", false, "disable colored console output")
	rootCmd.Flags().CountP("verbose", "v", "more console output (repeatable)")
	rootCmd.Flags().CountP("quiet", "q", "less console output (repeatable)")
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".adbsync"))
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read %q: %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("adb_bin", cmd.Flags().Lookup("adb-bin"))
	viper.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	viper.BindPFlag("no_color", cmd.Flags().Lookup("no-color"))

	viper.SetEnvPrefix("ADBSYNC")
	viper.AutomaticEnv()

	return nil
}

// adbInvocation assembles the full adb argv prefix from the binary name
// plus any passthrough flags and options.
func adbInvocation(cmd *cobra.Command) []string {
	argv := []string{viper.GetString("adb_bin")}
	flags, _ := cmd.Flags().GetStringArray("adb-flag")
	for _, f := range flags {
		argv = append(argv, "-"+f)
	}
	options, _ := cmd.Flags().GetStringArray("adb-option")
	for _, opt := range options {
		key, value, found := strings.Cut(opt, "=")
		if !found {
			continue
		}
		argv = append(argv, "-"+key, value)
	}
	return argv
}

func collectExcludes(cmd *cobra.Command) ([]string, error) {
	excludes, _ := cmd.Flags().GetStringArray("exclude")
	files, _ := cmd.Flags().GetStringArray("exclude-from")
	for _, file := range files {
		resolved, err := utils.ResolvePath(file)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("exclude-from: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				excludes = append(excludes, line)
			}
		}
	}
	return excludes, nil
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
