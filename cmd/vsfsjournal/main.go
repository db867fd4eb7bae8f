// Command vsfsjournal is the CLI front end for the VSFS write-ahead
// journal: it logs top-level file creations and installs (replays then
// truncates) the committed portion of the journal into the live VSFS
// image.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coldforge/vsfsjournal/internal/backup"
	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/install"
	"github.com/coldforge/vsfsjournal/internal/journal"
	"github.com/coldforge/vsfsjournal/internal/lockutil"
	"github.com/coldforge/vsfsjournal/internal/status"
	"github.com/coldforge/vsfsjournal/internal/txn"
)

const defaultImagePath = "vsfs.img"

var (
	logger    *log.Logger
	requestID string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vsfsjournal",
		Short:         "Crash-safe write-ahead journal for a VSFS image",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringP("image", "i", defaultImagePath, "path to the VSFS image (env VSFSJOURNAL_IMAGE)")
	root.PersistentFlags().String("log-level", "warn", "log verbosity: debug, info, warn, error (env VSFSJOURNAL_LOG_LEVEL)")
	_ = viper.BindPFlag("image", root.PersistentFlags().Lookup("image"))
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newCreateCmd(), newInstallCmd(), newStatusCmd(), newBackupCmd(), newRestoreCmd())
	return root
}

func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("VSFSJOURNAL")
	viper.AutomaticEnv()
	viper.SetConfigName(".vsfsjournal")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // absent config file is not an error

	requestID = uuid.NewString()
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "vsfsjournal",
	})
	logger = logger.With("req", requestID[:8])
	if lvl, err := log.ParseLevel(viper.GetString("log_level")); err == nil {
		logger.SetLevel(lvl)
	}
	return nil
}

func imagePath() string {
	p := viper.GetString("image")
	if p == "" {
		return defaultImagePath
	}
	return p
}

// openDevice takes the advisory exclusive lock and opens the image,
// returning both. The caller must defer lock.Release() and dev.Close().
func openDevice(path string) (*blockio.FileDevice, *lockutil.Lock, error) {
	lock, err := lockutil.Acquire(path)
	if err != nil {
		return nil, nil, err
	}
	dev, err := blockio.OpenFile(path)
	if err != nil {
		lock.Release()
		return nil, nil, err
	}
	return dev, lock, nil
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Log the creation of a top-level regular file to the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path := imagePath()

			dev, lock, err := openDevice(path)
			if err != nil {
				logger.Error("cannot open image", "path", path, "err", err)
				return err
			}
			defer lock.Release()
			defer dev.Close()

			store := journal.NewStore(dev)
			res, err := txn.Create(dev, store, name, uint32(time.Now().Unix()))
			if err != nil {
				logger.Error("create failed", "name", name, "err", err)
				return err
			}

			logger.Debug("transaction committed", "inode", res.InodeNum)
			fmt.Printf("Logged creation of '%s' to journal.\n", name)
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Replay and clear the committed portion of the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := imagePath()

			dev, lock, err := openDevice(path)
			if err != nil {
				logger.Error("cannot open image", "path", path, "err", err)
				return err
			}
			defer lock.Release()
			defer dev.Close()

			store := journal.NewStore(dev)
			n, err := install.Install(dev, store)
			if err != nil {
				logger.Error("install failed", "err", err)
				return err
			}

			fmt.Printf("Installed %d commited transactions from journal.\n", n)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report journal diagnostics without mutating the image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := imagePath()

			dev, lock, err := openDevice(path)
			if err != nil {
				logger.Error("cannot open image", "path", path, "err", err)
				return err
			}
			defer lock.Release()
			defer dev.Close()

			store := journal.NewStore(dev)
			rep, err := status.Inspect(store)
			if err != nil {
				logger.Error("status failed", "err", err)
				return err
			}

			if !rep.Present {
				fmt.Println("journal: absent or corrupt (will be (re)initialized on next create)")
				return nil
			}
			fmt.Printf("journal: %d/%d bytes used, %d committed transaction(s), uncommitted tail: %v\n",
				rep.NBytesUsed, rep.CapacityBytes, rep.Commits, rep.HasUncommitted)

			if verbose {
				free, err := status.FreeInodes(dev, store)
				if err != nil {
					logger.Error("inode scan failed", "err", err)
					return err
				}
				fmt.Printf("free inodes: %v\n", free)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also report free inode numbers")
	return cmd
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dest>",
		Short: "Snapshot the whole image into a snappy-compressed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := imagePath()
			dest := args[0]
			if err := backup.Snapshot(path, dest); err != nil {
				logger.Error("backup failed", "err", err)
				return err
			}
			logger.Info("backup written", "dest", dest)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "restore <src>",
		Short: "Restore a whole image from a snappy-compressed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := imagePath()
			src := args[0]
			if err := backup.Restore(src, path, force); err != nil {
				logger.Error("restore failed", "err", err)
				return err
			}
			logger.Info("image restored", "path", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing non-empty image")
	return cmd
}
