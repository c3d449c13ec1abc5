// Package cmd wires the shelffs commands: the root command mounts a
// library, scan inspects one, and build persists a scan to a catalog.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/shelffs/shelffs/internal/catalog"
	"github.com/shelffs/shelffs/internal/config"
	shelffuse "github.com/shelffs/shelffs/internal/fs"
	"github.com/shelffs/shelffs/internal/metadata"
	"github.com/shelffs/shelffs/internal/nfsmount"
	"github.com/shelffs/shelffs/internal/scan"
	"github.com/shelffs/shelffs/internal/tree"
)

var (
	cfgPath        string
	flagBackend    string
	flagCatalog    string
	flagAllowOther bool
	flagForeground bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	rootCmd.Flags().StringVarP(&flagBackend, "backend", "b", "fuse", "Mount backend (fuse or nfs)")
	rootCmd.Flags().StringVar(&flagCatalog, "catalog", "", "Load books from a catalog database instead of scanning")
	rootCmd.Flags().BoolVar(&flagAllowOther, "allow-other", false, "Allow other users to access the mount")
	rootCmd.Flags().BoolVar(&flagForeground, "foreground", true, "Stay in the foreground")
}

var rootCmd = &cobra.Command{
	Use:   "shelffs [library-root] [mountpoint]",
	Short: "Mount a Calibre-style library as an Author/Series/Title virtual filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		libraryRoot := args[0]
		mountpoint := args[1]

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		// Explicit flags win over config file and environment.
		if cmd.Flags().Changed("backend") {
			cfg.Mount.Backend = flagBackend
		}
		if cmd.Flags().Changed("catalog") {
			cfg.Mount.Catalog = flagCatalog
		}
		if cmd.Flags().Changed("allow-other") {
			cfg.Mount.AllowOther = flagAllowOther
		}
		if cmd.Flags().Changed("foreground") {
			cfg.Mount.Foreground = flagForeground
		}
		if cfg.Mount.Backend != "fuse" && cfg.Mount.Backend != "nfs" {
			return fmt.Errorf("unknown backend %q", cfg.Mount.Backend)
		}

		if !cfg.Mount.Foreground {
			return daemonize()
		}

		log := cfg.Logger()
		slog.SetDefault(log)

		books, err := loadBooks(cfg, log, libraryRoot)
		if err != nil {
			return err
		}

		hot := tree.NewHotSwap(tree.Build(books))
		log.Info("tree_built", "books", len(books))

		// SIGHUP triggers a rescan; the mount keeps serving the old
		// snapshot until the new one swaps in.
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				res, err := scan.New(log).Scan(libraryRoot)
				if err != nil {
					log.Error("rebuild_failed", "error", err)
					continue
				}
				hot.Swap(tree.Build(res.Books))
				log.Info("tree_rebuilt", "books", len(res.Books))
			}
		}()

		switch cfg.Mount.Backend {
		case "nfs":
			return mountNFS(log, hot, books, mountpoint)
		default:
			return mountFUSE(log, hot, mountpoint, cfg.Mount.AllowOther)
		}
	},
}

// loadBooks reads the book set either from a prebuilt catalog or by
// scanning the library root.
func loadBooks(cfg *config.Config, log *slog.Logger, libraryRoot string) ([]metadata.BookMetadata, error) {
	if cfg.Mount.Catalog != "" {
		books, err := catalog.Load(cfg.Mount.Catalog)
		if err != nil {
			return nil, err
		}
		log.Info("catalog_loaded", "path", cfg.Mount.Catalog, "books", len(books))
		return books, nil
	}

	res, err := scan.New(log).Scan(libraryRoot)
	if err != nil {
		return nil, err
	}
	return res.Books, nil
}

func mountFUSE(log *slog.Logger, index tree.Index, mountpoint string, allowOther bool) error {
	host := fuse.NewFileSystemHost(shelffuse.New(index))

	log.Info("mounting", "backend", "fuse", "mountpoint", mountpoint)
	if !host.Mount(mountpoint, shelffuse.MountOptions(allowOther)) {
		return fmt.Errorf("mount %s failed", mountpoint)
	}
	return nil
}

func mountNFS(log *slog.Logger, index tree.Index, books []metadata.BookMetadata, mountpoint string) error {
	srv, err := nfsmount.NewServer(nfsmount.NewShelfFS(index, books))
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	log.Info("mounting", "backend", "nfs", "mountpoint", mountpoint, "port", srv.Port())
	if err := nfsmount.Mount(srv.Port(), mountpoint); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	return nfsmount.Unmount(mountpoint)
}

// daemonize re-execs the current command detached from the terminal, with
// --foreground=true so the child does not recurse.
func daemonize() error {
	args := append([]string{}, os.Args[1:]...)
	args = append(args, "--foreground=true")

	child := exec.Command(os.Args[0], args...)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil

	if err := child.Start(); err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	fmt.Printf("shelffs running in background (pid %d)\n", child.Process.Pid)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
