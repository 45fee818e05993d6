package cli

import (
	"fmt"
	"os"

	"github.com/lu-zhengda/gmailwrapper"
	"github.com/lu-zhengda/gmailwrapper/internal/config"
	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"github.com/lu-zhengda/gmailwrapper/internal/store/sqlite"
	"github.com/spf13/cobra"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag    bool
	verboseFlag bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gmailwrapper",
		Short:         "Gmail from the command line",
		Long:          "Read, send and organize Gmail messages, threads, drafts and labels.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("gmailwrapper %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(newAuthCmd())
	root.AddCommand(newMessagesCmd())
	root.AddCommand(newThreadsCmd())
	root.AddCommand(newDraftsCmd())
	root.AddCommand(newLabelsCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newSearchCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", FormatError(err))
		os.Exit(1)
	}
}

// loadConfig loads the configuration from --config or the default location.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newWrapper builds an authenticated client from the loaded configuration.
// Callers must Close it.
func newWrapper() (*gmailwrapper.Wrapper, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return gmailwrapper.New(cfg, gmailwrapper.WithLogger(logging.New(os.Stderr, verboseFlag)))
}

// openCache opens the sqlite cache configured for w.
func openCache(w *gmailwrapper.Wrapper) (*sqlite.DB, error) {
	db, err := sqlite.New(w.Config().CachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return db, nil
}
