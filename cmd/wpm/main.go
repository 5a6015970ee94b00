package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"wp-migrate/internal/app"
	"wp-migrate/internal/config"
	"wp-migrate/internal/migrate"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when there is
// none, and applies environment overrides.
func loadConfig() (*config.Config, *app.Defaults, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults.ConfigPath, defaults.BaseDir, os.Getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. app.OpImport).
func newApp(operation string) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a line without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:           "wpm",
	Short:         "Migrate a WordPress site into Contentful",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Println("Set CONTENTFUL_SPACE_ID and CONTENTFUL_MANAGEMENT_TOKEN, or space_id and token under [destination].")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		token := "(unset)"
		if cfg.Destination.Token != "" {
			token = "(set)"
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("WordPress:    %s (per_page=%d)\n", cfg.Source.BaseURL, cfg.Source.PerPage)
		fmt.Printf("Contentful:   space=%s environment=%s locale=%s token=%s\n",
			cfg.Destination.SpaceID, cfg.Destination.Environment, cfg.Destination.Locale, token)
		fmt.Printf("Redirects:    %s\n", cfg.Output.RedirectsPath)
		fmt.Printf("Database:     %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Archive:      %s\n", cfg.Archive.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpSetupKeys)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Key pair generated.")
		return nil
	},
}

// model command
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Create or update the Contentful content model",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpProvision)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Provision(cmd.Context()); err != nil {
			return fmt.Errorf("provisioning content model: %w", err)
		}
		fmt.Println("Content model published.")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Migrate every category, tag, author, page and post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpImport)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Import(cmd.Context())
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Run %s\n", a.RunID())
		fmt.Printf("Imported %d categories, %d tags, %d authors, %d pages, %d posts\n",
			len(result.Categories), len(result.Tags), len(result.Authors), len(result.Pages), len(result.Posts))
		fmt.Printf("Wrote %d redirects\n", len(result.Redirects))
		if n := len(result.Warnings); n > 0 {
			fmt.Printf("%d warning(s): wpm warnings %s\n", n, a.RunID())
		}
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove duplicate entries left by interrupted imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		execute, _ := cmd.Flags().GetBool("execute")

		a, err := newApp(app.OpCleanup)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Cleanup(cmd.Context(), execute)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		for _, action := range report.Actions {
			fmt.Println(action)
		}
		verb := "Would remove"
		if execute {
			verb = "Removed"
		}
		for _, kind := range migrate.CleanupOrder {
			if n := report.Counts[kind]; n > 0 {
				fmt.Printf("%s %d %s\n", verb, n, kind)
			}
		}
		fmt.Printf("%s %d entries in total\n", verb, report.Total())
		if !execute && report.Total() > 0 {
			fmt.Println("Dry run; pass --execute to delete.")
		}
		return nil
	},
}

// upload-images command
var uploadImagesCmd = &cobra.Command{
	Use:   "upload-images",
	Short: "Copy the WordPress image library into Contentful assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(app.OpUploadImages)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.UploadImages(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("uploading images: %w", err)
		}

		for _, f := range report.Failures {
			fmt.Printf("FAIL %d %s: %v\n", f.MediaID, f.URL, f.Err)
		}
		fmt.Println(report)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(app.OpHistory)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-12s  %s  %-8s  %-10s  %s\n",
				r.ID,
				r.Operation,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				r.Summary,
			)
		}
		return nil
	},
}

// warnings command
var warningsCmd = &cobra.Command{
	Use:   "warnings RUN_ID",
	Short: "List the lossy operations of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpWarnings)
		if err != nil {
			return err
		}
		defer a.Close()

		warnings, err := a.Warnings(args[0])
		if err != nil {
			return err
		}

		if len(warnings) == 0 {
			fmt.Println("No warnings.")
			return nil
		}
		for _, w := range warnings {
			fmt.Printf("%-10s  wpId=%-6d  %s\n", w.Kind, w.SourceID, w.Reason)
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Access archived run artifacts",
}

var archiveCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured archive is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpCheckArchive)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckArchive(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Archive OK.")
		return nil
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get RUN_ID NAME",
	Short: "Fetch an archived artifact, e.g. redirects.csv or snapshot.json.age",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		runID, name := args[0], args[1]

		a, err := newApp(app.OpGetArtifact)
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if migrate.IsEncryptedArtifact(name) {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		if err := a.GetArtifact(cmd.Context(), runID, name, passphrase, w); err != nil {
			if output != "" && output != "-" {
				os.Remove(output)
			}
			return err
		}
		if output != "" && output != "-" {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// archive subcommands
	archiveCmd.AddCommand(archiveCheckCmd)
	archiveCmd.AddCommand(archiveGetCmd)
	archiveGetCmd.Flags().StringP("output", "o", "", "Write to FILE instead of stdout")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Bool("execute", false, "Delete duplicates instead of only reporting them")
	rootCmd.AddCommand(uploadImagesCmd)
	uploadImagesCmd.Flags().Int("limit", 0, "Upload at most N images (0 for all)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(warningsCmd)
	rootCmd.AddCommand(archiveCmd)
}
