package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/distribution/reference"
	"github.com/fridex/pkgextract/internal"
	"github.com/fridex/pkgextract/internal/extract"
	"github.com/paketo-buildpacks/packit/v2/scribe"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scan())
}

type scanFlags struct {
	root        string
	scope       string
	config      string
	concurrency int
	timeout     time.Duration
	format      string
	output      string
	image       string
	verbose     bool
}

func scan() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "scan a filesystem tree for installed packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, *flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return scanRun(ctx, *flags, config)
		},
	}
	cmd.Flags().StringVar(&flags.root, "root", "", "path to the materialized image filesystem (required)")
	cmd.Flags().StringVar(&flags.scope, "scope", "", "path to a file listing the root-relative paths to scan, one per line")
	cmd.Flags().StringVar(&flags.config, "config", "", "path to a pkgextract.toml config file")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "number of parser workers (default: number of CPUs)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", extract.DefaultTimeout, "maximum time spent parsing a single artifact")
	cmd.Flags().StringVar(&flags.format, "format", internal.FormatJSON, fmt.Sprintf("format of the report, one of (%s)", strings.Join(internal.Formats, ", ")))
	cmd.Flags().StringVar(&flags.output, "output", "", "path to write the report to (default: standard out)")
	cmd.Flags().StringVar(&flags.image, "image", "", "reference of the image the filesystem was taken from, recorded in the report")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log scan progress to standard error")

	err := cmd.MarkFlagRequired("root")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to mark root flag as required")
	}

	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command, flags scanFlags) (internal.Config, error) {
	config := internal.NewConfig()
	if flags.config != "" {
		var err error
		config, err = internal.NewConfigFromFile(flags.config)
		if err != nil {
			return internal.Config{}, err
		}
	}

	if cmd.Flags().Changed("concurrency") {
		config.Concurrency = flags.concurrency
	}

	if cmd.Flags().Changed("timeout") {
		config.Timeout = flags.timeout
	}

	err := config.Validate()
	if err != nil {
		return internal.Config{}, fmt.Errorf("invalid flags: %w", err)
	}

	return config, nil
}

func scanRun(ctx context.Context, flags scanFlags, config internal.Config) (err error) {
	var image string
	if flags.image != "" {
		named, err := reference.ParseNormalizedNamed(flags.image)
		if err != nil {
			return fmt.Errorf("failed to parse image reference: %w", err)
		}

		image = reference.TagNameOnly(named).String()
	}

	var format string
	for _, f := range internal.Formats {
		if flags.format == f {
			format = f
		}
	}
	if format == "" {
		return fmt.Errorf("unknown format %q, please choose from the following formats: %s", flags.format, strings.Join(internal.Formats, ", "))
	}

	scope := extract.Unrestricted()
	if flags.scope != "" {
		scope, err = extract.LoadScope(flags.scope)
		if err != nil {
			return err
		}
	}

	var logWriter io.Writer = io.Discard
	if flags.verbose {
		logWriter = os.Stderr
	}
	logger := scribe.NewLogger(logWriter)

	scanner := extract.NewScanner(append(config.ScannerOptions(), extract.WithLogger(logger))...)
	inventory, err := scanner.Scan(ctx, flags.root, scope)
	if err != nil {
		return err
	}

	var output io.Writer = os.Stdout
	if flags.output != "" {
		var file *os.File
		file, err = os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err2 := file.Close(); err2 != nil && err == nil {
				err = err2
			}
		}()

		output = file
		logger.Process("Writing %s report to %s", format, flags.output)
	}

	err = internal.NewFormatter(output).Format(format, internal.Report{
		Image:     image,
		Inventory: inventory,
	})
	if err != nil {
		return err
	}

	if inventory.Cancelled {
		return errors.New("scan was cancelled, the report is incomplete")
	}

	return err // err should be nil here, but return err to catch deferred error
}
