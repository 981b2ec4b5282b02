package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-metadata/candid"
	"github.com/wippyai/wasm-metadata/metadata"
)

var version = "<unknown>"

// errIncompatible makes check-candid exit non-zero after it has printed
// its verdict.
var errIncompatible = errors.New("interfaces are incompatible")

// app carries state shared by every subcommand.
type app struct {
	v      *viper.Viper
	cfg    config
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		log:    zap.NewNop(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "wasm-meta",
		Short:         "Stamp metadata into WebAssembly modules",
		Long:          "wasm-meta - replace custom sections of raw or gzip compressed WebAssembly modules",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, a.stderr)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = log
			metadata.SetLogger(log.Named("metadata"))
			candid.SetLogger(log.Named("candid"))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			_ = a.log.Sync()
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", defaultLogFormat, "log format (console, json)")
	flags.String("didc", candid.DefaultDidcPath, "path to the didc binary")
	flags.Int64("max-input-size", 0, "cap on the inflated size of gzip input in bytes, 0 for none")
	flags.Bool("keep-name-section", false, "retain the name debug section")
	bindConfig(a.v, flags)

	root.AddCommand(a.addCommand())
	root.AddCommand(a.candidCommand())
	root.AddCommand(a.checkCandidCommand())
	root.AddCommand(a.inspectCommand())

	return root
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCommand().Execute(); err != nil {
		if !errors.Is(err, errIncompatible) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
