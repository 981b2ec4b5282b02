package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-metadata/metadata"
)

func (a *app) candidCommand() *cobra.Command {
	var (
		output     string
		service    string
		visibility string
		initArg    string
	)

	cmd := &cobra.Command{
		Use:   "candid [path to module]",
		Short: "Publish a Candid service interface",
		Long: `Stamp "<visibility> candid:service" from a .did file, plus
"<visibility> candid:args" when --init-arg is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vis, ok := metadata.ParseVisibility(visibility)
			if !ok {
				return fmt.Errorf("--visibility: expected public or private, got %q", visibility)
			}
			text, err := os.ReadFile(service)
			if err != nil {
				return fmt.Errorf("read service: %w", err)
			}
			return a.rewrite(args[0], output, metadata.CandidSections(vis, string(text), initArg))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, stdout when empty")
	cmd.Flags().StringVar(&service, "service", "", "path to the .did service interface")
	cmd.Flags().StringVar(&visibility, "visibility", "public", "public or private")
	cmd.Flags().StringVar(&initArg, "init-arg", "", "Candid text of the init argument")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}
