package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-metadata/binding"
	"github.com/wippyai/wasm-metadata/metadata"
)

func (a *app) addCommand() *cobra.Command {
	var (
		output    string
		fromJSON  string
		fromFiles []string
		inline    []string
	)

	cmd := &cobra.Command{
		Use:   "add [path to module]",
		Short: "Replace custom sections",
		Long: `Replace custom sections of a raw or gzip compressed module and write the
uncompressed result. Sections are applied in the order --json, --section,
--data; when a name repeats the last value wins. --section payloads are
stored verbatim and may be binary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sections []metadata.CustomSection

			if fromJSON != "" {
				text, err := os.ReadFile(fromJSON)
				if err != nil {
					return fmt.Errorf("read sections: %w", err)
				}
				list, err := binding.DecodeJSON(text)
				if err != nil {
					return err
				}
				sections = append(sections, list...)
			}

			for _, assign := range fromFiles {
				name, path, err := splitAssignment(assign)
				if err != nil {
					return fmt.Errorf("--section: %w", err)
				}
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("--section %s: %w", name, err)
				}
				sections = append(sections, metadata.CustomSection{Name: name, Data: string(text)})
			}

			for _, assign := range inline {
				name, text, err := splitAssignment(assign)
				if err != nil {
					return fmt.Errorf("--data: %w", err)
				}
				sections = append(sections, metadata.CustomSection{Name: name, Data: text})
			}

			return a.rewrite(args[0], output, sections)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, stdout when empty")
	cmd.Flags().StringVar(&fromJSON, "json", "", `file holding a JSON array of {"name", "data"} objects`)
	cmd.Flags().StringArrayVar(&fromFiles, "section", nil, "NAME=FILE, section payload read from FILE (repeatable)")
	cmd.Flags().StringArrayVar(&inline, "data", nil, "NAME=TEXT, inline section payload (repeatable)")

	return cmd
}

// rewrite runs the pipeline from input to output.
func (a *app) rewrite(input, output string, sections []metadata.CustomSection) error {
	data, err := a.readModule(input)
	if err != nil {
		return err
	}

	out, err := a.cfg.options().AddCustomSections(data, sections)
	if err != nil {
		return err
	}

	a.log.Info("rewrote module",
		zap.String("input", input),
		zap.Int("sections", len(sections)),
		zap.Int("in_bytes", len(data)),
		zap.Int("out_bytes", len(out)))
	return a.writeModule(output, out)
}

func splitAssignment(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected NAME=VALUE, got %q", s)
	}
	return name, value, nil
}
