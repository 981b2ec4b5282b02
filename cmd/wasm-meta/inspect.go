package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-metadata/compression"
	"github.com/wippyai/wasm-metadata/metadata"
	"github.com/wippyai/wasm-metadata/verify"
	"github.com/wippyai/wasm-metadata/wasm"
)

type sectionInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Text bool   `json:"text"`
	Data []byte `json:"-"`
}

type producerInfo struct {
	Field   string `json:"field"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type verifyInfo struct {
	ModuleName string   `json:"module_name,omitempty"`
	Exports    []string `json:"exports"`
	Imports    []string `json:"imports"`
}

type moduleInfo struct {
	Path      string         `json:"path"`
	Encoding  string         `json:"encoding"`
	Size      int            `json:"size"`
	Types     int            `json:"types"`
	Imports   int            `json:"imports"`
	Functions int            `json:"functions"`
	Tables    int            `json:"tables"`
	Memories  int            `json:"memories"`
	Tags      int            `json:"tags"`
	Globals   int            `json:"globals"`
	Exports   int            `json:"exports"`
	Elements  int            `json:"elements"`
	Data      int            `json:"data"`
	Customs   []sectionInfo  `json:"custom_sections"`
	Producers []producerInfo `json:"producers,omitempty"`
	Verified  *verifyInfo    `json:"verified,omitempty"`
}

func (a *app) inspectCommand() *cobra.Command {
	var (
		asJSON      bool
		check       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [path to module]",
		Short: "List the sections of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.inspect(cmd, args[0], check)
			if err != nil {
				return err
			}
			switch {
			case interactive:
				if !isTerminal(a.stdin) || !isTerminal(a.stdout) {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				return runInteractive(info)
			case asJSON:
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				return printInfo(a.stdout, info)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&check, "verify", false, "re-emit the module and validate it with wazero")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse custom sections in a TUI")

	return cmd
}

func (a *app) inspect(cmd *cobra.Command, path string, check bool) (*moduleInfo, error) {
	data, err := a.readModule(path)
	if err != nil {
		return nil, err
	}

	opts := a.cfg.options()
	opts.KeepNameSection = true
	m, err := opts.Load(data)
	if err != nil {
		return nil, err
	}

	info := &moduleInfo{
		Path:      path,
		Encoding:  compression.Detect(data).String(),
		Size:      len(data),
		Types:     len(m.Types),
		Imports:   len(m.Imports),
		Functions: len(m.Code),
		Tables:    len(m.Tables),
		Memories:  len(m.Memories),
		Tags:      len(m.Tags),
		Globals:   len(m.Globals),
		Exports:   len(m.Exports),
		Elements:  len(m.Elements),
		Data:      len(m.Data),
	}

	for _, cs := range m.Customs.All() {
		info.Customs = append(info.Customs, sectionInfo{
			Name: cs.Name,
			Size: len(cs.Data),
			Text: utf8.Valid(cs.Data),
			Data: cs.Data,
		})
	}

	if cs, ok := m.Customs.Get(wasm.ProducersSectionName); ok {
		if p, err := wasm.ParseProducers(cs.Data); err == nil {
			for _, f := range p.Fields {
				for _, v := range f.Values {
					info.Producers = append(info.Producers, producerInfo{Field: f.Name, Name: v.Name, Version: v.Version})
				}
			}
		}
	}

	if check {
		out, err := metadata.Emit(m)
		if err != nil {
			return nil, err
		}
		report, err := verify.Inspect(cmd.Context(), out)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		v := &verifyInfo{ModuleName: report.ModuleName, Exports: report.Exports}
		for _, imp := range report.Imports {
			v.Imports = append(v.Imports, imp.Module+"."+imp.Name)
		}
		info.Verified = v
	}

	return info, nil
}

func printInfo(w io.Writer, info *moduleInfo) error {
	fmt.Fprintf(w, "Module: %s (%s, %d bytes)\n", info.Path, info.Encoding, info.Size)
	fmt.Fprintf(w, "Types: %d  Imports: %d  Functions: %d  Exports: %d\n",
		info.Types, info.Imports, info.Functions, info.Exports)
	fmt.Fprintf(w, "Tables: %d  Memories: %d  Tags: %d  Globals: %d  Elements: %d  Data: %d\n",
		info.Tables, info.Memories, info.Tags, info.Globals, info.Elements, info.Data)

	fmt.Fprintf(w, "\nCustom sections: %d\n", len(info.Customs))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cs := range info.Customs {
		kind := "binary"
		if cs.Text {
			kind = "text"
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", cs.Name, cs.Size, kind)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(info.Producers) > 0 {
		fmt.Fprintln(w, "\nProducers:")
		for _, p := range info.Producers {
			fmt.Fprintf(w, "  %s: %s %s\n", p.Field, p.Name, p.Version)
		}
	}

	if v := info.Verified; v != nil {
		fmt.Fprintln(w, "\nVerified with wazero")
		if v.ModuleName != "" {
			fmt.Fprintf(w, "  name: %s\n", v.ModuleName)
		}
		for _, e := range v.Exports {
			fmt.Fprintf(w, "  export %s\n", e)
		}
		for _, i := range v.Imports {
			fmt.Fprintf(w, "  import %s\n", i)
		}
	}
	return nil
}
