package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var errTerminalOutput = errors.New("refusing to write a binary module to a terminal, use --output")

// readModule reads path, or stdin for "-".
func (a *app) readModule(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	return data, nil
}

// writeModule writes data to path, or stdout when path is empty or "-".
func (a *app) writeModule(path string, data []byte) error {
	if path == "" || path == "-" {
		if isTerminal(a.stdout) {
			return errTerminalOutput
		}
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
