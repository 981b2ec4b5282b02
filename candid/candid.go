// Package candid checks Candid service compatibility by delegating to an
// external comparator.
package candid

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-metadata/errors"
)

// DefaultDidcPath is the didc binary looked up on PATH.
const DefaultDidcPath = "didc"

// Comparator decides whether a new service interface can replace the
// original one. A nil error means compatible.
type Comparator interface {
	Compare(ctx context.Context, newInterface, originalInterface string) error
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(ctx context.Context, newInterface, originalInterface string) error

// Compare calls f.
func (f ComparatorFunc) Compare(ctx context.Context, newInterface, originalInterface string) error {
	return f(ctx, newInterface, originalInterface)
}

// Didc compares interfaces with `didc check <new> <original>`.
type Didc struct {
	// Path to the didc binary. Empty means DefaultDidcPath.
	Path string
}

// Compare writes both interfaces to temporary files and runs didc. A
// non-zero exit is reported as incompatible with didc's output as cause;
// failing to run didc at all is reported as a plain candid error.
func (d Didc) Compare(ctx context.Context, newInterface, originalInterface string) error {
	bin := d.Path
	if bin == "" {
		bin = DefaultDidcPath
	}

	dir, err := os.MkdirTemp("", "wasm-meta-candid-")
	if err != nil {
		return errors.Wrap(errors.PhaseCandid, errors.KindInvalidInput, err, "create temp dir")
	}
	defer os.RemoveAll(dir)

	newPath := filepath.Join(dir, "new.did")
	origPath := filepath.Join(dir, "original.did")
	if err := os.WriteFile(newPath, []byte(newInterface), 0o600); err != nil {
		return errors.Wrap(errors.PhaseCandid, errors.KindInvalidInput, err, "write new interface")
	}
	if err := os.WriteFile(origPath, []byte(originalInterface), 0o600); err != nil {
		return errors.Wrap(errors.PhaseCandid, errors.KindInvalidInput, err, "write original interface")
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "check", newPath, origPath)
	cmd.Stdout = &out
	cmd.Stderr = &out

	Logger().Debug("running candid comparator", zap.String("didc", bin))
	err = cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			msg = exitErr.Error()
		}
		return errors.Incompatible(fmt.Errorf("%s", msg))
	}
	return errors.Wrap(errors.PhaseCandid, errors.KindInvalidInput, err, fmt.Sprintf("run %s", bin))
}

// IsCompatible reports whether c accepts newInterface as a replacement
// for originalInterface. Any comparator error, including failing to run
// the comparator, counts as incompatible.
func IsCompatible(ctx context.Context, c Comparator, newInterface, originalInterface string) bool {
	err := c.Compare(ctx, newInterface, originalInterface)
	if err != nil {
		Logger().Debug("candid interfaces incompatible", zap.Error(err))
	}
	return err == nil
}

// CompatibleFiles reads two .did files and compares them. Missing files
// are errors; an incompatible pair is (false, nil).
func CompatibleFiles(ctx context.Context, c Comparator, newPath, originalPath string) (bool, error) {
	newText, err := readCandid(newPath)
	if err != nil {
		return false, err
	}
	origText, err := readCandid(originalPath)
	if err != nil {
		return false, err
	}
	return IsCompatible(ctx, c, newText, origText), nil
}

func readCandid(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound("Candid file", path)
		}
		return "", errors.Wrap(errors.PhaseCandid, errors.KindInvalidInput, err, "read "+path)
	}
	return string(data), nil
}
