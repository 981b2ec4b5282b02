package candid_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/wippyai/wasm-metadata/candid"
	"github.com/wippyai/wasm-metadata/errors"
)

const (
	serviceV1 = "service : { greet : (text) -> (text) query }"
	serviceV2 = "service : { greet : (text) -> (text) query; ping : () -> () }"
)

// subset treats an interface as compatible when it starts with the original.
var subset = candid.ComparatorFunc(func(_ context.Context, newInterface, originalInterface string) error {
	if strings.HasPrefix(strings.TrimSuffix(newInterface, " }"), strings.TrimSuffix(originalInterface, " }")) {
		return nil
	}
	return errors.Incompatible(nil)
})

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		name     string
		newText  string
		origText string
		want     bool
	}{
		{"identical", serviceV1, serviceV1, true},
		{"extended", serviceV2, serviceV1, true},
		{"narrowed", serviceV1, serviceV2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candid.IsCompatible(context.Background(), subset, tt.newText, tt.origText)
			if got != tt.want {
				t.Errorf("IsCompatible = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompatibleFiles(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.did", serviceV1)
	v2 := writeFile(t, dir, "v2.did", serviceV2)
	ctx := context.Background()

	ok, err := candid.CompatibleFiles(ctx, subset, v2, v1)
	if err != nil || !ok {
		t.Errorf("CompatibleFiles(v2, v1) = %v, %v, want true, nil", ok, err)
	}

	ok, err = candid.CompatibleFiles(ctx, subset, v1, v2)
	if err != nil || ok {
		t.Errorf("CompatibleFiles(v1, v2) = %v, %v, want false, nil", ok, err)
	}
}

func TestCompatibleFilesMissing(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.did", serviceV1)
	missing := filepath.Join(dir, "nope.did")

	for _, args := range [][2]string{{missing, v1}, {v1, missing}} {
		_, err := candid.CompatibleFiles(context.Background(), subset, args[0], args[1])
		if err == nil {
			t.Fatalf("CompatibleFiles(%s, %s) succeeded", args[0], args[1])
		}
		if want := "Candid file not found: " + missing; !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
		var e *errors.Error
		if !errors.As(err, &e) || e.Kind != errors.KindNotFound {
			t.Errorf("error %v is not a not_found error", err)
		}
	}
}

// fakeDidc writes a didc stand-in that accepts only identical files.
func fakeDidc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script comparator")
	}
	script := `#!/bin/sh
[ "$1" = "check" ] || exit 2
if [ "$(cat "$2")" = "$(cat "$3")" ]; then
	exit 0
fi
echo "method ping missing" >&2
exit 1
`
	path := filepath.Join(t.TempDir(), "didc")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDidc(t *testing.T) {
	d := candid.Didc{Path: fakeDidc(t)}
	ctx := context.Background()

	if err := d.Compare(ctx, serviceV1, serviceV1); err != nil {
		t.Errorf("Compare(identical) = %v", err)
	}

	err := d.Compare(ctx, serviceV1, serviceV2)
	if !errors.Is(err, errors.ErrIncompatible) {
		t.Fatalf("Compare(different) = %v, want incompatible", err)
	}
	if !strings.Contains(err.Error(), "method ping missing") {
		t.Errorf("error %q does not carry comparator output", err)
	}
}

func TestDidcMissingBinary(t *testing.T) {
	d := candid.Didc{Path: filepath.Join(t.TempDir(), "no-such-didc")}

	err := d.Compare(context.Background(), serviceV1, serviceV1)
	if err == nil {
		t.Fatal("Compare succeeded without a comparator binary")
	}
	if errors.Is(err, errors.ErrIncompatible) {
		t.Errorf("launch failure reported as incompatible: %v", err)
	}
	if !errors.IsPhase(err, errors.PhaseCandid) {
		t.Errorf("error %v is not a candid phase error", err)
	}
	if candid.IsCompatible(context.Background(), d, serviceV1, serviceV1) {
		t.Error("IsCompatible = true without a comparator binary")
	}
}
