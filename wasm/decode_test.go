package wasm_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/wippyai/wasm-metadata/internal/wasmtest"
	"github.com/wippyai/wasm-metadata/wasm"
)

func TestParseMinimalModule(t *testing.T) {
	m, err := wasm.ParseModule(wasmtest.Empty())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if m.Customs.Len() != 0 {
		t.Errorf("expected no custom sections, got %d", m.Customs.Len())
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, io.ErrUnexpectedEOF},
		{"truncated magic", []byte{0x00, 0x61, 0x73}, io.ErrUnexpectedEOF},
		{"bad magic", []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, wasm.ErrInvalidMagic},
		{"missing version", []byte{0x00, 0x61, 0x73, 0x6D}, io.ErrUnexpectedEOF},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, wasm.ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wasm.ParseModule(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if m != nil {
				t.Error("expected nil module on error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			var perr *wasm.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Section != "header" {
				t.Errorf("section: got %q, want header", perr.Section)
			}
		})
	}
}

func TestParseSectionOrder(t *testing.T) {
	tests := []struct {
		name     string
		sections [][]byte
		wantErr  error
	}{
		{
			name:     "canonical",
			sections: [][]byte{wasmtest.SimpleType, wasmtest.SimpleFunction, wasmtest.SimpleCode},
		},
		{
			name:     "function before type",
			sections: [][]byte{wasmtest.SimpleFunction, wasmtest.SimpleType},
			wantErr:  wasm.ErrSectionOrder,
		},
		{
			name:     "duplicate type",
			sections: [][]byte{wasmtest.SimpleType, wasmtest.SimpleType},
			wantErr:  wasm.ErrSectionOrder,
		},
		{
			name:     "tag between memory and global",
			sections: [][]byte{wasmtest.KitchenMemory, wasmtest.KitchenTag, wasmtest.KitchenGlobal},
		},
		{
			name:     "tag after global",
			sections: [][]byte{wasmtest.KitchenGlobal, wasmtest.KitchenTag},
			wantErr:  wasm.ErrSectionOrder,
		},
		{
			name:     "data count before code",
			sections: [][]byte{wasmtest.KitchenDataCount, wasmtest.KitchenCode},
		},
		{
			name:     "custom sections anywhere",
			sections: [][]byte{wasmtest.Custom("a", nil), wasmtest.SimpleType, wasmtest.Custom("b", nil), wasmtest.SimpleFunction, wasmtest.Custom("a", nil)},
		},
		{
			name:     "unknown id",
			sections: [][]byte{wasmtest.Section(0x0E)},
			wantErr:  wasm.ErrUnknownSection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.ParseModule(wasmtest.Module(tt.sections...))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ParseModule: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSectionSize(t *testing.T) {
	t.Run("overrun", func(t *testing.T) {
		data := wasmtest.Module([]byte{0x01, 0x10, 0x00})
		_, err := wasm.ParseModule(data)
		var perr *wasm.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if perr.Section != "type section" {
			t.Errorf("section: got %q", perr.Section)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("expected ErrUnexpectedEOF, got %v", err)
		}
	})

	t.Run("trailing bytes", func(t *testing.T) {
		data := wasmtest.Module(wasmtest.Section(0x01, 0x00, 0xFF))
		_, err := wasm.ParseModule(data)
		if !errors.Is(err, wasm.ErrSectionSize) {
			t.Errorf("expected ErrSectionSize, got %v", err)
		}
	})

	t.Run("oversized leb", func(t *testing.T) {
		data := wasmtest.Module([]byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F})
		if _, err := wasm.ParseModule(data); err == nil {
			t.Error("expected error for overlong section size")
		}
	})

	t.Run("vector length beyond section", func(t *testing.T) {
		data := wasmtest.Module(wasmtest.Section(0x03, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F))
		if _, err := wasm.ParseModule(data); err == nil {
			t.Error("expected error for oversized vector")
		}
	})
}

func TestParseTruncatedModule(t *testing.T) {
	last := wasmtest.Custom("icp:public foo", []byte("bar"))
	data := wasmtest.Simple(last)

	// Every cut inside the final section leaves a declared size that
	// overruns the input.
	for n := len(data) - len(last) + 1; n < len(data); n++ {
		_, err := wasm.ParseModule(data[:n])
		if err == nil {
			t.Fatalf("truncated at %d: expected error", n)
		}
		var perr *wasm.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("truncated at %d: expected *ParseError, got %T", n, err)
		}
	}
}

func TestParseCustomSections(t *testing.T) {
	data := wasmtest.Module(
		wasmtest.Custom("first", []byte{0x01}),
		wasmtest.SimpleType,
		wasmtest.Custom("second", []byte{0x02, 0x03}),
		wasmtest.Custom("first", nil),
	)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	names := m.Customs.Names()
	want := []string{"first", "second", "first"}
	if len(names) != len(want) {
		t.Fatalf("names: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %q, want %q", i, names[i], want[i])
		}
	}

	cs, ok := m.Customs.Get("second")
	if !ok || !bytes.Equal(cs.Data, []byte{0x02, 0x03}) {
		t.Errorf("second: got %v (found %v)", cs.Data, ok)
	}
}

func TestParseCustomSectionInvalidName(t *testing.T) {
	data := wasmtest.Module(wasmtest.Section(0x00, 0x02, 0xFF, 0xFE))
	_, err := wasm.ParseModule(data)
	var perr *wasm.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Section != "custom section" {
		t.Errorf("section: got %q", perr.Section)
	}
}

func TestParseNameSection(t *testing.T) {
	data := wasmtest.Simple(
		wasmtest.Custom(wasm.NameSectionName, []byte{0x00, 0x01, 0x00}),
		wasmtest.Custom("other", nil),
	)

	kept, err := wasm.NewParseConfig(true).Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if kept.Customs.Count(wasm.NameSectionName) != 1 {
		t.Error("expected name section to be kept")
	}
	if !kept.Config().KeepNameSection {
		t.Error("config not recorded on module")
	}

	dropped, err := wasm.NewParseConfig(false).Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dropped.Customs.Count(wasm.NameSectionName) != 0 {
		t.Error("expected name section to be dropped")
	}
	if dropped.Customs.Count("other") != 1 {
		t.Error("unrelated custom section lost")
	}
}

func TestParseKitchenSink(t *testing.T) {
	m, err := wasm.ParseModule(wasmtest.Module(wasmtest.KitchenSections()...))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	if len(m.Types) != 2 || !m.Types[0].Rec || len(m.Types[0].Types) != 2 {
		t.Fatalf("types: %+v", m.Types)
	}
	st := m.Types[0].Types[0]
	if st.Final || !st.Explicit || st.Comp.Form != wasm.StructTypeByte || len(st.Comp.Fields) != 2 {
		t.Errorf("struct subtype: %+v", st)
	}
	if st.Comp.Fields[1].Type.Packed != wasm.PackedI8 {
		t.Errorf("packed field: %+v", st.Comp.Fields[1])
	}
	arr := m.Types[0].Types[1]
	if !arr.Final || len(arr.Parents) != 1 || arr.Comp.Form != wasm.ArrayTypeByte {
		t.Errorf("array subtype: %+v", arr)
	}
	ft := m.Types[1].Func()
	if ft == nil || len(ft.Params) != 1 || ft.Params[0].Code != wasm.ValRef || ft.Params[0].HeapType != -16 {
		t.Errorf("func type: %+v", ft)
	}

	if len(m.Imports) != 1 || m.Imports[0].Module != "env" || m.Imports[0].Desc.TypeIdx != 2 {
		t.Errorf("imports: %+v", m.Imports)
	}
	if len(m.Memories) != 1 || !m.Memories[0].Limits.HasMax() || m.Memories[0].Limits.Max != 2 {
		t.Errorf("memories: %+v", m.Memories)
	}
	if len(m.Tags) != 1 || m.Tags[0].TypeIdx != 2 {
		t.Errorf("tags: %+v", m.Tags)
	}
	if len(m.Globals) != 1 || !bytes.Equal(m.Globals[0].Init, []byte{0x41, 0x2A, 0x0B}) {
		t.Errorf("globals: %+v", m.Globals)
	}
	if m.Start == nil || *m.Start != 1 {
		t.Errorf("start: %v", m.Start)
	}
	if len(m.Elements) != 2 || !m.Elements[1].Passive() || len(m.Elements[1].Exprs) != 1 {
		t.Errorf("elements: %+v", m.Elements)
	}
	if m.DataCount == nil || *m.DataCount != 2 {
		t.Errorf("data count: %v", m.DataCount)
	}
	if len(m.Code) != 1 || len(m.Code[0].Locals) != 1 || m.Code[0].Locals[0].Type != wasm.I32 {
		t.Errorf("code: %+v", m.Code)
	}
	if len(m.Data) != 2 || m.Data[1].Flags != 1 || !bytes.Equal(m.Data[0].Init, []byte("hi")) {
		t.Errorf("data: %+v", m.Data)
	}
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		section []byte
	}{
		{"bad value type", wasmtest.Section(0x01, 0x01, 0x60, 0x01, 0x01, 0x00)},
		{"bad type form", wasmtest.Section(0x01, 0x01, 0x55)},
		{"bad mutability", wasmtest.Section(0x06, 0x01, 0x7F, 0x02, 0x41, 0x00, 0x0B)},
		{"unterminated const expr", wasmtest.Section(0x06, 0x01, 0x7F, 0x00, 0x41, 0x00)},
		{"non-constant opcode", wasmtest.Section(0x06, 0x01, 0x7F, 0x00, 0x20, 0x00, 0x0B)},
		{"limits min over max", wasmtest.Section(0x05, 0x01, 0x01, 0x02, 0x01)},
		{"bad limits flags", wasmtest.Section(0x05, 0x01, 0x08, 0x01)},
		{"bad import kind", wasmtest.Section(0x02, 0x01, 0x01, 'a', 0x01, 'b', 0x07, 0x00)},
		{"bad export kind", wasmtest.Section(0x07, 0x01, 0x01, 'a', 0x09, 0x00)},
		{"bad element flags", wasmtest.Section(0x09, 0x01, 0x08)},
		{"bad data flags", wasmtest.Section(0x0B, 0x01, 0x03)},
		{"body without end", wasmtest.Section(0x0A, 0x01, 0x02, 0x00, 0x01)},
		{"body overrun", wasmtest.Section(0x0A, 0x01, 0x09, 0x00, 0x0B)},
		{"data overrun", wasmtest.Section(0x0B, 0x01, 0x01, 0x05, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.ParseModule(wasmtest.Module(tt.section))
			var perr *wasm.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
		})
	}
}
