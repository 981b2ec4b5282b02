package wasm_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wippyai/wasm-metadata/internal/wasmtest"
	"github.com/wippyai/wasm-metadata/wasm"
)

var moduleOpts = cmp.Options{
	cmp.AllowUnexported(wasm.Module{}, wasm.Customs{}),
	cmpopts.EquateEmpty(),
}

func encode(t *testing.T, m *wasm.Module) []byte {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestEncodeEmptyModule(t *testing.T) {
	data := encode(t, &wasm.Module{})
	if !bytes.Equal(data, wasmtest.Header) {
		t.Errorf("got % x, want header only", data)
	}
}

func TestEncodeReproducesCanonicalInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"simple", wasmtest.Simple()},
		{"kitchen sink", wasmtest.Module(wasmtest.KitchenSections()...)},
		{"trailing customs", wasmtest.Simple(wasmtest.Custom("a", []byte{1}), wasmtest.Custom("b", nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wasm.ParseModule(tt.data)
			if err != nil {
				t.Fatalf("ParseModule: %v", err)
			}
			got := encode(t, m)
			if !bytes.Equal(got, tt.data) {
				t.Errorf("re-encoded bytes differ\ngot:  % x\nwant: % x", got, tt.data)
			}
		})
	}
}

func TestEncodeMovesCustomSectionsToEnd(t *testing.T) {
	first := wasmtest.Custom("first", []byte("1"))
	middle := wasmtest.Custom("middle", []byte("2"))
	data := wasmtest.Module(first, wasmtest.SimpleType, middle, wasmtest.SimpleFunction, wasmtest.SimpleCode)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	want := wasmtest.Module(wasmtest.SimpleType, wasmtest.SimpleFunction, wasmtest.SimpleCode, first, middle)
	if got := encode(t, m); !bytes.Equal(got, want) {
		t.Errorf("got % x\nwant % x", got, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	start := uint32(0)
	m := &wasm.Module{
		Types: []wasm.TypeDef{
			wasm.FuncTypeDef(wasm.FuncType{}),
			wasm.FuncTypeDef(wasm.FuncType{Params: []wasm.ValType{wasm.I32, wasm.I64}, Results: []wasm.ValType{wasm.F32}}),
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "mem", Desc: wasm.ExternType{Kind: wasm.KindMemory, Memory: &wasm.Memory{Limits: wasm.Limits{Min: 1}}}},
			{Module: "env", Name: "g", Desc: wasm.ExternType{Kind: wasm.KindGlobal, Global: &wasm.GlobalType{Val: wasm.F64}}},
		},
		Funcs:  []uint32{0, 1},
		Tables: []wasm.Table{{Elem: wasm.FuncRef, Limits: wasm.Limits{Min: 2, Max: 10, Flags: wasm.LimitsHasMax}}},
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{Val: wasm.I64, Mutable: true}, Init: []byte{wasm.OpI64Const, 0x7F, wasm.OpEnd}},
		},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Index: 0}},
		Start:   &start,
		Elements: []wasm.Element{
			{Flags: 2, Table: 0, Offset: []byte{wasm.OpI32Const, 0x01, wasm.OpEnd}, Funcs: []uint32{1}},
		},
		Code: []wasm.FuncBody{
			{Code: []byte{wasm.OpEnd}},
			{Locals: []wasm.Local{{Type: wasm.I32, Count: 3}}, Code: []byte{0x43, 0, 0, 0, 0, wasm.OpEnd}},
		},
		Data: []wasm.DataSegment{
			{Flags: 2, Memory: 0, Offset: []byte{wasm.OpI32Const, 0x10, wasm.OpEnd}, Init: []byte("abc")},
		},
	}
	m.Customs.Add(wasm.CustomSection{Name: "icp:public candid:service", Data: []byte("service : {}")})
	m.SetConfig(wasm.NewParseConfig(true))

	parsed, err := wasm.ParseModule(encode(t, m))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if diff := cmp.Diff(m, parsed, moduleOpts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeGeneratesProducers(t *testing.T) {
	processor := wasm.ProducerValue{Name: "wasm-meta", Version: "0.1.0"}

	t.Run("disabled", func(t *testing.T) {
		m, err := wasm.NewParseConfig(true).Parse(wasmtest.Simple())
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		out, err := wasm.ParseModule(encode(t, m))
		if err != nil {
			t.Fatalf("ParseModule: %v", err)
		}
		if out.Customs.Count(wasm.ProducersSectionName) != 0 {
			t.Error("producers section generated while disabled")
		}
	})

	t.Run("new section", func(t *testing.T) {
		cfg := wasm.ParseConfig{Processor: processor, GenerateProducersSection: true}
		m, err := cfg.Parse(wasmtest.Simple())
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		out, err := wasm.ParseModule(encode(t, m))
		if err != nil {
			t.Fatalf("ParseModule: %v", err)
		}
		cs, ok := out.Customs.Get(wasm.ProducersSectionName)
		if !ok {
			t.Fatal("producers section missing")
		}
		p, err := wasm.ParseProducers(cs.Data)
		if err != nil {
			t.Fatalf("ParseProducers: %v", err)
		}
		if diff := cmp.Diff([]wasm.ProducerValue{processor}, p.Get(wasm.ProducersProcessedBy)); diff != "" {
			t.Errorf("processed-by (-want +got):\n%s", diff)
		}
	})

	t.Run("merge existing", func(t *testing.T) {
		existing := &wasm.Producers{}
		existing.Add(wasm.ProducersLanguage, wasm.ProducerValue{Name: "Rust"})
		existing.Add(wasm.ProducersProcessedBy, wasm.ProducerValue{Name: "wasm-meta", Version: "0.0.1"})

		cfg := wasm.ParseConfig{Processor: processor, GenerateProducersSection: true}
		m, err := cfg.Parse(wasmtest.Simple(wasmtest.Custom(wasm.ProducersSectionName, existing.Encode())))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		out, err := wasm.ParseModule(encode(t, m))
		if err != nil {
			t.Fatalf("ParseModule: %v", err)
		}
		if n := out.Customs.Count(wasm.ProducersSectionName); n != 1 {
			t.Fatalf("expected one producers section, got %d", n)
		}
		cs, _ := out.Customs.Get(wasm.ProducersSectionName)
		p, err := wasm.ParseProducers(cs.Data)
		if err != nil {
			t.Fatalf("ParseProducers: %v", err)
		}
		want := &wasm.Producers{Fields: []wasm.ProducerField{
			{Name: wasm.ProducersLanguage, Values: []wasm.ProducerValue{{Name: "Rust"}}},
			{Name: wasm.ProducersProcessedBy, Values: []wasm.ProducerValue{processor}},
		}}
		if diff := cmp.Diff(want, p); diff != "" {
			t.Errorf("producers (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed existing", func(t *testing.T) {
		cfg := wasm.ParseConfig{Processor: processor, GenerateProducersSection: true}
		m, err := cfg.Parse(wasmtest.Simple(wasmtest.Custom(wasm.ProducersSectionName, []byte{0x05})))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if _, err := m.Encode(); err == nil {
			t.Error("expected error for malformed producers section")
		}
	})
}
