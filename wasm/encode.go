package wasm

import (
	"errors"
	"fmt"
	"math"

	"github.com/wippyai/wasm-metadata/wasm/internal/binary"
)

// ErrTooLarge is returned when a section or vector exceeds the 32-bit
// size limit of the binary format.
var ErrTooLarge = errors.New("exceeds 4 GiB encoding limit")

// Encode serializes the module. Known sections are written in canonical
// order followed by every custom section in collection order. When the
// module's configuration enables producers generation, the processor is
// merged into the producers section first.
func (m *Module) Encode() ([]byte, error) {
	customs := m.Customs.All()
	if m.config.GenerateProducersSection && m.config.Processor.Name != "" {
		var err error
		if customs, err = withProcessor(customs, m.config.Processor); err != nil {
			return nil, err
		}
	}

	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	e := &encoder{w: w}
	e.vecSection(SectionType, len(m.Types), func(s *binary.Writer, i int) { writeTypeDef(s, m.Types[i]) })
	e.vecSection(SectionImport, len(m.Imports), func(s *binary.Writer, i int) { writeImport(s, m.Imports[i]) })
	e.vecSection(SectionFunction, len(m.Funcs), func(s *binary.Writer, i int) { s.WriteU32(m.Funcs[i]) })
	e.vecSection(SectionTable, len(m.Tables), func(s *binary.Writer, i int) { writeTable(s, m.Tables[i]) })
	e.vecSection(SectionMemory, len(m.Memories), func(s *binary.Writer, i int) { writeLimits(s, m.Memories[i].Limits) })
	e.vecSection(SectionTag, len(m.Tags), func(s *binary.Writer, i int) { writeTag(s, m.Tags[i]) })
	e.vecSection(SectionGlobal, len(m.Globals), func(s *binary.Writer, i int) {
		writeGlobalType(s, m.Globals[i].Type)
		s.WriteBytes(m.Globals[i].Init)
	})
	e.vecSection(SectionExport, len(m.Exports), func(s *binary.Writer, i int) {
		exp := m.Exports[i]
		s.WriteName(exp.Name)
		s.Byte(exp.Kind)
		s.WriteU32(exp.Index)
	})
	if m.Start != nil {
		e.section(SectionStart, func(s *binary.Writer) { s.WriteU32(*m.Start) })
	}
	e.vecSection(SectionElement, len(m.Elements), func(s *binary.Writer, i int) { writeElement(s, m.Elements[i]) })
	if m.DataCount != nil {
		e.section(SectionDataCount, func(s *binary.Writer) { s.WriteU32(*m.DataCount) })
	}
	e.vecSection(SectionCode, len(m.Code), func(s *binary.Writer, i int) { writeFuncBody(s, m.Code[i]) })
	e.vecSection(SectionData, len(m.Data), func(s *binary.Writer, i int) { writeDataSegment(s, m.Data[i]) })

	for _, cs := range customs {
		e.section(SectionCustom, func(s *binary.Writer) {
			s.WriteName(cs.Name)
			s.WriteBytes(cs.Data)
		})
	}

	if e.err != nil {
		return nil, e.err
	}
	return w.Bytes(), nil
}

func withProcessor(customs []CustomSection, v ProducerValue) ([]CustomSection, error) {
	for i, cs := range customs {
		if cs.Name != ProducersSectionName {
			continue
		}
		p, err := ParseProducers(cs.Data)
		if err != nil {
			return nil, err
		}
		p.Add(ProducersProcessedBy, v)
		customs[i].Data = p.Encode()
		return customs, nil
	}
	p := &Producers{}
	p.Add(ProducersProcessedBy, v)
	return append(customs, CustomSection{Name: ProducersSectionName, Data: p.Encode()}), nil
}

type encoder struct {
	w   *binary.Writer
	err error
}

func (e *encoder) section(id byte, body func(*binary.Writer)) {
	if e.err != nil {
		return
	}
	sec := binary.NewWriter()
	body(sec)
	if uint64(sec.Len()) > math.MaxUint32 {
		e.err = fmt.Errorf("%s: %w", sectionName(id), ErrTooLarge)
		return
	}
	e.w.Byte(id)
	e.w.WriteU32(uint32(sec.Len()))
	e.w.WriteBytes(sec.Bytes())
}

// vecSection writes a vector section, skipping it when n is zero.
func (e *encoder) vecSection(id byte, n int, item func(*binary.Writer, int)) {
	if n == 0 {
		return
	}
	e.section(id, func(s *binary.Writer) {
		s.WriteU32(uint32(n))
		for i := 0; i < n; i++ {
			item(s, i)
		}
	})
}

func writeFlag(w *binary.Writer, v bool) {
	if v {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func writeValType(w *binary.Writer, v ValType) {
	w.Byte(v.Code)
	if v.HasHeapType() {
		w.WriteS64(v.HeapType)
	}
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		writeValType(w, t)
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	w.Byte(l.Flags)
	if l.Is64() {
		w.WriteU64(l.Min)
		if l.HasMax() {
			w.WriteU64(l.Max)
		}
		return
	}
	w.WriteU32(uint32(l.Min))
	if l.HasMax() {
		w.WriteU32(uint32(l.Max))
	}
}

func writeTable(w *binary.Writer, t Table) {
	if len(t.Init) > 0 {
		w.Byte(0x40)
		w.Byte(0x00)
	}
	writeValType(w, t.Elem)
	writeLimits(w, t.Limits)
	if len(t.Init) > 0 {
		w.WriteBytes(t.Init)
	}
}

func writeGlobalType(w *binary.Writer, g GlobalType) {
	writeValType(w, g.Val)
	writeFlag(w, g.Mutable)
}

func writeTag(w *binary.Writer, t Tag) {
	w.Byte(t.Attribute)
	w.WriteU32(t.TypeIdx)
}

func writeImport(w *binary.Writer, imp Import) {
	w.WriteName(imp.Module)
	w.WriteName(imp.Name)
	w.Byte(imp.Desc.Kind)
	switch imp.Desc.Kind {
	case KindFunc:
		w.WriteU32(imp.Desc.TypeIdx)
	case KindTable:
		writeTable(w, *imp.Desc.Table)
	case KindMemory:
		writeLimits(w, imp.Desc.Memory.Limits)
	case KindGlobal:
		writeGlobalType(w, *imp.Desc.Global)
	case KindTag:
		writeTag(w, *imp.Desc.Tag)
	}
}

func writeTypeDef(w *binary.Writer, td TypeDef) {
	if td.Rec {
		w.Byte(RecTypeByte)
		w.WriteU32(uint32(len(td.Types)))
		for _, sub := range td.Types {
			writeSubType(w, sub)
		}
		return
	}
	for _, sub := range td.Types {
		writeSubType(w, sub)
	}
}

func writeSubType(w *binary.Writer, sub SubType) {
	if sub.Explicit || len(sub.Parents) > 0 || !sub.Final {
		if sub.Final {
			w.Byte(SubFinalByte)
		} else {
			w.Byte(SubTypeByte)
		}
		w.WriteU32(uint32(len(sub.Parents)))
		for _, p := range sub.Parents {
			w.WriteU32(p)
		}
	}
	writeCompType(w, sub.Comp)
}

func writeCompType(w *binary.Writer, ct CompType) {
	w.Byte(ct.Form)
	switch ct.Form {
	case FuncTypeByte:
		var ft FuncType
		if ct.Func != nil {
			ft = *ct.Func
		}
		writeValTypes(w, ft.Params)
		writeValTypes(w, ft.Results)
	case StructTypeByte:
		w.WriteU32(uint32(len(ct.Fields)))
		for _, f := range ct.Fields {
			writeFieldType(w, f)
		}
	case ArrayTypeByte:
		if len(ct.Fields) > 0 {
			writeFieldType(w, ct.Fields[0])
		}
	}
}

func writeFieldType(w *binary.Writer, f FieldType) {
	if f.Type.Packed != 0 {
		w.Byte(f.Type.Packed)
	} else {
		writeValType(w, f.Type.Val)
	}
	writeFlag(w, f.Mutable)
}

func writeElement(w *binary.Writer, e Element) {
	w.WriteU32(e.Flags)
	active := e.Flags&0x01 == 0
	usesExprs := e.Flags&0x04 != 0

	if active && e.Flags&0x02 != 0 {
		w.WriteU32(e.Table)
	}
	if active {
		w.WriteBytes(e.Offset)
	}
	if e.Flags&0x03 != 0 {
		if usesExprs {
			writeValType(w, e.RefType)
		} else {
			w.Byte(e.ElemKind)
		}
	}

	if usesExprs {
		w.WriteU32(uint32(len(e.Exprs)))
		for _, expr := range e.Exprs {
			w.WriteBytes(expr)
		}
		return
	}
	w.WriteU32(uint32(len(e.Funcs)))
	for _, idx := range e.Funcs {
		w.WriteU32(idx)
	}
}

func writeFuncBody(w *binary.Writer, body FuncBody) {
	b := binary.NewWriter()
	b.WriteU32(uint32(len(body.Locals)))
	for _, l := range body.Locals {
		b.WriteU32(l.Count)
		writeValType(b, l.Type)
	}
	b.WriteBytes(body.Code)
	w.WriteU32(uint32(b.Len()))
	w.WriteBytes(b.Bytes())
}

func writeDataSegment(w *binary.Writer, d DataSegment) {
	w.WriteU32(d.Flags)
	if d.Flags == 2 {
		w.WriteU32(d.Memory)
	}
	if d.Flags != 1 {
		w.WriteBytes(d.Offset)
	}
	w.WriteU32(uint32(len(d.Init)))
	w.WriteBytes(d.Init)
}
