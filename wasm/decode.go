package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-metadata/wasm/internal/binary"
)

// Parse decodes a WebAssembly binary. data must start with the wasm
// magic number; compressed input has to be inflated by the caller.
// On failure the returned error is a *ParseError and no module is
// returned.
func (c ParseConfig) Parse(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, &ParseError{Section: "header", Offset: r.Offset(), Err: err}
	}
	if magic != Magic {
		return nil, &ParseError{Section: "header", Offset: 0, Err: ErrInvalidMagic}
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, &ParseError{Section: "header", Offset: r.Offset(), Err: err}
	}
	if version != Version {
		return nil, &ParseError{Section: "header", Offset: 4, Err: fmt.Errorf("%w: %d", ErrInvalidVersion, version)}
	}

	d := &decoder{cfg: c, m: &Module{config: c}}
	lastOrder := 0

	for r.Len() > 0 {
		headerOffset := r.Offset()
		id, err := r.ReadByte()
		if err != nil {
			return nil, &ParseError{Section: "section header", Offset: headerOffset, Err: err}
		}
		name := sectionName(id)

		size, err := r.ReadU32()
		if err != nil {
			return nil, &ParseError{Section: name, Offset: r.Offset(), Err: fmt.Errorf("section size: %w", err)}
		}
		body, err := r.Sub(int(size))
		if err != nil {
			return nil, &ParseError{
				Section: name,
				Offset:  r.Offset(),
				Err:     fmt.Errorf("declared size %d exceeds remaining %d bytes: %w", size, r.Len(), err),
			}
		}

		if id != SectionCustom {
			order := sectionOrder(id)
			if order == 0 {
				return nil, &ParseError{Section: name, Offset: headerOffset, Err: ErrUnknownSection}
			}
			if order <= lastOrder {
				return nil, &ParseError{Section: name, Offset: headerOffset, Err: ErrSectionOrder}
			}
			lastOrder = order
		}

		if err := d.section(id, body); err != nil {
			return nil, &ParseError{Section: name, Offset: body.Offset(), Err: err}
		}
		if body.Len() != 0 {
			return nil, &ParseError{
				Section: name,
				Offset:  body.Offset(),
				Err:     fmt.Errorf("%w: %d trailing bytes", ErrSectionSize, body.Len()),
			}
		}
	}

	return d.m, nil
}

// sectionOrder maps a known section ID to its canonical position, which
// differs from the numeric ID for tag and data count sections. Unknown
// IDs map to 0.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 0
	}
}

type decoder struct {
	m   *Module
	cfg ParseConfig
}

func (d *decoder) section(id byte, r *binary.Reader) error {
	m := d.m
	var err error
	switch id {
	case SectionCustom:
		err = d.custom(r)
	case SectionType:
		m.Types, err = vec(r, readTypeDef)
	case SectionImport:
		m.Imports, err = vec(r, readImport)
	case SectionFunction:
		m.Funcs, err = vec(r, (*binary.Reader).ReadU32)
	case SectionTable:
		m.Tables, err = vec(r, readTable)
	case SectionMemory:
		m.Memories, err = vec(r, readMemory)
	case SectionTag:
		m.Tags, err = vec(r, readTag)
	case SectionGlobal:
		m.Globals, err = vec(r, readGlobal)
	case SectionExport:
		m.Exports, err = vec(r, readExport)
	case SectionStart:
		var idx uint32
		idx, err = r.ReadU32()
		m.Start = &idx
	case SectionElement:
		m.Elements, err = vec(r, readElement)
	case SectionDataCount:
		var n uint32
		n, err = r.ReadU32()
		m.DataCount = &n
	case SectionCode:
		m.Code, err = vec(r, readFuncBody)
	case SectionData:
		m.Data, err = vec(r, readDataSegment)
	}
	return err
}

func (d *decoder) custom(r *binary.Reader) error {
	name, err := r.ReadName()
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	data, err := r.ReadRemaining()
	if err != nil {
		return err
	}
	if name == NameSectionName && !d.cfg.KeepNameSection {
		return nil
	}
	d.m.Customs.Add(CustomSection{Name: name, Data: data})
	return nil
}

// vec decodes a length-prefixed vector. Every element occupies at least
// one byte, so counts larger than the remaining input are rejected before
// allocating.
func vec[T any](r *binary.Reader, read func(*binary.Reader) (T, error)) ([]T, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("vector length: %w", err)
	}
	if int64(n) > int64(r.Len()) {
		return nil, fmt.Errorf("vector length %d exceeds remaining %d bytes", n, r.Len())
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := read(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func isValTypeCode(b byte) bool {
	switch {
	case b >= ValV128 && b <= ValI32:
		return true
	case b >= 0x69 && b <= 0x74:
		// funcref, externref and the GC abstract reference shorthands
		return true
	case b == ValRef || b == ValRefNull:
		return true
	}
	return false
}

func readValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return ValType{}, err
	}
	return readValTypeFrom(r, b)
}

func readValTypeFrom(r *binary.Reader, b byte) (ValType, error) {
	if !isValTypeCode(b) {
		return ValType{}, fmt.Errorf("invalid value type 0x%02x", b)
	}
	v := ValType{Code: b}
	if v.HasHeapType() {
		ht, err := r.ReadS33()
		if err != nil {
			return ValType{}, fmt.Errorf("heap type: %w", err)
		}
		v.HeapType = ht
	}
	return v, nil
}

func readFlag(r *binary.Reader, what string) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid %s flag 0x%02x", what, b)
	}
}

func readTypeDef(r *binary.Reader) (TypeDef, error) {
	form, err := r.ReadByte()
	if err != nil {
		return TypeDef{}, err
	}
	if form == RecTypeByte {
		subs, err := vec(r, readSubType)
		if err != nil {
			return TypeDef{}, fmt.Errorf("rec group: %w", err)
		}
		return TypeDef{Rec: true, Types: subs}, nil
	}
	sub, err := readSubTypeForm(r, form)
	if err != nil {
		return TypeDef{}, err
	}
	return TypeDef{Types: []SubType{sub}}, nil
}

func readSubType(r *binary.Reader) (SubType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return SubType{}, err
	}
	return readSubTypeForm(r, form)
}

func readSubTypeForm(r *binary.Reader, form byte) (SubType, error) {
	if form != SubTypeByte && form != SubFinalByte {
		comp, err := readCompType(r, form)
		if err != nil {
			return SubType{}, err
		}
		return SubType{Final: true, Comp: comp}, nil
	}

	parents, err := vec(r, (*binary.Reader).ReadU32)
	if err != nil {
		return SubType{}, fmt.Errorf("supertypes: %w", err)
	}
	compForm, err := r.ReadByte()
	if err != nil {
		return SubType{}, err
	}
	comp, err := readCompType(r, compForm)
	if err != nil {
		return SubType{}, err
	}
	return SubType{
		Comp:     comp,
		Parents:  parents,
		Final:    form == SubFinalByte,
		Explicit: true,
	}, nil
}

func readCompType(r *binary.Reader, form byte) (CompType, error) {
	switch form {
	case FuncTypeByte:
		params, err := vec(r, readValType)
		if err != nil {
			return CompType{}, fmt.Errorf("params: %w", err)
		}
		results, err := vec(r, readValType)
		if err != nil {
			return CompType{}, fmt.Errorf("results: %w", err)
		}
		return CompType{Form: form, Func: &FuncType{Params: params, Results: results}}, nil
	case StructTypeByte:
		fields, err := vec(r, readFieldType)
		if err != nil {
			return CompType{}, fmt.Errorf("struct fields: %w", err)
		}
		return CompType{Form: form, Fields: fields}, nil
	case ArrayTypeByte:
		elem, err := readFieldType(r)
		if err != nil {
			return CompType{}, fmt.Errorf("array element: %w", err)
		}
		return CompType{Form: form, Fields: []FieldType{elem}}, nil
	default:
		return CompType{}, fmt.Errorf("invalid type form 0x%02x", form)
	}
}

func readFieldType(r *binary.Reader) (FieldType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return FieldType{}, err
	}
	var st StorageType
	if b == PackedI8 || b == PackedI16 {
		st.Packed = b
	} else {
		st.Val, err = readValTypeFrom(r, b)
		if err != nil {
			return FieldType{}, err
		}
	}
	mut, err := readFlag(r, "mutability")
	if err != nil {
		return FieldType{}, err
	}
	return FieldType{Type: st, Mutable: mut}, nil
}

func readImport(r *binary.Reader) (Import, error) {
	module, err := r.ReadName()
	if err != nil {
		return Import{}, fmt.Errorf("module name: %w", err)
	}
	name, err := r.ReadName()
	if err != nil {
		return Import{}, fmt.Errorf("field name: %w", err)
	}
	kind, err := r.ReadByte()
	if err != nil {
		return Import{}, err
	}

	imp := Import{Module: module, Name: name, Desc: ExternType{Kind: kind}}
	switch kind {
	case KindFunc:
		imp.Desc.TypeIdx, err = r.ReadU32()
	case KindTable:
		var t Table
		t, err = readTable(r)
		imp.Desc.Table = &t
	case KindMemory:
		var mem Memory
		mem, err = readMemory(r)
		imp.Desc.Memory = &mem
	case KindGlobal:
		var gt GlobalType
		gt, err = readGlobalType(r)
		imp.Desc.Global = &gt
	case KindTag:
		var tag Tag
		tag, err = readTag(r)
		imp.Desc.Tag = &tag
	default:
		return Import{}, fmt.Errorf("import %s.%s: unknown kind 0x%02x", module, name, kind)
	}
	if err != nil {
		return Import{}, fmt.Errorf("import %s.%s: %w", module, name, err)
	}
	return imp, nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flags&^(LimitsHasMax|LimitsShared|LimitsMemory64) != 0 {
		return Limits{}, fmt.Errorf("invalid limits flags 0x%02x", flags)
	}
	l := Limits{Flags: flags}

	read := func() (uint64, error) {
		if l.Is64() {
			return r.ReadU64()
		}
		v, err := r.ReadU32()
		return uint64(v), err
	}
	if l.Min, err = read(); err != nil {
		return Limits{}, fmt.Errorf("limits min: %w", err)
	}
	if l.HasMax() {
		if l.Max, err = read(); err != nil {
			return Limits{}, fmt.Errorf("limits max: %w", err)
		}
		if l.Min > l.Max {
			return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, l.Max)
		}
	}
	return l, nil
}

func readTable(r *binary.Reader) (Table, error) {
	first, err := r.ReadByte()
	if err != nil {
		return Table{}, err
	}

	if first != 0x40 {
		elem, err := readValTypeFrom(r, first)
		if err != nil {
			return Table{}, err
		}
		limits, err := readLimits(r)
		if err != nil {
			return Table{}, err
		}
		return Table{Elem: elem, Limits: limits}, nil
	}

	// 0x40 0x00 introduces a table with an initializer expression.
	zero, err := r.ReadByte()
	if err != nil {
		return Table{}, err
	}
	if zero != 0x00 {
		return Table{}, fmt.Errorf("expected 0x00 after 0x40, got 0x%02x", zero)
	}
	elem, err := readValType(r)
	if err != nil {
		return Table{}, err
	}
	limits, err := readLimits(r)
	if err != nil {
		return Table{}, err
	}
	init, err := readConstExpr(r)
	if err != nil {
		return Table{}, fmt.Errorf("table initializer: %w", err)
	}
	return Table{Elem: elem, Limits: limits, Init: init}, nil
}

func readMemory(r *binary.Reader) (Memory, error) {
	limits, err := readLimits(r)
	if err != nil {
		return Memory{}, err
	}
	return Memory{Limits: limits}, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	val, err := readValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := readFlag(r, "mutability")
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{Val: val, Mutable: mut}, nil
}

func readGlobal(r *binary.Reader) (Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := readConstExpr(r)
	if err != nil {
		return Global{}, fmt.Errorf("global initializer: %w", err)
	}
	return Global{Type: gt, Init: init}, nil
}

func readTag(r *binary.Reader) (Tag, error) {
	attr, err := r.ReadByte()
	if err != nil {
		return Tag{}, err
	}
	if attr != 0 {
		return Tag{}, fmt.Errorf("invalid tag attribute 0x%02x", attr)
	}
	idx, err := r.ReadU32()
	if err != nil {
		return Tag{}, err
	}
	return Tag{Attribute: attr, TypeIdx: idx}, nil
}

func readExport(r *binary.Reader) (Export, error) {
	name, err := r.ReadName()
	if err != nil {
		return Export{}, fmt.Errorf("export name: %w", err)
	}
	kind, err := r.ReadByte()
	if err != nil {
		return Export{}, err
	}
	if kind > KindTag {
		return Export{}, fmt.Errorf("export %q: invalid kind 0x%02x", name, kind)
	}
	idx, err := r.ReadU32()
	if err != nil {
		return Export{}, err
	}
	return Export{Name: name, Kind: kind, Index: idx}, nil
}

// readElement decodes one element segment. The flag bits are:
// bit 0 passive or declarative, bit 1 explicit table index (active) or
// declarative (passive), bit 2 expressions instead of function indices.
func readElement(r *binary.Reader) (Element, error) {
	flags, err := r.ReadU32()
	if err != nil {
		return Element{}, err
	}
	if flags > 7 {
		return Element{}, fmt.Errorf("invalid element segment flags %d", flags)
	}
	e := Element{Flags: flags}
	active := flags&0x01 == 0
	usesExprs := flags&0x04 != 0

	if active && flags&0x02 != 0 {
		if e.Table, err = r.ReadU32(); err != nil {
			return Element{}, err
		}
	}
	if active {
		if e.Offset, err = readConstExpr(r); err != nil {
			return Element{}, fmt.Errorf("element offset: %w", err)
		}
	}
	if flags&0x03 != 0 {
		if usesExprs {
			if e.RefType, err = readValType(r); err != nil {
				return Element{}, err
			}
		} else if e.ElemKind, err = r.ReadByte(); err != nil {
			return Element{}, err
		}
	}

	if usesExprs {
		e.Exprs, err = vec(r, readConstExpr)
	} else {
		e.Funcs, err = vec(r, (*binary.Reader).ReadU32)
	}
	if err != nil {
		return Element{}, err
	}
	return e, nil
}

func readLocal(r *binary.Reader) (Local, error) {
	n, err := r.ReadU32()
	if err != nil {
		return Local{}, err
	}
	t, err := readValType(r)
	if err != nil {
		return Local{}, err
	}
	return Local{Count: n, Type: t}, nil
}

func readFuncBody(r *binary.Reader) (FuncBody, error) {
	size, err := r.ReadU32()
	if err != nil {
		return FuncBody{}, fmt.Errorf("body size: %w", err)
	}
	br, err := r.Sub(int(size))
	if err != nil {
		return FuncBody{}, fmt.Errorf("body size %d exceeds remaining %d bytes: %w", size, r.Len(), err)
	}
	locals, err := vec(br, readLocal)
	if err != nil {
		return FuncBody{}, fmt.Errorf("locals: %w", err)
	}
	code, err := br.ReadRemaining()
	if err != nil {
		return FuncBody{}, err
	}
	if len(code) == 0 || code[len(code)-1] != OpEnd {
		return FuncBody{}, fmt.Errorf("function body does not end with end opcode")
	}
	return FuncBody{Locals: locals, Code: code}, nil
}

func readDataSegment(r *binary.Reader) (DataSegment, error) {
	flags, err := r.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	if flags > 2 {
		return DataSegment{}, fmt.Errorf("invalid data segment flags %d", flags)
	}
	seg := DataSegment{Flags: flags}
	if flags == 2 {
		if seg.Memory, err = r.ReadU32(); err != nil {
			return DataSegment{}, err
		}
	}
	if flags != 1 {
		if seg.Offset, err = readConstExpr(r); err != nil {
			return DataSegment{}, fmt.Errorf("data offset: %w", err)
		}
	}
	n, err := r.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	if seg.Init, err = r.ReadBytes(int(n)); err != nil {
		return DataSegment{}, fmt.Errorf("data length %d: %w", n, err)
	}
	return seg, nil
}
