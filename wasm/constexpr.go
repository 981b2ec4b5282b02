package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-metadata/wasm/internal/binary"
)

// readConstExpr consumes a constant expression up to and including its
// end opcode and returns the raw bytes. Immediates are decoded only to
// find instruction boundaries; the result re-encodes verbatim.
func readConstExpr(r *binary.Reader) ([]byte, error) {
	mark := r.Mark()
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated constant expression: %w", err)
		}
		if op == OpEnd {
			return r.Since(mark), nil
		}
		if err := skipConstImmediate(r, op); err != nil {
			return nil, err
		}
	}
}

func skipConstImmediate(r *binary.Reader, op byte) error {
	var err error
	switch op {
	case OpI32Const:
		_, err = r.ReadS32()
	case OpI64Const:
		_, err = r.ReadS64()
	case OpF32Const:
		err = r.Skip(4)
	case OpF64Const:
		err = r.Skip(8)
	case OpGlobalGet, OpRefFunc:
		_, err = r.ReadU32()
	case OpRefNull:
		_, err = r.ReadS33()
	case OpI32Add, OpI32Sub, OpI32Mul, OpI64Add, OpI64Sub, OpI64Mul:
	case OpPrefixSIMD:
		var sub uint32
		if sub, err = r.ReadU32(); err != nil {
			break
		}
		if sub != SimdV128Const {
			return fmt.Errorf("simd opcode 0x%x not allowed in constant expression", sub)
		}
		err = r.Skip(16)
	case OpPrefixGC:
		err = skipGCConstImmediate(r)
	default:
		return fmt.Errorf("opcode 0x%02x not allowed in constant expression", op)
	}
	return err
}

func skipGCConstImmediate(r *binary.Reader) error {
	sub, err := r.ReadU32()
	if err != nil {
		return err
	}
	switch sub {
	case GCStructNew, GCStructNewDefault, GCArrayNew, GCArrayNewDefault:
		_, err = r.ReadU32()
	case GCArrayNewFixed, GCArrayNewData, GCArrayNewElem:
		if _, err = r.ReadU32(); err == nil {
			_, err = r.ReadU32()
		}
	case GCAnyConvertExtern, GCExternConvertAny, GCRefI31:
	default:
		return fmt.Errorf("gc opcode 0x%x not allowed in constant expression", sub)
	}
	return err
}
