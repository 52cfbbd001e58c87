package objfile

import (
	"encoding/binary"
	"fmt"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

func encodeText(ins []bytecode.Instruction, width bytecode.IntWidth) []byte {
	return bytecode.EncodeAll(ins, width)
}

func decodeText(buf []byte, width bytecode.IntWidth) ([]bytecode.Instruction, error) {
	ins, _, err := bytecode.DecodeAll(buf, width)
	return ins, err
}

func encodeString(buf []byte, s string) []byte {
	buf = append(buf, encodeU32(uint32(len(s)))...)
	return append(buf, s...)
}

func decodeString(buf []byte, pos int) (string, int, error) {
	if pos+4 > len(buf) {
		return "", pos, fmt.Errorf("objfile: truncated string length")
	}
	n := int(decodeU32(buf[pos : pos+4]))
	pos += 4
	if pos+n > len(buf) {
		return "", pos, fmt.Errorf("objfile: truncated string body")
	}
	return string(buf[pos : pos+n]), pos + n, nil
}

func encodeStrings(ss []string) []byte {
	var buf []byte
	buf = append(buf, encodeU32(uint32(len(ss)))...)
	for _, s := range ss {
		buf = encodeString(buf, s)
	}
	return buf
}

func decodeStrings(buf []byte) ([]string, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	if count == 0 {
		return nil, nil
	}
	pos := 4
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		pos = next
	}
	return out, nil
}

func encodeLinkTable(recs []program.LinkRecord) []byte {
	var buf []byte
	buf = append(buf, encodeU32(uint32(len(recs)))...)
	for _, r := range recs {
		buf = append(buf, byte(r.Kind))
		buf = encodeString(buf, r.Name)
		buf = append(buf, encodeU32(uint32(r.DataOffset))...)
		buf = append(buf, encodeU32(uint32(r.DataLen))...)
	}
	return buf
}

func decodeLinkTable(buf []byte) ([]program.LinkRecord, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.LinkRecord, 0, count)
	for i := 0; i < count; i++ {
		if pos+1 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated link record kind")
		}
		kind := program.LinkKind(buf[pos])
		pos++
		name, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated link record offsets")
		}
		dataOffset := int(decodeU32(buf[pos : pos+4]))
		dataLen := int(decodeU32(buf[pos+4 : pos+8]))
		pos += 8
		out = append(out, program.LinkRecord{Kind: kind, Name: name, DataOffset: dataOffset, DataLen: dataLen})
	}
	return out, nil
}

func encodeRelocs(relocs []program.Relocation) []byte {
	buf := make([]byte, 0, 4+len(relocs)*8)
	buf = append(buf, encodeU32(uint32(len(relocs)))...)
	for _, r := range relocs {
		buf = append(buf, encodeU32(uint32(r.InstrIndex))...)
		buf = append(buf, encodeU32(uint32(r.LinkIndex))...)
	}
	return buf
}

func decodeRelocs(buf []byte) ([]program.Relocation, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.Relocation, 0, count)
	for i := 0; i < count; i++ {
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated relocation")
		}
		out = append(out, program.Relocation{
			InstrIndex: int(decodeU32(buf[pos : pos+4])),
			LinkIndex:  int(decodeU32(buf[pos+4 : pos+8])),
		})
		pos += 8
	}
	return out, nil
}

func encodeFuncs(fns []program.FuncEntry) []byte {
	var buf []byte
	buf = append(buf, encodeU32(uint32(len(fns)))...)
	for _, f := range fns {
		buf = encodeString(buf, f.Name)
		buf = append(buf, encodeU32(uint32(f.EntryOffset))...)
		buf = append(buf, encodeU32(uint32(f.NumParams))...)
		buf = append(buf, encodeU32(uint32(f.NumReturns))...)
	}
	return buf
}

func decodeFuncs(buf []byte) ([]program.FuncEntry, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.FuncEntry, 0, count)
	for i := 0; i < count; i++ {
		name, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+12 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated func entry")
		}
		out = append(out, program.FuncEntry{
			Name:        name,
			EntryOffset: int(decodeU32(buf[pos : pos+4])),
			NumParams:   int(decodeU32(buf[pos+4 : pos+8])),
			NumReturns:  int(decodeU32(buf[pos+8 : pos+12])),
		})
		pos += 12
	}
	return out, nil
}

func encodeVars(vars []program.VarEntry) []byte {
	var buf []byte
	buf = append(buf, encodeU32(uint32(len(vars)))...)
	for _, v := range vars {
		buf = encodeString(buf, v.Name)
		buf = append(buf, encodeU32(uint32(v.Type))...)
		buf = append(buf, encodeU32(uint32(v.DataOffset))...)
	}
	return buf
}

func decodeVars(buf []byte) ([]program.VarEntry, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.VarEntry, 0, count)
	for i := 0; i < count; i++ {
		name, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated var entry")
		}
		out = append(out, program.VarEntry{
			Name:       name,
			Type:       int(decodeU32(buf[pos : pos+4])),
			DataOffset: int(decodeU32(buf[pos+4 : pos+8])),
		})
		pos += 8
	}
	return out, nil
}

func encodeStringLiterals(entries []program.StringLiteral) []byte {
	var buf []byte
	buf = append(buf, encodeU32(uint32(len(entries)))...)
	for _, sl := range entries {
		buf = encodeString(buf, sl.Value)
		buf = append(buf, encodeU32(uint32(sl.Offset))...)
		buf = append(buf, encodeU32(uint32(sl.Count))...)
	}
	return buf
}

func decodeStringLiterals(buf []byte) ([]program.StringLiteral, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.StringLiteral, 0, count)
	for i := 0; i < count; i++ {
		value, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated string-literal entry")
		}
		out = append(out, program.StringLiteral{
			Value:  value,
			Offset: int(decodeU32(buf[pos : pos+4])),
			Count:  int(decodeU32(buf[pos+4 : pos+8])),
		})
		pos += 8
	}
	return out, nil
}

func encodeDebug(entries []program.DebugEntry) []byte {
	buf := make([]byte, 0, 4+len(entries)*12)
	buf = append(buf, encodeU32(uint32(len(entries)))...)
	for _, d := range entries {
		buf = append(buf, encodeU32(uint32(d.InstrIndex))...)
		buf = append(buf, encodeU32(uint32(d.Node))...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(d.Wire)))
	}
	return buf
}

func decodeDebug(buf []byte) ([]program.DebugEntry, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	count := int(decodeU32(buf[:4]))
	pos := 4
	out := make([]program.DebugEntry, 0, count)
	for i := 0; i < count; i++ {
		if pos+12 > len(buf) {
			return nil, fmt.Errorf("objfile: truncated debug entry")
		}
		out = append(out, program.DebugEntry{
			InstrIndex: int(decodeU32(buf[pos : pos+4])),
			Node:       int(decodeU32(buf[pos+4 : pos+8])),
			Wire:       int(int32(decodeU32(buf[pos+8 : pos+12]))),
		})
		pos += 12
	}
	return out, nil
}
