// Package objfile encodes and decodes a compiled internal/program.Program
// as a sectioned binary object file: a magic header carrying the format
// version and integer width, followed by one length-prefixed section per
// program component (.text .main .data .lmeta .link .func .var .incl .c,
// plus debug-only .dbg and string-dedup sections), closed by a terminator
// section. Grounded on the teacher's chunk
// serializer: a magic header plus a sequence of independently-versioned,
// length-prefixed sections written and read with bytes.Buffer +
// encoding/binary, rather than gob or a schema'd format (spec.md §4.7's
// object-file round-trip requirement).
package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

const magic = "DECN"

// Format version; bumped whenever a section's layout changes incompatibly.
const formatVersion = 1

type sectionID byte

const (
	secText sectionID = iota
	secMain
	secData
	secLinkMeta
	secLinkRelocs
	secFunc
	secVar
	secIncl
	secNative
	secDebug
	secStrDedup
	secEnd sectionID = 0xFF
)

// Write serializes p to w as a complete object file.
func Write(w io.Writer, p *program.Program, includes []string) error {
	var buf bytes.Buffer
	buf.WriteString(magic)
	writeU8(&buf, formatVersion)
	writeU8(&buf, widthTag(p.Width))

	writeSection(&buf, secText, encodeText(p.Text, p.Width))
	writeSection(&buf, secMain, encodeU32(uint32(p.MainOffset)))
	writeSection(&buf, secData, p.Data)
	writeSection(&buf, secLinkMeta, encodeLinkTable(p.LinkTable))
	writeSection(&buf, secLinkRelocs, encodeRelocs(p.Relocs))
	writeSection(&buf, secFunc, encodeFuncs(p.Funcs))
	writeSection(&buf, secVar, encodeVars(p.Vars))
	writeSection(&buf, secIncl, encodeStrings(includes))
	writeSection(&buf, secNative, encodeStrings(p.Natives))
	if p.Debug != nil {
		writeSection(&buf, secDebug, encodeDebug(p.Debug))
	}
	if p.StringLiterals != nil {
		writeSection(&buf, secStrDedup, encodeStringLiterals(p.StringLiterals))
	}
	writeU8(&buf, byte(secEnd))

	_, err := w.Write(buf.Bytes())
	return err
}

// Sniff reports whether r begins with the object format's magic header,
// without consuming anything the caller can't itself re-read: it peeks
// len(magic) bytes through a small buffer and then seeks r back to its
// start. Callers that can't seek (a genuine stream) should instead buffer
// the first few bytes themselves and call SniffBytes.
func Sniff(r io.ReadSeeker) bool {
	buf := make([]byte, len(magic))
	n, _ := io.ReadFull(r, buf)
	r.Seek(0, io.SeekStart)
	return n == len(magic) && string(buf) == magic
}

// SniffBytes reports whether buf begins with the object format's magic
// header.
func SniffBytes(buf []byte) bool {
	return len(buf) >= len(magic) && string(buf[:len(magic)]) == magic
}

// Read parses an object file previously produced by Write. includes
// returns the recorded include-path list for the caller (internal/sheet)
// to re-resolve and re-link against, if the object was serialized before
// its includes were merged in.
func Read(r io.Reader) (p *program.Program, includes []string, err error) {
	br := newByteReader(r)

	hdr := make([]byte, 4)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, nil, fmt.Errorf("objfile: reading magic: %w", err)
	}
	if string(hdr) != magic {
		return nil, nil, fmt.Errorf("objfile: bad magic %q", hdr)
	}
	version, err := readU8(br)
	if err != nil {
		return nil, nil, err
	}
	if version != formatVersion {
		return nil, nil, fmt.Errorf("objfile: unsupported version %d", version)
	}
	widthByte, err := readU8(br)
	if err != nil {
		return nil, nil, err
	}
	width, err := widthFromTag(widthByte)
	if err != nil {
		return nil, nil, err
	}

	p = program.New(width)
	for {
		id, err := readU8(br)
		if err != nil {
			return nil, nil, err
		}
		if sectionID(id) == secEnd {
			break
		}
		body, err := readSection(br)
		if err != nil {
			return nil, nil, err
		}
		switch sectionID(id) {
		case secText:
			p.Text, err = decodeText(body, width)
		case secMain:
			p.MainOffset = int(decodeU32(body))
		case secData:
			p.Data = body
		case secLinkMeta:
			p.LinkTable, err = decodeLinkTable(body)
		case secLinkRelocs:
			p.Relocs, err = decodeRelocs(body)
		case secFunc:
			p.Funcs, err = decodeFuncs(body)
		case secVar:
			p.Vars, err = decodeVars(body)
		case secIncl:
			includes, err = decodeStrings(body)
		case secNative:
			p.Natives, err = decodeStrings(body)
		case secDebug:
			p.Debug, err = decodeDebug(body)
		case secStrDedup:
			p.StringLiterals, err = decodeStringLiterals(body)
		default:
			// Unknown section from a newer writer: ignore, forward
			// compatible by construction.
		}
		if err != nil {
			return nil, nil, fmt.Errorf("objfile: decoding section %d: %w", id, err)
		}
	}
	return p, includes, nil
}

func widthTag(w bytecode.IntWidth) byte {
	if w == bytecode.Width64 {
		return 64
	}
	return 32
}

func widthFromTag(b byte) (bytecode.IntWidth, error) {
	switch b {
	case 32:
		return bytecode.Width32, nil
	case 64:
		return bytecode.Width64, nil
	default:
		return 0, fmt.Errorf("objfile: unknown int width tag %d", b)
	}
}

func writeU8(buf *bytes.Buffer, v byte) { buf.WriteByte(v) }

func readU8(r io.ByteReader) (byte, error) { return r.ReadByte() }

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func writeSection(buf *bytes.Buffer, id sectionID, body []byte) {
	buf.WriteByte(byte(id))
	buf.Write(encodeU32(uint32(len(body))))
	buf.Write(body)
}

type byteReader struct {
	io.Reader
}

func newByteReader(r io.Reader) *byteReader { return &byteReader{r} }

func (r *byteReader) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r.Reader, b[:])
	return b[0], err
}

func readSection(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := decodeU32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
