package assets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zlib"
)

const (
	sfntHeaderSize    = 12
	sfntRecordSize    = 16
	woffHeaderSize    = 44
	woffDirEntrySize  = 20
	woffSignature     = 0x774F4646 // "wOFF"
	sfntVersionTrue   = 0x00010000
	sfntVersionOTTO   = 0x4F54544F // "OTTO"
	sfntVersionApple  = 0x74727565 // "true"
	sfntCollectionTag = 0x74746366 // "ttcf"
)

// ErrNotSFNT is returned for input that is not a TrueType or CFF font.
var ErrNotSFNT = errors.New("not a TrueType/OpenType font")

type sfntTable struct {
	tag      uint32
	checksum uint32
	data     []byte
}

// EncodeWOFF wraps a TrueType or OpenType font in a WOFF 1.0 container.
// Each table is zlib-compressed when that makes it smaller.
func EncodeWOFF(font []byte) ([]byte, error) {
	flavor, tables, err := parseSFNT(font)
	if err != nil {
		return nil, err
	}

	totalSfnt := uint32(sfntHeaderSize + sfntRecordSize*len(tables))
	type entry struct {
		tag, offset, compLen, origLen, checksum uint32
		data                                    []byte
	}
	entries := make([]entry, len(tables))
	offset := uint32(woffHeaderSize + woffDirEntrySize*len(tables))
	for i, t := range tables {
		stored, err := compressTable(t.data)
		if err != nil {
			return nil, err
		}
		entries[i] = entry{
			tag:      t.tag,
			offset:   offset,
			compLen:  uint32(len(stored)),
			origLen:  uint32(len(t.data)),
			checksum: t.checksum,
			data:     stored,
		}
		offset += pad4(uint32(len(stored)))
		totalSfnt += pad4(uint32(len(t.data)))
	}
	var buf bytes.Buffer
	buf.Grow(int(offset))
	be := binary.BigEndian
	header := make([]byte, woffHeaderSize)
	be.PutUint32(header[0:], woffSignature)
	be.PutUint32(header[4:], flavor)
	be.PutUint32(header[8:], offset)
	be.PutUint16(header[12:], uint16(len(tables)))
	be.PutUint32(header[16:], totalSfnt)
	be.PutUint16(header[20:], 1) // font revision major
	buf.Write(header)

	dir := make([]byte, woffDirEntrySize)
	for _, e := range entries {
		be.PutUint32(dir[0:], e.tag)
		be.PutUint32(dir[4:], e.offset)
		be.PutUint32(dir[8:], e.compLen)
		be.PutUint32(dir[12:], e.origLen)
		be.PutUint32(dir[16:], e.checksum)
		buf.Write(dir)
	}
	for _, e := range entries {
		buf.Write(e.data)
		buf.Write(make([]byte, pad4(e.compLen)-e.compLen))
	}
	return buf.Bytes(), nil
}

func parseSFNT(font []byte) (uint32, []sfntTable, error) {
	if len(font) < sfntHeaderSize {
		return 0, nil, ErrNotSFNT
	}
	be := binary.BigEndian
	flavor := be.Uint32(font[0:])
	switch flavor {
	case sfntVersionTrue, sfntVersionOTTO, sfntVersionApple:
	case sfntCollectionTag:
		return 0, nil, fmt.Errorf("font collections are not supported")
	default:
		return 0, nil, ErrNotSFNT
	}

	n := int(be.Uint16(font[4:]))
	if n == 0 || len(font) < sfntHeaderSize+n*sfntRecordSize {
		return 0, nil, fmt.Errorf("truncated table directory")
	}
	tables := make([]sfntTable, n)
	for i := 0; i < n; i++ {
		rec := font[sfntHeaderSize+i*sfntRecordSize:]
		off := uint64(be.Uint32(rec[8:]))
		size := uint64(be.Uint32(rec[12:]))
		if off+size > uint64(len(font)) {
			return 0, nil, fmt.Errorf("table %q extends past end of font", tagString(be.Uint32(rec[0:])))
		}
		tables[i] = sfntTable{
			tag:      be.Uint32(rec[0:]),
			checksum: be.Uint32(rec[4:]),
			data:     font[off : off+size],
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	return flavor, tables, nil
}

func compressTable(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}

func pad4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func tagString(tag uint32) string {
	return string([]byte{byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)})
}
