package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
)

// MagicBytes identifies a valid .ivx segment file.
const (
	MagicBytes    uint32 = 0x49565831
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
	Extension     string = ".ivx"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
	DocsSize   int64
}

// DictEntry maps a (field, term) pair to its postings offset, length, and
// document frequency in the segment file.
type DictEntry struct {
	Field      string `cbor:"1,keyasint"`
	Term       string `cbor:"2,keyasint"`
	PostOffset int64  `cbor:"3,keyasint"`
	PostLen    int    `cbor:"4,keyasint"`
	DocFreq    int    `cbor:"5,keyasint"`
}

// Dictionary is the metadata block of a segment. Terms is sorted by field,
// then term.
type Dictionary struct {
	CreatedAt int64                       `cbor:"1,keyasint"`
	LastID    index.DocID                 `cbor:"2,keyasint"`
	Codec     string                      `cbor:"3,keyasint"`
	Analyzer  tokenizer.Options           `cbor:"4,keyasint"`
	Stats     map[string]index.FieldStats `cbor:"5,keyasint"`
	Terms     []DictEntry                 `cbor:"6,keyasint"`
}

// Snapshot is everything a segment persists about a built index.
type Snapshot struct {
	Entries   []index.TermEntry
	Documents []index.Document
	Stats     map[string]index.FieldStats
	LastID    index.DocID
	Analyzer  tokenizer.Options
}

// SnapshotOf captures a sealed memory index.
func SnapshotOf(mi *index.MemoryIndex) Snapshot {
	return Snapshot{
		Entries:   mi.Snapshot(),
		Documents: mi.Documents(),
		Stats:     mi.AllStats(),
		LastID:    mi.LastID(),
		Analyzer:  mi.Analyzer().Options(),
	}
}

// Writer serialises snapshots into new .ivx segment files.
type Writer struct {
	dataDir string
	codec   string
}

// NewWriter creates a Writer that writes segments into the given directory,
// compressing the document block with codec.
func NewWriter(dataDir string, codec string) *Writer {
	if codec == "" {
		codec = CodecZstd
	}
	return &Writer{dataDir: dataDir, codec: codec}
}

// Write atomically creates a new segment file containing the snapshot. It
// writes to a .tmp file first and renames on success.
func (w *Writer) Write(snap Snapshot) (string, error) {
	if len(snap.Documents) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	segmentName := fmt.Sprintf("seg_%d%s", time.Now().UnixNano(), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(snap.Entries)),
		DocCount:  uint32(len(snap.Documents)),
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return "", fmt.Errorf("writing header placeholder: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := postingsStart
	dict := make([]DictEntry, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		postingsData, err := cbor.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		if _, err := f.Write(postingsData); err != nil {
			return "", fmt.Errorf("writing postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: offset - postingsStart,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
		offset += int64(len(postingsData))
	}
	header.PostOffset = postingsStart
	header.PostSize = offset - postingsStart

	dictData, err := cbor.Marshal(Dictionary{
		CreatedAt: time.Now().Unix(),
		LastID:    snap.LastID,
		Codec:     w.codec,
		Analyzer:  snap.Analyzer,
		Stats:     snap.Stats,
		Terms:     dict,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}
	header.DictOffset = offset
	header.DictSize = int64(len(dictData))
	offset += header.DictSize

	docsRaw, err := cbor.Marshal(snap.Documents)
	if err != nil {
		return "", fmt.Errorf("marshaling documents: %w", err)
	}
	docsData, err := compress(w.codec, docsRaw)
	if err != nil {
		return "", fmt.Errorf("compressing documents: %w", err)
	}
	if _, err := f.Write(docsData); err != nil {
		return "", fmt.Errorf("writing documents: %w", err)
	}
	header.DocsOffset = offset
	header.DocsSize = int64(len(docsData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(docsData))
	binary.LittleEndian.PutUint32(footer[8:12], MagicBytes)
	binary.LittleEndian.PutUint32(footer[12:16], FormatVersion)
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(encodeHeader(header), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}

func encodeHeader(h SegmentHeader) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DocsSize))
	return b
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(b[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[40:48])),
		DocsOffset: int64(binary.LittleEndian.Uint64(b[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}
