package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

var _ index.Reader = (*Reader)(nil)

// Reader serves a segment file read-only. Postings are read lazily; the
// dictionary and the document store are held in memory. Safe for concurrent
// use.
type Reader struct {
	file     *os.File
	header   SegmentHeader
	dict     Dictionary
	docs     map[index.DocID]index.Document
	fields   []string
	checksum uint64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIOFailure, "opening segment file %s: %v", path, err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "reading header of %s: %v", path, err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "bad magic bytes %x in %s", header.Magic, path)
	}
	if header.Version != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "unsupported segment version %d in %s", header.Version, path)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIOFailure, "stat segment file %s: %v", path, err)
	}
	if err := header.checkBounds(info.Size()); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "%s: %v", path, err)
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DocsOffset+header.DocsSize); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "reading footer of %s: %v", path, err)
	}
	dictCRC := binary.LittleEndian.Uint32(footer[0:4])
	docsCRC := binary.LittleEndian.Uint32(footer[4:8])

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "reading dictionary of %s: %v", path, err)
	}
	if crc32.ChecksumIEEE(dictBytes) != dictCRC {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "dictionary checksum mismatch in %s", path)
	}
	var dict Dictionary
	if err := cbor.Unmarshal(dictBytes, &dict); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "parsing dictionary of %s: %v", path, err)
	}

	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "reading documents of %s: %v", path, err)
	}
	if crc32.ChecksumIEEE(docsBytes) != docsCRC {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "document checksum mismatch in %s", path)
	}
	raw, err := decompress(dict.Codec, docsBytes)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "decompressing documents of %s: %v", path, err)
	}
	var documents []index.Document
	if err := cbor.Unmarshal(raw, &documents); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "parsing documents of %s: %v", path, err)
	}
	docs := make(map[index.DocID]index.Document, len(documents))
	for _, doc := range documents {
		docs[doc.ID] = doc
	}

	fields := make([]string, 0, len(dict.Stats))
	for field := range dict.Stats {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &Reader{
		file:     f,
		header:   header,
		dict:     dict,
		docs:     docs,
		fields:   fields,
		checksum: uint64(dictCRC)<<32 | uint64(docsCRC),
	}, nil
}

// checkBounds verifies that every block lies inside a file of size bytes,
// in the order the writer lays them out.
func (h SegmentHeader) checkBounds(size int64) error {
	blocks := []struct {
		name         string
		offset, size int64
	}{
		{"postings", h.PostOffset, h.PostSize},
		{"dictionary", h.DictOffset, h.DictSize},
		{"documents", h.DocsOffset, h.DocsSize},
	}
	end := int64(HeaderSize)
	for _, b := range blocks {
		if b.offset < end || b.size < 0 || b.size > size-b.offset {
			return fmt.Errorf("%s block [%d, +%d) out of range", b.name, b.offset, b.size)
		}
		end = b.offset + b.size
	}
	if int64(FooterSize) > size-end {
		return fmt.Errorf("footer at %d past end of file (%d bytes)", end, size)
	}
	return nil
}

func (r *Reader) Postings(field, term string) (index.PostingList, error) {
	terms := r.dict.Terms
	idx := sort.Search(len(terms), func(i int) bool {
		if terms[i].Field != field {
			return terms[i].Field >= field
		}
		return terms[i].Term >= term
	})
	if idx >= len(terms) || terms[idx].Field != field || terms[idx].Term != term {
		return nil, nil
	}
	entry := terms[idx]
	if entry.PostOffset < 0 || entry.PostLen < 0 || entry.PostOffset+int64(entry.PostLen) > r.header.PostSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "postings for %s:%q lie outside the postings block", field, term)
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, apperrors.Newf(apperrors.ErrIOFailure, "reading postings for %s:%q: %v", field, term, err)
	}
	var postings index.PostingList
	if err := cbor.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptSegment, "parsing postings for %s:%q: %v", field, term, err)
	}
	return postings, nil
}

func (r *Reader) Fetch(id index.DocID, field string) (string, error) {
	doc, ok := r.docs[id]
	if !ok {
		return "", &apperrors.NotFoundError{DocID: uint32(id)}
	}
	text, ok := doc.Fields[field]
	if !ok {
		return "", &apperrors.NotFoundError{DocID: uint32(id), Field: field}
	}
	return text, nil
}

func (r *Reader) FieldLength(id index.DocID, field string) int {
	return r.docs[id].Lengths[field]
}

func (r *Reader) FieldStats(field string) index.FieldStats {
	return r.dict.Stats[field]
}

func (r *Reader) Fields() []string {
	return append([]string(nil), r.fields...)
}

func (r *Reader) DocCount() int {
	return len(r.docs)
}

func (r *Reader) Terms() int {
	return len(r.dict.Terms)
}

func (r *Reader) LastID() index.DocID {
	return r.dict.LastID
}

// Dictionary exposes the segment metadata, including the analyzer options
// the index was built with.
func (r *Reader) Dictionary() Dictionary {
	return r.dict
}

// Fingerprint identifies the segment contents. Two segments built from the
// same corpus with the same analyzer share a fingerprint only if their
// dictionary and document blocks are byte-identical.
func (r *Reader) Fingerprint() string {
	return fmt.Sprintf("%016x", r.checksum)
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Latest returns the path of the newest segment in dataDir.
func Latest(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrIOFailure, "reading data directory %s: %v", dataDir, err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	if len(segFiles) == 0 {
		return "", apperrors.Newf(apperrors.ErrIOFailure, "no segment found in %s, run the index command first", dataDir)
	}
	sort.Strings(segFiles)
	return filepath.Join(dataDir, segFiles[len(segFiles)-1]), nil
}
