package segment

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/postings"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func testEntries() []index.TermEntry {
	return []index.TermEntry{
		{Term: "search", Postings: index.PostingList{
			{DocID: 3, Positions: []uint32{0}},
			{DocID: 4, Positions: []uint32{3}},
			{DocID: 5, Positions: []uint32{1, 4}},
		}},
		{Term: "engine", Postings: index.PostingList{
			{DocID: 3, Positions: []uint32{1}},
			{DocID: 5, Positions: []uint32{2}},
		}},
		{Term: "café", Postings: index.PostingList{
			{DocID: 1, Positions: []uint32{7}},
		}},
	}
}

func writeIndex(t *testing.T, entries []index.TermEntry) string {
	t.Helper()
	dict, blob, err := postings.Compress(entries)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "nested", "index.bin")
	stats, err := Write(path, dict, blob)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if stats.Terms != len(entries) || stats.BlobBytes != int64(len(blob)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	return path
}

func TestWriteReadRoundTrip(t *testing.T) {
	entries := testEntries()
	path := writeIndex(t, entries)

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if got, want := r.Terms(), []string{"search", "engine", "café"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	for _, e := range entries {
		got, err := r.Lookup(e.Term)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", e.Term, err)
		}
		if !reflect.DeepEqual(got, e.Postings) {
			t.Errorf("Lookup(%q) = %v, want %v", e.Term, got, e.Postings)
		}
	}
	if got := r.Postings("missing"); len(got) != 0 {
		t.Errorf("Postings(missing) = %v, want empty", got)
	}
	info, _ := os.Stat(path)
	if st := r.Stats(); st.FileBytes != info.Size() {
		t.Errorf("Stats().FileBytes = %d, file is %d", st.FileBytes, info.Size())
	}
}

func TestHeaderLayout(t *testing.T) {
	path := writeIndex(t, testEntries())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	l := binary.BigEndian.Uint32(data[:HeaderSize])
	dict := string(data[HeaderSize : HeaderSize+l])
	if dict[0] != '{' || dict[len(dict)-1] != '}' {
		t.Fatalf("dictionary region = %q", dict)
	}
	if want := `{"search": [0, `; dict[:len(want)] != want {
		t.Errorf("dictionary prefix = %q, want %q", dict[:len(want)], want)
	}
}

func TestCorruptEntryServedEmpty(t *testing.T) {
	path := writeIndex(t, testEntries())

	// Clear the stop bit on the last byte of "engine" so its run ends
	// mid-integer.
	probe, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	span, _ := probe.dict.Lookup("engine")
	base := probe.blobBase
	probe.Close()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte{0x7f}, base+span.End()-1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	reg := prometheus.NewRegistry()
	r, err := OpenReader(path, WithMetrics(metrics.NewWithRegistry(reg)))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if _, err := r.Lookup("engine"); !errors.Is(err, apperrors.ErrCorruptPostings) {
		t.Errorf("Lookup(engine) error = %v, want ErrCorruptPostings", err)
	}
	if got := r.Postings("engine"); len(got) != 0 {
		t.Errorf("Postings(engine) = %v, want empty", got)
	}
	if got := r.Postings("search"); len(got) != 3 {
		t.Errorf("neighbouring entry damaged: %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var count float64
	for _, mf := range families {
		if mf.GetName() == "postings_decode_errors_total" {
			count = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if count != 1 {
		t.Errorf("postings_decode_errors_total = %v, want 1", count)
	}
}

func TestOpenReaderRejectsMalformed(t *testing.T) {
	header := func(l uint32) []byte {
		b := make([]byte, HeaderSize)
		binary.BigEndian.PutUint32(b, l)
		return b
	}
	withDict := func(dict string, blob []byte) []byte {
		out := append(header(uint32(len(dict))), dict...)
		return append(out, blob...)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", nil},
		{"short header", []byte{0, 0}},
		{"length past end", append(header(100), `{}`...)},
		{"bad json", withDict(`{"a": [0,`, nil)},
		{"not an object", withDict(`[1, 2]`, nil)},
		{"span past blob", withDict(`{"a": [0, 5]}`, []byte{0x81, 0x81})},
		{"offset past blob", withDict(`{"a": [9, 0]}`, []byte{0x80})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.bin")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			r, err := OpenReader(path)
			if !errors.Is(err, apperrors.ErrMalformedIndex) {
				t.Fatalf("error = %v, want ErrMalformedIndex", err)
			}
			if r != nil {
				t.Error("reader returned alongside error")
			}
		})
	}
}

func TestOpenReaderEmptyDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	data := append([]byte{0, 0, 0, 2}, `{}`...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if r.TermCount() != 0 || r.BlobSize() != 0 {
		t.Errorf("TermCount=%d BlobSize=%d", r.TermCount(), r.BlobSize())
	}
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "absent.bin"))
	if !errors.Is(err, apperrors.ErrIndexNotFound) {
		t.Fatalf("error = %v, want ErrIndexNotFound", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	r, err := OpenReader(writeIndex(t, testEntries()))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
