package loader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"flip-jump/internal/fjword"
	"flip-jump/internal/memory"
)

type imageBuilder struct {
	w         uint16
	fileFlags uint64
	segs      []segmentRecord
	data      []uint64
}

func (b *imageBuilder) bytes() []byte {
	var buf bytes.Buffer
	write16 := func(v uint16) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	write64 := func(v uint64) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	write16(Magic)
	write16(b.w)
	write64(b.fileFlags)
	write64(uint64(len(b.segs)))
	for _, s := range b.segs {
		write64(s.segmentStart)
		write64(s.segmentLen)
		write64(s.dataStart)
		write64(s.dataLen)
	}
	bytesPerWord := int(b.w) / 8
	for _, w := range b.data {
		for i := 0; i < bytesPerWord; i++ {
			buf.WriteByte(byte(w >> (8 * i)))
		}
	}
	return buf.Bytes()
}

func TestLoadSimpleSegment(t *testing.T) {
	img := imageBuilder{
		w:         64,
		fileFlags: 0x2, // alignment = 2w, zero_init = 0
		segs: []segmentRecord{
			{segmentStart: 0, segmentLen: 2, dataStart: 0, dataLen: 2},
		},
		data: []uint64{0x200, 0},
	}
	mem := memory.New[uint64](64, false)
	cfg, err := Load[uint64](bytes.NewReader(img.bytes()), mem)
	if err != nil {
		t.Fatalf("Load got error: %v expected: nil", err)
	}
	if cfg.Width != fjword.Width64 {
		t.Errorf("cfg.Width got: %v expected: %v", cfg.Width, fjword.Width64)
	}
	if cfg.Alignment != 128 {
		t.Errorf("cfg.Alignment got: %d expected: 128", cfg.Alignment)
	}
	v, err := mem.ReadWord(0)
	if err != nil || v != 0x200 {
		t.Errorf("ReadWord(0) got: (%d, %v) expected: (0x200, nil)", v, err)
	}
}

func TestLoadBadMagic(t *testing.T) {
	img := imageBuilder{w: 64, fileFlags: 0x2}
	raw := img.bytes()
	raw[0] = 0xFF
	mem := memory.New[uint64](64, false)
	_, err := Load[uint64](bytes.NewReader(raw), mem)
	if err == nil {
		t.Errorf("Load got: nil error expected: bad magic error")
	}
}

func TestLoadDataLenExceedsSegmentLen(t *testing.T) {
	img := imageBuilder{
		w:    64,
		segs: []segmentRecord{{segmentStart: 0, segmentLen: 1, dataStart: 0, dataLen: 2}},
		data: []uint64{1, 2},
	}
	mem := memory.New[uint64](64, false)
	_, err := Load[uint64](bytes.NewReader(img.bytes()), mem)
	if err == nil {
		t.Errorf("Load got: nil error expected: data_len exceeds segment_len error")
	}
}

func TestLoadDataRangeExceedsBlob(t *testing.T) {
	img := imageBuilder{
		w:    64,
		segs: []segmentRecord{{segmentStart: 0, segmentLen: 5, dataStart: 3, dataLen: 5}},
		data: []uint64{1, 2, 3},
	}
	mem := memory.New[uint64](64, false)
	_, err := Load[uint64](bytes.NewReader(img.bytes()), mem)
	if err == nil {
		t.Errorf("Load got: nil error expected: data range exceeds blob error")
	}
}

func TestLoadResidualBelowThresholdEagerlyZeroed(t *testing.T) {
	img := imageBuilder{
		w:    64,
		segs: []segmentRecord{{segmentStart: 0, segmentLen: 10, dataStart: 0, dataLen: 2}},
		data: []uint64{7, 8},
	}
	mem := memory.New[uint64](64, false)
	if _, err := Load[uint64](bytes.NewReader(img.bytes()), mem); err != nil {
		t.Fatalf("Load got error: %v expected: nil", err)
	}
	if mem.ZeroSegmentCount() != 0 {
		t.Errorf("ZeroSegmentCount() got: %d expected: 0, residual is below threshold", mem.ZeroSegmentCount())
	}
	if !mem.ContainsWord(5) {
		t.Errorf("ContainsWord(5) got: false expected: true, residual eagerly materialized")
	}
}

func TestLoadResidualAboveThresholdDeferred(t *testing.T) {
	img := imageBuilder{
		w:    64,
		segs: []segmentRecord{{segmentStart: 0, segmentLen: 1_000_000, dataStart: 0, dataLen: 0}},
		data: nil,
	}
	mem := memory.New[uint64](64, false)
	if _, err := Load[uint64](bytes.NewReader(img.bytes()), mem); err != nil {
		t.Fatalf("Load got error: %v expected: nil", err)
	}
	if mem.ZeroSegmentCount() != 1 {
		t.Errorf("ZeroSegmentCount() got: %d expected: 1", mem.ZeroSegmentCount())
	}
	v, err := mem.ReadWord(500_000)
	if err != nil || v != 0 {
		t.Errorf("ReadWord(500000) got: (%d, %v) expected: (0, nil)", v, err)
	}
	if mem.ContainsWord(999_999) {
		t.Errorf("ContainsWord(999999) got: true expected: false, only the touched word materializes")
	}
}

func TestLoadTruncatedTailRejected(t *testing.T) {
	img := imageBuilder{w: 64}
	raw := img.bytes()
	raw = append(raw, 1, 2, 3) // 3 stray bytes, not a multiple of 8
	mem := memory.New[uint64](64, false)
	_, err := Load[uint64](bytes.NewReader(raw), mem)
	if err == nil {
		t.Errorf("Load got: nil error expected: truncated tail rejected")
	}
}

func TestLoadRejectsReservedFlagBits(t *testing.T) {
	img := imageBuilder{w: 64, fileFlags: 0x8}
	mem := memory.New[uint64](64, false)
	_, err := Load[uint64](bytes.NewReader(img.bytes()), mem)
	if err == nil {
		t.Errorf("Load got: nil error expected: reserved flag bits rejected")
	}
}

func TestLoadIdempotent(t *testing.T) {
	img := imageBuilder{
		w:    32,
		segs: []segmentRecord{{segmentStart: 0, segmentLen: 3, dataStart: 0, dataLen: 3}},
		data: []uint64{10, 20, 30},
	}
	raw := img.bytes()

	mem1 := memory.New[uint32](32, false)
	if _, err := Load[uint32](bytes.NewReader(raw), mem1); err != nil {
		t.Fatalf("first Load got error: %v expected: nil", err)
	}
	mem2 := memory.New[uint32](32, false)
	if _, err := Load[uint32](bytes.NewReader(raw), mem2); err != nil {
		t.Fatalf("second Load got error: %v expected: nil", err)
	}

	s1, s2 := mem1.Snapshot(), mem2.Snapshot()
	if len(s1) != len(s2) {
		t.Fatalf("snapshot sizes got: %d, %d expected: equal", len(s1), len(s2))
	}
	for k, v := range s1 {
		if s2[k] != v {
			t.Errorf("word %d got: %d expected: %d", k, s2[k], v)
		}
	}
}

func TestPeekWidth(t *testing.T) {
	img := imageBuilder{w: 32}
	raw := img.bytes()
	width, rest, err := PeekWidth(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("PeekWidth got error: %v expected: nil", err)
	}
	if width != fjword.Width32 {
		t.Errorf("PeekWidth width got: %v expected: %v", width, fjword.Width32)
	}
	mem := memory.New[uint32](32, false)
	if _, err := Load[uint32](rest, mem); err != nil {
		t.Errorf("Load after PeekWidth got error: %v expected: nil", err)
	}
}
