package engine

import (
	"bytes"
	"strings"
	"testing"

	"flip-jump/internal/fjword"
	"flip-jump/internal/iobridge"
	"flip-jump/internal/memory"
)

func newEngine(t *testing.T, cfg Config, in string) (*Engine[uint64], *memory.Memory[uint64], *bytes.Buffer) {
	t.Helper()
	mem := memory.New[uint64](64, true)
	var out bytes.Buffer
	bridge := iobridge.New[uint64](fjword.Width64, 64, &out, strings.NewReader(in), nil, nil)
	return New[uint64](mem, bridge, 64, cfg), mem, &out
}

func defaultConfig() Config {
	return Config{Alignment: 128, AllowSelfModify: false, NoNullJump: false, JumpBeforeFlip: false, CountStats: true}
}

func TestImmediateHalt(t *testing.T) {
	e, mem, _ := newEngine(t, defaultConfig(), "")
	mem.WriteWord(0, 0x200) // F, outside [0,128)
	mem.WriteWord(1, 0)     // J = ip = 0

	if err := e.Run(); err != nil {
		t.Fatalf("Run got error: %v expected: nil", err)
	}
	if got := e.Stats().OpCount(); got != 0 {
		t.Errorf("OpCount() got: %d expected: 0", got)
	}
}

func TestSelfFlipRejectedByDefault(t *testing.T) {
	e, mem, _ := newEngine(t, defaultConfig(), "")
	mem.WriteWord(0, 3) // F = ip+3, inside [0, 128)
	mem.WriteWord(1, 0)

	err := e.Run()
	if err == nil {
		t.Fatalf("Run got: nil error expected: self-flip error")
	}
	fe, ok := err.(*FatalError)
	if !ok || fe.Kind != KindSelfFlip {
		t.Errorf("Run error got: %v expected: KindSelfFlip", err)
	}
}

func TestUnalignedIPIsFatal(t *testing.T) {
	cfg := defaultConfig()
	e, _, _ := newEngine(t, cfg, "")
	e.ip = 3 // not a multiple of 128

	_, err := e.Step()
	if err == nil {
		t.Fatalf("Step got: nil error expected: unaligned error")
	}
	fe, ok := err.(*FatalError)
	if !ok || fe.Kind != KindUnaligned {
		t.Errorf("Step error got: %v expected: KindUnaligned", err)
	}
}

func TestOutputByteEmittedAfterEightFlips(t *testing.T) {
	e, mem, out := newEngine(t, defaultConfig(), "")
	// 0x41 = 0b01000001, LSB-first bit sequence: 1,0,0,0,0,0,1,0
	bits := []bool{true, false, false, false, false, false, true, false}
	ip := uint64(0)
	for i, v := range bits {
		var target uint64 = 128 // IO_OUT0
		if v {
			target = 129 // IO_OUT1
		}
		next := ip + 128
		if next == 128 {
			next = 256 // skip words 2-3, which hold the I/O bits
		}
		mem.WriteWord(ip/64, target)
		mem.WriteWord(ip/64+1, next) // jump to next instruction, never equal to self
		if i == len(bits)-1 {
			mem.WriteWord(ip/64+1, ip) // last instruction halts
		}
		ip = next
	}

	if err := e.Run(); err != nil {
		t.Fatalf("Run got error: %v expected: nil", err)
	}
	if out.Len() != 1 {
		t.Fatalf("output length got: %d expected: 1", out.Len())
	}
	if out.Bytes()[0] != 0x41 {
		t.Errorf("output byte got: %#x expected: %#x", out.Bytes()[0], byte(0x41))
	}
}

func TestNullJumpRejected(t *testing.T) {
	cfg := defaultConfig()
	cfg.NoNullJump = true
	e, mem, _ := newEngine(t, cfg, "")
	mem.WriteWord(0, 0x200)
	mem.WriteWord(1, 1) // J = 1, below 2w = 128, and not equal to ip (0)

	err := e.Run()
	if err == nil {
		t.Fatalf("Run got: nil error expected: null jump error")
	}
	fe, ok := err.(*FatalError)
	if !ok || fe.Kind != KindNullJump {
		t.Errorf("Run error got: %v expected: KindNullJump", err)
	}
}

func TestSelfModifyingLoopDetectedAsLive(t *testing.T) {
	// F points inside the current instruction's jump cell, J == ip:
	// per §9 this must NOT be treated as halted.
	cfg := defaultConfig()
	cfg.AllowSelfModify = true
	e, mem, _ := newEngine(t, cfg, "")
	mem.WriteWord(0, 64) // F = ip+64, the bit-address of word 1 (the jump cell)
	mem.WriteWord(1, 0)  // J = ip = 0

	halted, err := e.Step()
	if err != nil {
		t.Fatalf("Step got error: %v expected: nil", err)
	}
	if halted {
		t.Errorf("Step got: halted=true expected: false, self-targeting flip keeps it live")
	}
}
