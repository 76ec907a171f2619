package main

import "testing"

func TestBusReadWriteRoundTrip(t *testing.T) {
	b := NewSystemBus()
	b.Write32(0x1000, 0xCAFEBABE)
	if got := b.Read32(0x1000); got != 0xCAFEBABE {
		t.Fatalf("Read32 = %#x, want 0xCAFEBABE", got)
	}
	b.Write64(0x2000, 0x0102030405060708)
	if got := b.Read64(0x2000); got != 0x0102030405060708 {
		t.Fatalf("Read64 = %#x, want 0x0102030405060708", got)
	}
}

func TestBusBigEndian(t *testing.T) {
	b := NewSystemBus()
	b.Write32(0x100, 0x11223344)
	if got := b.Read8(0x100); got != 0x11 {
		t.Fatalf("most-significant byte at lowest address = %#x, want 0x11 (big-endian)", got)
	}
	if got := b.Read8(0x103); got != 0x44 {
		t.Fatalf("least-significant byte at highest address = %#x, want 0x44 (big-endian)", got)
	}
}

func TestBusAlignsDownToWidth(t *testing.T) {
	b := NewSystemBus()
	b.Write32(0x200, 0xAABBCCDD)
	// An unaligned 32-bit access at 0x201 or 0x203 should fold to the same
	// aligned word, per physAddr's align-down behavior.
	if got := b.Read32(0x203); got != 0xAABBCCDD {
		t.Fatalf("Read32(0x203) = %#x, want fold to aligned word 0xAABBCCDD", got)
	}
}

func TestBusResetClearsMemory(t *testing.T) {
	b := NewSystemBus()
	b.Write32(0x300, 0xFFFFFFFF)
	b.Reset()
	if got := b.Read32(0x300); got != 0 {
		t.Fatalf("Read32 after Reset = %#x, want 0", got)
	}
}

func TestMapIOInterceptsReadWrite(t *testing.T) {
	b := NewSystemBus()
	var stored uint32
	b.MapIO(0x400, 0x403,
		func(addr uint32) uint32 { return stored },
		func(addr uint32, val uint32) { stored = val },
	)
	b.Write32(0x400, 0x42)
	if stored != 0x42 {
		t.Fatalf("onWrite not invoked: stored = %#x", stored)
	}
	if got := b.Read32(0x400); got != 0x42 {
		t.Fatalf("Read32 via mapped region = %#x, want 0x42", got)
	}
}

func TestMapIODoesNotTouchBackingArray(t *testing.T) {
	b := NewSystemBus()
	b.MapIO(0x500, 0x503,
		func(addr uint32) uint32 { return 0x99 },
		func(addr uint32, val uint32) {},
	)
	b.Write32(0x500, 0x11223344)
	// The plain memory array underneath a mapped region must stay untouched;
	// only the onRead/onWrite callbacks own that region's state.
	// Read8 bypasses IO regions entirely, so it shows the backing array.
	if raw := b.Read8(0x500); raw != 0 {
		t.Fatalf("backing byte under mapped region = %#x, want 0 (untouched)", raw)
	}
	if got := b.Read32(0x500); got != 0x99 {
		t.Fatalf("Read32 via mapped region = %#x, want callback value 0x99", got)
	}
}

func TestFetchHandleIter(t *testing.T) {
	b := NewSystemBus()
	b.Write32(ResetVector, 0x00000001)
	b.Write32(ResetVector+4, 0x00000002)
	b.Write32(ResetVector+8, 0x00000003)

	h := b.FetchRead(ResetVector)
	it := h.Iter()
	var words []uint32
	for {
		w, ok := it.Next()
		if !ok {
			break
		}
		words = append(words, w)
		if len(words) == 3 {
			break
		}
	}
	if len(words) != 3 || words[0] != 1 || words[1] != 2 || words[2] != 3 {
		t.Fatalf("unexpected words: %v", words)
	}
}

// countingBus counts FetchRead calls so tests can tell a cached fetch from a new bus call.
type countingBus struct {
	*SystemBus
	fetches int
}

func (c *countingBus) FetchRead(addr uint32) FetchHandle {
	c.fetches++
	return c.SystemBus.FetchRead(addr)
}

func TestMipsFetchCacheReuse(t *testing.T) {
	ctx := NewCpuContext()
	bus := &countingBus{SystemBus: NewSystemBus()}
	m := NewMips(ctx, bus, nil)

	h1 := m.fetch(0x1000)
	h2 := m.fetch(0x1000)
	if &h1.data[0] != &h2.data[0] {
		t.Fatal("fetch(pc) for the same pc should reuse the cached handle")
	}
	if bus.fetches != 1 {
		t.Fatalf("bus FetchRead calls = %d after two fetches of the same pc, want 1", bus.fetches)
	}
	h3 := m.fetch(0x2000)
	if &h1.data[0] == &h3.data[0] {
		t.Fatal("fetch(pc) for a different pc should not alias the stale cache")
	}
	if bus.fetches != 2 {
		t.Fatalf("bus FetchRead calls = %d after fetching a new pc, want 2", bus.fetches)
	}
}
