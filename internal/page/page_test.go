package page

import (
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p := New()
	slot, err := p.Write(42)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if slot != 0 {
		t.Fatalf("expected slot 0, got %d", slot)
	}
	v, err := p.Read(slot)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestWriteAppendsSequentialSlots(t *testing.T) {
	p := New()
	for i := 0; i < 5; i++ {
		slot, err := p.Write(int64(i * 10))
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if slot != i {
			t.Fatalf("expected slot %d, got %d", i, slot)
		}
	}
	if p.NumRecords() != 5 {
		t.Fatalf("expected 5 records, got %d", p.NumRecords())
	}
}

func TestPageFullOnOverflow(t *testing.T) {
	p := New()
	for i := 0; i < MaxSlots; i++ {
		if _, err := p.Write(int64(i)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if _, err := p.Write(1); !errors.Is(err, ErrPageFull) {
		t.Fatalf("expected ErrPageFull, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	p := New()
	slot, _ := p.Write(1)
	if err := p.Update(slot, 99); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, _ := p.Read(slot)
	if v != 99 {
		t.Fatalf("expected 99, got %d", v)
	}
}

func TestReadOutOfBounds(t *testing.T) {
	p := New()
	p.Write(1)
	if _, err := p.Read(5); !errors.Is(err, ErrSlotOutOfBounds) {
		t.Fatalf("expected ErrSlotOutOfBounds, got %v", err)
	}
	if _, err := p.Read(-1); !errors.Is(err, ErrSlotOutOfBounds) {
		t.Fatalf("expected ErrSlotOutOfBounds, got %v", err)
	}
}

func TestUpdateOutOfBounds(t *testing.T) {
	p := New()
	if err := p.Update(0, 1); !errors.Is(err, ErrSlotOutOfBounds) {
		t.Fatalf("expected ErrSlotOutOfBounds, got %v", err)
	}
}

func TestToBytesFromBytesRoundTrip(t *testing.T) {
	p := New()
	values := []int64{1, -1, 0, 1 << 40, -(1 << 40), 9223372036854775807, -9223372036854775808}
	for _, v := range values {
		if _, err := p.Write(v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
	}
	raw := p.ToBytes()
	p2, err := FromBytes(raw[:], p.NumRecords())
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	for i, want := range values {
		got, err := p2.Read(i)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("slot %d: got %d, want %d", i, got, want)
		}
	}
}

func TestFromBytesInvalidSize(t *testing.T) {
	if _, err := FromBytes(make([]byte, 10), 0); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := New()
	p.Write(1)
	clone := p.Clone()
	clone.Update(0, 99)
	v, _ := p.Read(0)
	if v != 1 {
		t.Fatalf("original page mutated by clone update: got %d", v)
	}
}
