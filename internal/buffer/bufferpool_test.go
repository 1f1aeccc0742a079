package buffer

import (
	"errors"
	"testing"

	"github.com/tantalum-db/lstore/internal/page"
)

func key(id int) Key {
	return Key{Table: "t", RangeID: 0, IsTail: false, PageID: id, Col: 0}
}

func loadEmpty(k Key) (*page.Page, error) {
	return page.New(), nil
}

func TestGetPageLoadsAndPins(t *testing.T) {
	b := New(2)
	p, err := b.GetPage(key(1), loadEmpty)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil page")
	}
	if !b.IsInPool(key(1)) {
		t.Fatal("expected page resident after GetPage")
	}
}

func TestGetPageReturnsSameInstanceOnHit(t *testing.T) {
	b := New(2)
	p1, _ := b.GetPage(key(1), loadEmpty)
	p1.Write(7)
	b.Unpin(key(1), true)

	p2, err := b.GetPage(key(1), func(Key) (*page.Page, error) {
		t.Fatal("loadFn should not be called on a cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	v, _ := p2.Read(0)
	if v != 7 {
		t.Fatalf("expected cached page with value 7, got %d", v)
	}
}

func TestEvictionPicksUnpinnedVictim(t *testing.T) {
	b := New(1)
	b.SetWriteCallback(func(Key, *page.Page) error { return nil })

	if _, err := b.GetPage(key(1), loadEmpty); err != nil {
		t.Fatalf("get 1: %v", err)
	}
	if err := b.Unpin(key(1), false); err != nil {
		t.Fatalf("unpin 1: %v", err)
	}

	if _, err := b.GetPage(key(2), loadEmpty); err != nil {
		t.Fatalf("get 2 should evict 1: %v", err)
	}
	if b.IsInPool(key(1)) {
		t.Fatal("expected key 1 evicted")
	}
	if !b.IsInPool(key(2)) {
		t.Fatal("expected key 2 resident")
	}
}

func TestAllFramesPinnedBlocksEviction(t *testing.T) {
	b := New(1)
	if _, err := b.GetPage(key(1), loadEmpty); err != nil {
		t.Fatalf("get 1: %v", err)
	}
	_, err := b.GetPage(key(2), loadEmpty)
	if !errors.Is(err, ErrAllFramesPinned) {
		t.Fatalf("expected ErrAllFramesPinned, got %v", err)
	}
}

func TestDirtyVictimFlushedBeforeEviction(t *testing.T) {
	b := New(1)
	flushed := false
	b.SetWriteCallback(func(k Key, p *page.Page) error {
		flushed = true
		return nil
	})

	p, _ := b.GetPage(key(1), loadEmpty)
	p.Write(42)
	b.Unpin(key(1), true)

	if _, err := b.GetPage(key(2), loadEmpty); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if !flushed {
		t.Fatal("expected dirty victim to be flushed before eviction")
	}
}

func TestDirtyVictimWithNoWriteCallbackErrors(t *testing.T) {
	b := New(1)
	p, _ := b.GetPage(key(1), loadEmpty)
	p.Write(1)
	b.Unpin(key(1), true)

	if _, err := b.GetPage(key(2), loadEmpty); err == nil {
		t.Fatal("expected error evicting dirty frame with no write callback")
	}
}

func TestUnpinUnknownKeyErrors(t *testing.T) {
	b := New(2)
	if err := b.Unpin(key(99), false); !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("expected ErrFrameNotFound, got %v", err)
	}
}

func TestMarkDirtyAndFlushPage(t *testing.T) {
	b := New(2)
	p, _ := b.GetPage(key(1), loadEmpty)
	p.Write(5)
	b.Unpin(key(1), false)

	if err := b.MarkDirty(key(1)); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}

	var flushedVal int64
	err := b.FlushPage(key(1), func(k Key, fp *page.Page) error {
		v, _ := fp.Read(0)
		flushedVal = v
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushedVal != 5 {
		t.Fatalf("expected flushed value 5, got %d", flushedVal)
	}

	// Second flush is a no-op since the frame is now clean.
	called := false
	if err := b.FlushPage(key(1), func(Key, *page.Page) error { called = true; return nil }); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if called {
		t.Fatal("expected no-op flush on clean frame")
	}
}

func TestFlushAllFlushesOnlyDirtyFrames(t *testing.T) {
	b := New(4)
	b.GetPage(key(1), loadEmpty)
	b.Unpin(key(1), true)
	b.GetPage(key(2), loadEmpty)
	b.Unpin(key(2), false)

	flushedKeys := map[Key]bool{}
	err := b.FlushAll(func(k Key, p *page.Page) error {
		flushedKeys[k] = true
		return nil
	})
	if err != nil {
		t.Fatalf("flush all: %v", err)
	}
	if !flushedKeys[key(1)] {
		t.Fatal("expected dirty key 1 flushed")
	}
	if flushedKeys[key(2)] {
		t.Fatal("did not expect clean key 2 flushed")
	}
}

func TestSwapReplacesResidentPage(t *testing.T) {
	b := New(2)
	b.GetPage(key(1), loadEmpty)
	b.Unpin(key(1), false)

	replacement := page.New()
	replacement.Write(100)
	if ok := b.Swap(key(1), replacement); !ok {
		t.Fatal("expected swap to succeed on resident key")
	}

	p, _ := b.GetPage(key(1), loadEmpty)
	v, _ := p.Read(0)
	if v != 100 {
		t.Fatalf("expected swapped value 100, got %d", v)
	}
}

func TestSwapOnMissingKeyReturnsFalse(t *testing.T) {
	b := New(2)
	if ok := b.Swap(key(42), page.New()); ok {
		t.Fatal("expected swap on missing key to return false")
	}
}

func TestRegisterPageRejectsDuplicate(t *testing.T) {
	b := New(2)
	if err := b.RegisterPage(key(1), page.New()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.RegisterPage(key(1), page.New()); err == nil {
		t.Fatal("expected error registering duplicate key")
	}
}
