package flash

import (
	"bytes"
	"strings"
	"testing"
)

func TestLastPage_SAM3(t *testing.T) {
	if got := LastPage(DefaultBase, DefaultSize, DefaultPageSize); got != 0xFFF00 {
		t.Fatalf("last page=0x%X want 0xFFF00", got)
	}
}

func TestWrite_RequiresUnlock(t *testing.T) {
	d := NewMemory(0x1000, 256, 2)
	page := bytes.Repeat([]byte{0x5A}, 256)

	err := d.Write(0x1100, page)
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("err=%v want locked", err)
	}
	if err := d.Unlock(0x1100, 0x1200); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := d.Write(0x1100, page); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if d.Writes() != 1 {
		t.Fatalf("writes=%d want 1", d.Writes())
	}
	// First page stays locked.
	if !d.Locked(0x1000) {
		t.Fatalf("expected page 0 locked")
	}
	if err := d.Lock(0x1100, 0x1200); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !d.Locked(0x1100) {
		t.Fatalf("expected page 1 locked")
	}

	got := make([]byte, 4)
	if err := d.Read(0x1100, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0x5A, 0x5A, 0x5A, 0x5A}) {
		t.Fatalf("read=% X", got)
	}
}

func TestWrite_FullPageOnly(t *testing.T) {
	d := NewMemory(0, 256, 1)
	if err := d.Unlock(0, 256); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := d.Write(0, make([]byte, 12)); err == nil {
		t.Fatalf("expected partial-page write to fail")
	}
	if err := d.Write(4, make([]byte, 256)); err == nil {
		t.Fatalf("expected unaligned write to fail")
	}
	if d.Writes() != 0 {
		t.Fatalf("writes=%d want 0", d.Writes())
	}
}

func TestNewMemory_Erased(t *testing.T) {
	d := NewMemory(0, 64, 1)
	got := make([]byte, 64)
	if err := d.Read(0, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{Erased}, 64)) {
		t.Fatalf("expected erased page")
	}
}

func TestOutOfRange(t *testing.T) {
	d := NewMemory(0x100, 64, 1)
	if err := d.Read(0x0, make([]byte, 4)); err == nil {
		t.Fatalf("expected read below base to fail")
	}
	if err := d.Read(0x13E, make([]byte, 4)); err == nil {
		t.Fatalf("expected read past end to fail")
	}
	if err := d.Unlock(0x200, 0x240); err == nil {
		t.Fatalf("expected unlock outside device to fail")
	}
}
