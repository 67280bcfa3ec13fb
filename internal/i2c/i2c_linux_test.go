//go:build linux

package i2c

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestDevTx_InvalidAddr(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}

	{
		d := &Dev{bus: b, addr: 0}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("err=%v want invalid i2c addr", err)
		}
	}

	{
		d := &Dev{bus: b, addr: 0x80}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("err=%v want invalid i2c addr", err)
		}
	}
}

func TestDevTx_EmptyIsNoop(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}
	d := &Dev{bus: b, addr: 0x68}

	n, err := d.tx(nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}

func TestDevTx_ClosedBus(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}

	b := &Bus{f: f, path: "/dev/null"}
	d := b.Dev(0x6A)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err = d.WriteReg(0x20, 0x00)
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("err=%v want closed", err)
	}
	// Close is idempotent.
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDev_Addr(t *testing.T) {
	b := &Bus{path: "/dev/null"}
	if got := b.Dev(0x1C).Addr(); got != 0x1C {
		t.Fatalf("addr=0x%X want 0x1C", got)
	}
	var nilBus *Bus
	if nilBus.Dev(0x1C) != nil {
		t.Fatalf("expected nil dev from nil bus")
	}
}

func openNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	b := &Bus{f: f, path: "/dev/null"}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// stubIoctl replaces the transfer with fn for the rest of the test.
func stubIoctl(t *testing.T, fn func() unix.Errno) {
	t.Helper()
	prev := ioctl
	ioctl = func(fd, req, arg uintptr) unix.Errno { return fn() }
	t.Cleanup(func() { ioctl = prev })
}

func TestDevTx_WaitsForBusLock(t *testing.T) {
	b := openNullBus(t)
	stubIoctl(t, func() unix.Errno { return 0 })
	d := b.Dev(0x6A)

	b.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- d.WriteReg(0x20, 0x00) }()

	select {
	case err := <-done:
		b.mu.Unlock()
		t.Fatalf("WriteReg returned while bus was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	b.mu.Unlock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WriteReg: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("WriteReg did not return after bus release")
	}
}

func TestDevTx_TransfersDoNotOverlap(t *testing.T) {
	b := openNullBus(t)
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	stubIoctl(t, func() unix.Errno {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return 0
	})

	var wg sync.WaitGroup
	for _, addr := range []uint16{0x60, 0x5F, 0x6A, 0x1C} {
		d := b.Dev(addr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				var v [2]byte
				if err := d.ReadReg(0x28, v[:]); err != nil {
					t.Errorf("ReadReg: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("peak concurrent transfers=%d want 1", peak)
	}
}

func TestBusClose_WaitsForInFlightTransfer(t *testing.T) {
	b := openNullBus(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	stubIoctl(t, func() unix.Errno {
		close(entered)
		<-release
		return 0
	})

	txDone := make(chan error, 1)
	go func() { txDone <- b.Dev(0x1C).WriteReg(0x22, 0x00) }()
	<-entered

	closed := make(chan error, 1)
	go func() { closed <- b.Close() }()
	select {
	case <-closed:
		close(release)
		t.Fatalf("Close returned during a transfer")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-txDone; err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Close did not return after the transfer finished")
	}
	if err := b.Dev(0x1C).WriteReg(0x22, 0x00); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("err=%v want closed", err)
	}
}
