package veml6070

import (
	"errors"
	"testing"
)

type fakeDev struct {
	read    byte
	readErr error
	written [][]byte
}

func (f *fakeDev) Write(p []byte) error {
	f.written = append(f.written, append([]byte(nil), p...))
	return nil
}

func (f *fakeDev) Read(p []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	p[0] = f.read
	return nil
}

func TestBegin_WritesRunCommand(t *testing.T) {
	cmd := &fakeDev{}
	if err := newWithIO(cmd, &fakeDev{}).Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(cmd.written) != 1 || cmd.written[0][0] != cmdRun {
		t.Fatalf("written=%v", cmd.written)
	}
}

func TestUV_CombinesBytes(t *testing.T) {
	d := newWithIO(&fakeDev{read: 0x77}, &fakeDev{read: 0x01}) // 0x0177 = 375
	raw, err := d.Raw()
	if err != nil || raw != 375 {
		t.Fatalf("raw=%d err=%v", raw, err)
	}
	uv, err := d.UV()
	if err != nil || uv != 375/countsPerIndex {
		t.Fatalf("uv=%v err=%v", uv, err)
	}
}

func TestUV_ReadError(t *testing.T) {
	d := newWithIO(&fakeDev{}, &fakeDev{readErr: errors.New("nack")})
	if _, err := d.UV(); err == nil {
		t.Fatalf("expected error")
	}
}
