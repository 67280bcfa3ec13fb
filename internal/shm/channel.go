package shm

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

var byteOrder = binary.LittleEndian

// Publish copies rec verbatim into its slot. Exactly Slot.Size bytes are
// written; there is no framing, versioning or atomicity with respect to the
// external reader.
func Publish[T Record](w io.WriterAt, rec *T) error {
	if w == nil || rec == nil {
		return errors.New("shm: publish: nil target or record")
	}
	slot := SlotOf[T]()
	b, err := encode(rec, slot.Size)
	if err != nil {
		return errors.Wrapf(err, "shm: publish %s", kindOf[T]())
	}
	n, err := w.WriteAt(b, slot.Offset)
	if err != nil {
		return errors.Wrapf(err, "shm: publish %s", kindOf[T]())
	}
	if n != slot.Size {
		return errors.Errorf("shm: publish %s: short write %d/%d", kindOf[T](), n, slot.Size)
	}
	return nil
}

// Fetch copies the slot for T out of the region into rec.
func Fetch[T Record](r io.ReaderAt, rec *T) error {
	if r == nil || rec == nil {
		return errors.New("shm: fetch: nil source or record")
	}
	slot := SlotOf[T]()
	b := make([]byte, slot.Size)
	n, err := r.ReadAt(b, slot.Offset)
	if err != nil && !(err == io.EOF && n == slot.Size) {
		return errors.Wrapf(err, "shm: fetch %s", kindOf[T]())
	}
	if n != slot.Size {
		return errors.Errorf("shm: fetch %s: short read %d/%d", kindOf[T](), n, slot.Size)
	}
	if err := binary.Read(bytes.NewReader(b), byteOrder, rec); err != nil {
		return errors.Wrapf(err, "shm: fetch %s", kindOf[T]())
	}
	return nil
}

func encode(rec any, size int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(size)
	if err := binary.Write(&buf, byteOrder, rec); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, errors.Errorf("encoded %d bytes, slot holds %d", buf.Len(), size)
	}
	return buf.Bytes(), nil
}
