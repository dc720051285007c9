package futu

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 44

	// maxBodySize guards against a corrupt length field.
	maxBodySize = 64 << 20

	protoFmtJSON uint8 = 1
)

var headerFlag = [2]byte{'F', 'T'}

var (
	errBadHeaderFlag = errors.New("futu: bad frame header flag")
	errBodyChecksum  = errors.New("futu: frame body checksum mismatch")
)

// header is the fixed OpenD frame header, little endian on the wire.
type header struct {
	Flag     [2]byte
	ProtoID  uint32
	ProtoFmt uint8
	ProtoVer uint8
	SerialNo uint32
	BodyLen  uint32
	BodySHA1 [20]byte
	Reserved [8]byte
}

type frame struct {
	ProtoID  uint32
	SerialNo uint32
	Body     []byte
}

func writeFrame(w io.Writer, f frame) error {
	h := header{
		Flag:     headerFlag,
		ProtoID:  f.ProtoID,
		ProtoFmt: protoFmtJSON,
		SerialNo: f.SerialNo,
		BodyLen:  uint32(len(f.Body)),
		BodySHA1: sha1.Sum(f.Body),
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(f.Body))
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("encode frame header: %w", err)
	}
	buf.Write(f.Body)
	_, err := w.Write(buf.Bytes())
	return err
}

func readFrame(r io.Reader) (frame, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return frame{}, err
	}
	if h.Flag != headerFlag {
		return frame{}, errBadHeaderFlag
	}
	if h.BodyLen > maxBodySize {
		return frame{}, fmt.Errorf("futu: frame body of %d bytes exceeds limit", h.BodyLen)
	}
	body := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return frame{}, fmt.Errorf("read frame body: %w", err)
	}
	if sha1.Sum(body) != h.BodySHA1 {
		return frame{}, errBodyChecksum
	}
	return frame{ProtoID: h.ProtoID, SerialNo: h.SerialNo, Body: body}, nil
}
