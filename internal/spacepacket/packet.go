package spacepacket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mission-control/mdc/internal/message"
)

const (
	headerLen = 6
	crcLen    = 2
	// fixed part of the data field before the variable-length sections
	fixedLen = 32

	version = 0
	// unsegmented user data
	seqFlagsUnsegmented = 0x3

	// the header's 16-bit length field bounds the whole data field
	maxDataField = 1 << 16
)

// Decode failures.
var (
	ErrTooShort  = errors.New("spacepacket: packet shorter than primary header")
	ErrTruncated = errors.New("spacepacket: data field truncated")
	ErrVersion   = errors.New("spacepacket: unsupported packet version")
	ErrChecksum  = errors.New("spacepacket: checksum mismatch")
	ErrTooLarge  = errors.New("spacepacket: payload exceeds packet size limit")
)

// Encode serializes msg into one space packet.
func Encode(msg *message.Message) ([]byte, error) {
	if msg.Payload.Kind == message.PayloadCommand && !msg.Payload.Command.Valid() {
		return nil, fmt.Errorf("spacepacket: unknown command opcode 0x%04X", uint16(msg.Payload.Command))
	}
	if len(msg.Payload.Format) > 0xFF {
		return nil, ErrTooLarge
	}
	for _, section := range [][]byte{msg.Payload.Args, msg.Payload.Data, []byte(msg.Token)} {
		if len(section) > 0xFFFF {
			return nil, ErrTooLarge
		}
	}

	dataLen := fixedLen +
		2 + len(msg.Payload.Args) +
		2 + len(msg.Payload.Data) +
		1 + len(msg.Payload.Format) +
		2 + len(msg.Token) +
		crcLen
	if dataLen > maxDataField {
		return nil, ErrTooLarge
	}

	buf := make([]byte, headerLen+dataLen)

	typeBit := uint16(0)
	if msg.Payload.Kind == message.PayloadCommand {
		typeBit = 1
	}
	word1 := uint16(version)<<13 | typeBit<<12 | 1<<11 | uint16(msg.Destination)&0x07FF
	word2 := uint16(seqFlagsUnsegmented)<<14 | uint16(msg.ID)&0x3FFF
	binary.BigEndian.PutUint16(buf[0:2], word1)
	binary.BigEndian.PutUint16(buf[2:4], word2)
	binary.BigEndian.PutUint16(buf[4:6], uint16(dataLen-1))

	p := buf[headerLen:]
	p[0] = byte(msg.Payload.Kind)
	p[1] = byte(msg.Priority)
	binary.BigEndian.PutUint16(p[2:4], msg.Payload.Command.Opcode())
	binary.BigEndian.PutUint64(p[4:12], msg.ID)
	binary.BigEndian.PutUint16(p[12:14], uint16(msg.Source))
	binary.BigEndian.PutUint16(p[14:16], uint16(msg.Destination))
	binary.BigEndian.PutUint64(p[16:24], uint64(msg.CreatedAt.UnixMicro()))
	binary.BigEndian.PutUint64(p[24:32], uint64(msg.TTL.Microseconds()))

	off := fixedLen
	off = putSection16(p, off, msg.Payload.Args)
	off = putSection16(p, off, msg.Payload.Data)
	p[off] = byte(len(msg.Payload.Format))
	off += 1 + copy(p[off+1:], msg.Payload.Format)
	off = putSection16(p, off, []byte(msg.Token))

	crc := Checksum(buf[:headerLen+off])
	binary.BigEndian.PutUint16(p[off:], crc)
	return buf, nil
}

// Decode parses one space packet back into a message. The checksum is
// verified before any field is trusted.
func Decode(b []byte) (*message.Message, error) {
	if len(b) < headerLen {
		return nil, ErrTooShort
	}
	word1 := binary.BigEndian.Uint16(b[0:2])
	if word1>>13 != version {
		return nil, ErrVersion
	}
	dataLen := int(binary.BigEndian.Uint16(b[4:6])) + 1
	if len(b) != headerLen+dataLen || dataLen < fixedLen+crcLen {
		return nil, ErrTruncated
	}

	body := b[:len(b)-crcLen]
	wire := binary.BigEndian.Uint16(b[len(b)-crcLen:])
	if Checksum(body) != wire {
		return nil, ErrChecksum
	}

	p := b[headerLen : len(b)-crcLen]
	msg := &message.Message{
		ID:          binary.BigEndian.Uint64(p[4:12]),
		Priority:    message.Priority(p[1]),
		Source:      message.ComponentID(binary.BigEndian.Uint16(p[12:14])),
		Destination: message.ComponentID(binary.BigEndian.Uint16(p[14:16])),
		CreatedAt:   time.UnixMicro(int64(binary.BigEndian.Uint64(p[16:24]))),
		TTL:         time.Duration(binary.BigEndian.Uint64(p[24:32])) * time.Microsecond,
	}
	msg.Payload.Kind = message.PayloadKind(p[0])
	cmd := message.CommandType(binary.BigEndian.Uint16(p[2:4]))

	if !msg.Priority.Valid() {
		return nil, fmt.Errorf("spacepacket: invalid priority %d", p[1])
	}
	switch msg.Payload.Kind {
	case message.PayloadCommand:
		if !cmd.Valid() {
			return nil, fmt.Errorf("spacepacket: unknown command opcode 0x%04X", uint16(cmd))
		}
		if cmd.Priority() != msg.Priority {
			return nil, fmt.Errorf("spacepacket: priority %s does not match binding of %s", msg.Priority, cmd)
		}
		msg.Payload.Command = cmd
	case message.PayloadTelemetry:
		// telemetry carries no opcode
	default:
		return nil, fmt.Errorf("spacepacket: unknown payload kind %d", p[0])
	}

	off := fixedLen
	var err error
	if msg.Payload.Args, off, err = section16(p, off); err != nil {
		return nil, err
	}
	if msg.Payload.Data, off, err = section16(p, off); err != nil {
		return nil, err
	}
	if off >= len(p) {
		return nil, ErrTruncated
	}
	fLen := int(p[off])
	off++
	if off+fLen > len(p) {
		return nil, ErrTruncated
	}
	msg.Payload.Format = string(p[off : off+fLen])
	off += fLen
	var token []byte
	if token, off, err = section16(p, off); err != nil {
		return nil, err
	}
	msg.Token = string(token)
	if off != len(p) {
		return nil, ErrTruncated
	}
	return msg, nil
}

func putSection16(p []byte, off int, data []byte) int {
	binary.BigEndian.PutUint16(p[off:], uint16(len(data)))
	return off + 2 + copy(p[off+2:], data)
}

func section16(p []byte, off int) ([]byte, int, error) {
	if off+2 > len(p) {
		return nil, 0, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(p[off:]))
	off += 2
	if off+n > len(p) {
		return nil, 0, ErrTruncated
	}
	if n == 0 {
		return nil, off, nil
	}
	out := make([]byte, n)
	copy(out, p[off:off+n])
	return out, off + n, nil
}
