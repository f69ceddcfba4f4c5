package spacepacket

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mission-control/mdc/internal/message"
)

func TestChecksumKnownVector(t *testing.T) {
	if got := Checksum([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("Checksum = 0x%04X, want 0x29B1", got)
	}
}

func TestRoundTripCommand(t *testing.T) {
	msg, err := message.NewCommand(message.CollisionAvoidance,
		message.ComponentGround, message.ComponentFlight, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	msg.Token = "signed-token"
	msg.TTL = 1500 * time.Millisecond

	wire, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ID != msg.ID {
		t.Errorf("ID = %d, want %d", got.ID, msg.ID)
	}
	if got.Priority != message.Critical {
		t.Errorf("Priority = %s, want CRITICAL", got.Priority)
	}
	if got.Payload.Command != message.CollisionAvoidance {
		t.Errorf("Command = %s, want collisionAvoidance", got.Payload.Command)
	}
	if got.Source != msg.Source || got.Destination != msg.Destination {
		t.Errorf("route = %d->%d, want %d->%d", got.Source, got.Destination, msg.Source, msg.Destination)
	}
	if string(got.Payload.Args) != string(msg.Payload.Args) {
		t.Errorf("Args = %x, want %x", got.Payload.Args, msg.Payload.Args)
	}
	if got.Token != msg.Token {
		t.Errorf("Token = %q, want %q", got.Token, msg.Token)
	}
	if got.TTL != msg.TTL {
		t.Errorf("TTL = %v, want %v", got.TTL, msg.TTL)
	}
	// The wire truncates the timestamp to microseconds.
	if !got.CreatedAt.Equal(msg.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, msg.CreatedAt.Truncate(time.Microsecond))
	}
}

func TestRoundTripTelemetry(t *testing.T) {
	msg, err := message.NewTelemetry(message.ComponentFlight, message.ComponentGround,
		message.Medium, []byte(`{"batt_v":27.9}`), "json")
	if err != nil {
		t.Fatalf("NewTelemetry: %v", err)
	}

	wire, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Payload.Kind != message.PayloadTelemetry {
		t.Fatalf("Kind = %d, want telemetry", got.Payload.Kind)
	}
	if string(got.Payload.Data) != string(msg.Payload.Data) {
		t.Errorf("Data = %q, want %q", got.Payload.Data, msg.Payload.Data)
	}
	if got.Payload.Format != "json" {
		t.Errorf("Format = %q, want json", got.Payload.Format)
	}
	if got.Priority != message.Medium {
		t.Errorf("Priority = %s, want MEDIUM", got.Priority)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	msg, _ := message.NewCommand(message.SendStatus, message.ComponentFlight, message.ComponentGround, nil)
	wire, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	wire[10] ^= 0x01
	if _, err := Decode(wire); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
}

func TestDecodeRejectsShortAndTruncated(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x01}); !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}

	msg, _ := message.NewCommand(message.SendStatus, message.ComponentFlight, message.ComponentGround, nil)
	wire, _ := Encode(msg)
	if _, err := Decode(wire[:len(wire)-3]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	msg, _ := message.NewCommand(message.SendStatus, message.ComponentFlight, message.ComponentGround, nil)
	wire, _ := Encode(msg)
	wire[0] |= 0xE0 // force a nonzero version
	if _, err := Decode(wire); !errors.Is(err, ErrVersion) {
		t.Fatalf("err = %v, want ErrVersion", err)
	}
}

func TestDecodeRejectsPriorityMismatch(t *testing.T) {
	msg, _ := message.NewCommand(message.EmergencyAbort, message.ComponentGround, message.ComponentFlight, nil)
	wire, _ := Encode(msg)

	// Tamper the priority byte and re-seal the packet so only the binding
	// check can catch it.
	wire[7] = byte(message.Low)
	crc := Checksum(wire[:len(wire)-2])
	binary.BigEndian.PutUint16(wire[len(wire)-2:], crc)

	_, err := Decode(wire)
	if err == nil || !strings.Contains(err.Error(), "binding") {
		t.Fatalf("err = %v, want priority binding violation", err)
	}
}

func TestEncodeRejectsOversizedSections(t *testing.T) {
	msg, _ := message.NewTelemetry(message.ComponentFlight, message.ComponentGround,
		message.Low, make([]byte, 70_000), "raw")
	if _, err := Encode(msg); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
