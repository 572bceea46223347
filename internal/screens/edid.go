package screens

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// EDID holds the identifying fields of a monitor's EDID block.
type EDID struct {
	Manufacturer string
	ProductCode  uint16
	Serial       uint32
	// Model and SerialText come from the optional 0xFC and 0xFF display
	// descriptors and may be empty.
	Model      string
	SerialText string
}

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

var ErrInvalidEDID = errors.New("invalid EDID")

// ParseEDID decodes the base block of an EDID blob.
func ParseEDID(b []byte) (EDID, error) {
	if len(b) < 128 {
		return EDID{}, fmt.Errorf("%w: %d bytes", ErrInvalidEDID, len(b))
	}
	for i, v := range edidHeader {
		if b[i] != v {
			return EDID{}, fmt.Errorf("%w: bad header", ErrInvalidEDID)
		}
	}

	var e EDID
	pnp := binary.BigEndian.Uint16(b[8:10])
	letters := []byte{
		byte((pnp>>10)&0x1f) + 'A' - 1,
		byte((pnp>>5)&0x1f) + 'A' - 1,
		byte(pnp&0x1f) + 'A' - 1,
	}
	for _, c := range letters {
		if c < 'A' || c > 'Z' {
			return EDID{}, fmt.Errorf("%w: bad manufacturer id", ErrInvalidEDID)
		}
	}
	e.Manufacturer = string(letters)
	e.ProductCode = binary.LittleEndian.Uint16(b[10:12])
	e.Serial = binary.LittleEndian.Uint32(b[12:16])

	// Four 18-byte descriptors start at 54.
	for off := 54; off+18 <= 126; off += 18 {
		d := b[off : off+18]
		if d[0] != 0 || d[1] != 0 {
			continue
		}
		switch d[3] {
		case 0xfc:
			e.Model = descriptorText(d[5:])
		case 0xff:
			e.SerialText = descriptorText(d[5:])
		}
	}
	return e, nil
}

func descriptorText(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ModelName is the human-readable model, falling back to the product code.
func (e EDID) ModelName() string {
	if e.Model != "" {
		return e.Model
	}
	return fmt.Sprintf("0x%04x", e.ProductCode)
}

// SerialNumber prefers the text serial over the numeric one.
func (e EDID) SerialNumber() string {
	if e.SerialText != "" {
		return e.SerialText
	}
	if e.Serial != 0 {
		return fmt.Sprintf("%d", e.Serial)
	}
	return ""
}

// Hash derives a stable identifier from manufacturer, model and serial.
func (e EDID) Hash() string {
	sum := sha256.Sum256([]byte(e.Manufacturer + "|" + e.ModelName() + "|" + e.SerialNumber()))
	return "EDID-" + hex.EncodeToString(sum[:8])
}

// StableID returns the EDID hash for raw, or the connector name when raw is
// missing or unreadable.
func StableID(connector string, raw []byte) string {
	if len(raw) == 0 {
		return connector
	}
	e, err := ParseEDID(raw)
	if err != nil {
		return connector
	}
	return e.Hash()
}
