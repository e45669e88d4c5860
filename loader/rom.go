package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"strings"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// ByteOrder is the on-disk layout of a cartridge image.
type ByteOrder int

// Cartridge image layouts, named after their usual file extensions.
const (
	// OrderZ64 is native big-endian order.
	OrderZ64 ByteOrder = iota
	// OrderV64 swaps the bytes of each 16-bit half-word.
	OrderV64
	// OrderN64 reverses the bytes of each 32-bit word.
	OrderN64
)

func (o ByteOrder) String() string {
	switch o {
	case OrderZ64:
		return "z64"
	case OrderV64:
		return "v64"
	case OrderN64:
		return "n64"
	}
	return "unknown"
}

// HeaderSize is the size of the cartridge header.
const HeaderSize = 0x40

// BootCodeSize is the size of the header plus the IPL3 boot code the PIF
// copies to SP DMEM.
const BootCodeSize = 0x1000

// ErrBadROM is returned for images without a recognizable header.
var ErrBadROM = errors.New("not an N64 cartridge image")

// Header is the cartridge header at the start of every ROM.
type Header struct {
	PIConfig    uint32
	ClockRate   uint32
	BootAddress uint32
	Release     uint32
	CRC1        uint32
	CRC2        uint32
	Reserved    [8]byte
	Name        string `struc:"[20]byte"`
	Reserved2   [7]byte
	MediaFormat uint8
	CartID      string `struc:"[2]byte"`
	Country     uint8
	Version     uint8
}

// Title returns the cartridge name without padding.
func (h *Header) Title() string {
	return strings.TrimRight(h.Name, " \x00")
}

// ROM is a cartridge image in big-endian order.
type ROM struct {
	Data   []byte
	Header Header
	// Order is the layout the image was stored in.
	Order ByteOrder
}

// DetectOrder identifies the layout from the first word of the image.
func DetectOrder(data []byte) (ByteOrder, error) {
	if len(data) < 4 {
		return 0, errors.Wrap(ErrBadROM, "image too short")
	}

	switch binary.BigEndian.Uint32(data) {
	case 0x80371240:
		return OrderZ64, nil
	case 0x37804012:
		return OrderV64, nil
	case 0x40123780:
		return OrderN64, nil
	}
	return 0, errors.Wrapf(ErrBadROM, "unknown magic %#08x", binary.BigEndian.Uint32(data))
}

// Normalize converts data from order to big-endian order in place.
func Normalize(data []byte, order ByteOrder) {
	switch order {
	case OrderV64:
		for i := 0; i+1 < len(data); i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case OrderN64:
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+1], data[i+2], data[i+3] = data[i+3], data[i+2], data[i+1], data[i]
		}
	}
}

// ParseROM detects the layout of a cartridge image, converts it to
// big-endian order and decodes its header. data is modified in place.
func ParseROM(data []byte) (*ROM, error) {
	order, err := DetectOrder(data)
	if err != nil {
		return nil, err
	}
	if len(data) < BootCodeSize {
		return nil, errors.Wrapf(ErrBadROM, "image is %d bytes, need at least %d",
			len(data), BootCodeSize)
	}

	Normalize(data, order)

	rom := &ROM{Data: data, Order: order}
	err = struc.UnpackWithOrder(bytes.NewReader(data[:HeaderSize]), &rom.Header, binary.BigEndian)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode cartridge header")
	}

	return rom, nil
}

// LoadROM reads a cartridge image from a file.
func LoadROM(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ROM")
	}

	rom, err := ParseROM(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rom, nil
}

// BootCode returns the header and IPL3 boot code.
func (r *ROM) BootCode() []byte {
	return r.Data[:BootCodeSize]
}
