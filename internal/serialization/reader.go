package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Read decodes a .born stream. The checksum and every tensor entry are
// validated before any data is returned.
func Read(r io.Reader) (Header, *StateDict, error) {
	var header Header

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return header, nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return header, nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return header, nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return header, nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return header, nil, errors.Wrap(err, "failed to read header JSON")
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return header, nil, errors.Wrap(err, "failed to parse header JSON")
	}
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if _, err := io.CopyN(io.Discard, r, int64(padding(int(headerSize)))); err != nil {
		return header, nil, errors.Wrap(err, "failed to skip padding")
	}

	if dataSize > math.MaxInt64 {
		return header, nil, &ValidationError{Type: "out_of_bounds", Details: "data size overflows"}
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return header, nil, errors.Wrap(err, "validation failed")
	}
	if end := dataEnd(header.Tensors); end != int64(dataSize) {
		return header, nil, &ValidationError{
			Type:    "size_mismatch",
			Details: fmt.Sprintf("tensors cover %d bytes, data section has %d", end, dataSize),
		}
	}
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return header, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return header, nil, err
	}

	sd := NewStateDict()
	for _, meta := range header.Tensors {
		buf := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, len(buf)/float64Size)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*float64Size:]))
		}
		sd.Set(meta.Name, Tensor{Shape: tensor.Shape(meta.Shape), Data: values})
	}
	return header, sd, nil
}

// Load reads a .born file from path.
func Load(path string) (Header, *StateDict, error) {
	//nolint:gosec // G304: the path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to open file")
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}
