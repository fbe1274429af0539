package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Version is recorded in every header this package writes.
const Version = "0.1.0"

// Write encodes sd into w. Tensors, Version and CreatedAt in header are
// filled in; the remaining fields are written as given.
func Write(w io.Writer, sd *StateDict, header Header) error {
	header.FormatVersion = FormatVersion
	header.Version = Version
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data bytes.Buffer
	header.Tensors = make([]TensorMeta, 0, sd.Len())
	for pair := sd.Oldest(); pair != nil; pair = pair.Next() {
		name, t := pair.Key, pair.Value
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if len(t.Data) != t.Shape.NumElements() {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  name,
				Details: "data length does not match shape " + t.Shape.String(),
			}
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int(t.Shape.Clone()),
			Offset: int64(data.Len()),
			Size:   int64(len(t.Data)) * float64Size,
		})
		var buf [float64Size]byte
		for _, x := range t.Data {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			data.Write(buf[:])
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], headerFlags(header))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	checksum := ComputeChecksum(data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header JSON")
	}
	if pad := padding(len(headerJSON)); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "failed to write padding")
		}
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// Save writes sd to path, replacing any existing file.
func Save(path string, sd *StateDict, header Header) error {
	//nolint:gosec // G304: the path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(f, sd, header); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func headerFlags(h Header) uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.CheckpointMeta != nil && h.CheckpointMeta.OptimizerType != "" {
		flags |= FlagHasOptimizer
	}
	return flags
}

// padding is the number of zero bytes between a header of headerSize bytes
// and the data section.
func padding(headerSize int) int {
	pos := FixedHeaderSize + headerSize
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}
