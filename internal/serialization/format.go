package serialization

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat64    = "float64"
	float64Size     = 8
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // bit 1: optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	Version        string            `json:"version"`              // Version of the writer
	ModelType      string            `json:"model_type"`           // e.g. "Sequential"
	CreatedAt      time.Time         `json:"created_at"`           // When the file was created
	Tensors        []TensorMeta      `json:"tensors"`              // Tensor metadata, in data order
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Training state (optional)
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	Epoch         int     `json:"epoch"`          // Training epoch number
	Loss          float64 `json:"loss"`           // Loss value at checkpoint
	OptimizerType string  `json:"optimizer_type"` // "sgd" or "adam"
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "model.0.weight"
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a named buffer with its shape.
type Tensor struct {
	Shape tensor.Shape
	Data  []float64
}

// StateDict maps tensor names to tensors, in write order.
type StateDict = orderedmap.OrderedMap[string, Tensor]

// NewStateDict returns an empty StateDict.
func NewStateDict() *StateDict {
	return orderedmap.New[string, Tensor]()
}
