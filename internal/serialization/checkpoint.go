package serialization

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/optim"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Name prefixes separating model parameters from optimizer buffers.
const (
	ModelPrefix     = "model."
	OptimizerPrefix = "optim."
)

// Stateful is an optimizer whose buffers can be exported and restored.
// *optim.SGD and *optim.Adam implement it.
type Stateful interface {
	State() *optim.State
	LoadState(state *optim.State) error
}

// ModelState copies every named parameter of m into a StateDict under
// "model.<index>.<name>".
func ModelState(m *nn.Sequential) *StateDict {
	sd := NewStateDict()
	named := m.NamedParameters()
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		sd.Set(ModelPrefix+pair.Key, Tensor{
			Shape: p.Shape().Clone(),
			Data:  append([]float64(nil), p.Data()...),
		})
	}
	return sd
}

// LoadModelState copies parameters from sd into m. Every parameter of m must
// be present with an identical shape; nothing is modified otherwise.
func LoadModelState(m *nn.Sequential, sd *StateDict) error {
	named := m.NamedParameters()
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		t, ok := sd.Get(ModelPrefix + pair.Key)
		if !ok {
			return errors.Wrap(ErrMissingTensor, ModelPrefix+pair.Key)
		}
		if !t.Shape.Equal(pair.Value.Shape()) {
			return tensor.NewShapeError("load_state",
				fmt.Sprintf("parameter %s", pair.Key), pair.Value.Shape(), t.Shape)
		}
	}
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		t, _ := sd.Get(ModelPrefix + pair.Key)
		if err := pair.Value.Value().SetData(t.Data); err != nil {
			return errors.Wrapf(err, "parameter %s", pair.Key)
		}
	}
	return nil
}

// SaveCheckpoint writes the parameters of m and, when opt is non-nil, its
// buffers to path.
func SaveCheckpoint(path string, m *nn.Sequential, opt Stateful, meta CheckpointMeta) error {
	sd := ModelState(m)
	if opt != nil {
		state := opt.State()
		for pair := state.Oldest(); pair != nil; pair = pair.Next() {
			sd.Set(OptimizerPrefix+pair.Key, Tensor{
				Shape: tensor.Shape{len(pair.Value)},
				Data:  pair.Value,
			})
		}
	} else {
		meta.OptimizerType = ""
	}
	header := Header{ModelType: "Sequential", CheckpointMeta: &meta}
	return errors.Wrap(Save(path, sd, header), "save checkpoint")
}

// LoadCheckpoint restores m and, when opt is non-nil, its buffers from path.
func LoadCheckpoint(path string, m *nn.Sequential, opt Stateful) (CheckpointMeta, error) {
	header, sd, err := Load(path)
	if err != nil {
		return CheckpointMeta{}, errors.Wrap(err, "load checkpoint")
	}
	var meta CheckpointMeta
	if header.CheckpointMeta != nil {
		meta = *header.CheckpointMeta
	}
	if err := LoadModelState(m, sd); err != nil {
		return meta, errors.Wrap(err, "load checkpoint")
	}
	if opt == nil {
		return meta, nil
	}

	state := optim.NewState()
	for pair := sd.Oldest(); pair != nil; pair = pair.Next() {
		if key, ok := strings.CutPrefix(pair.Key, OptimizerPrefix); ok {
			state.Set(key, pair.Value.Data)
		}
	}
	if err := opt.LoadState(state); err != nil {
		return meta, errors.Wrap(err, "load checkpoint")
	}
	return meta, nil
}
