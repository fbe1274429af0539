package nn

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/valgrad/internal/autodiff"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input.
//
// Example:
//
//	model := nn.NewSequential(
//	    linear1,
//	    nn.NewTanh(),
//	    linear2,
//	)
//
//	output, err := model.Forward(input)
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies all modules in sequence.
//
// The first failing module aborts the chain; the error names its index.
func (s *Sequential) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	output := input
	for i, module := range s.modules {
		var err error
		output, err = module.Forward(output)
		if err != nil {
			return nil, errors.Wrapf(err, "sequential: module %d", i)
		}
	}
	return output, nil
}

// Parameters returns all trainable parameters from all modules, in module order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// NamedParameters returns every parameter keyed "<module index>.<name>"
// (e.g. "0.weight", "0.bias", "2.weight"), in module order.
func (s *Sequential) NamedParameters() *orderedmap.OrderedMap[string, *Parameter] {
	named := orderedmap.New[string, *Parameter]()
	for i, module := range s.modules {
		for _, p := range module.Parameters() {
			named.Set(fmt.Sprintf("%d.%s", i, p.Name()), p)
		}
	}
	return named
}

// Add appends a module to the sequence.
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

func (s *Sequential) String() string {
	parts := make([]string, len(s.modules))
	for i, m := range s.modules {
		parts[i] = describe(m)
	}
	return "Sequential(" + strings.Join(parts, ", ") + ")"
}

func describe(m Module) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", m)
}
