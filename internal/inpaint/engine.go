package inpaint

import (
	"fmt"
	"sort"
	"sync"

	"eraser/internal/mask"
	"eraser/internal/media/frame"
	"eraser/internal/services"
)

// Engine names.
const (
	EngineTelea  = "telea"
	EngineOpenCV = "opencv"
)

// DefaultRadius is the neighbourhood considered around each filled pixel.
const DefaultRadius = 5

// Engine reconstructs the masked pixels of a frame.
//
// Implementations must leave unmasked pixels untouched and must not retain
// state between calls; a single engine is shared by every worker.
type Engine interface {
	Name() string
	Inpaint(f *frame.Frame, m *mask.Mask) (*frame.Frame, error)
}

type constructor func(radius int) Engine

var (
	registryMu sync.RWMutex
	registry   = map[string]constructor{
		EngineTelea: func(radius int) Engine { return NewTelea(radius) },
	}
)

func register(name string, ctor constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Names lists the engines compiled into this binary.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available reports whether name can be constructed by New.
func Available(name string) error {
	registryMu.RLock()
	_, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return nil
	}
	if name == EngineOpenCV {
		return services.Wrap(services.ErrConfiguration, "inpaint", "select engine",
			"opencv engine requires a build with the with_cv tag", nil)
	}
	return services.Wrap(services.ErrConfiguration, "inpaint", "select engine",
		fmt.Sprintf("unknown engine %q", name), nil)
}

// New returns the named engine. A non-positive radius selects DefaultRadius.
func New(name string, radius int) (Engine, error) {
	if err := Available(name); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	registryMu.RLock()
	ctor := registry[name]
	registryMu.RUnlock()
	return ctor(radius), nil
}

func checkInputs(f *frame.Frame, m *mask.Mask) error {
	if err := f.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "inpaint", "check frame", "", err)
	}
	if m == nil {
		return services.Wrap(services.ErrValidation, "inpaint", "check mask", "nil mask", nil)
	}
	if m.Width != f.Width || m.Height != f.Height || len(m.Pix) != m.Width*m.Height {
		return services.Wrap(services.ErrValidation, "inpaint", "check mask",
			fmt.Sprintf("mask %dx%d does not match frame %dx%d", m.Width, m.Height, f.Width, f.Height), nil)
	}
	return nil
}
