// Package script runs user automation scripts against the workspace. The
// engine exposes expression constructors and a studio object to a goja VM
// and enforces the caller's deadline with a VM interrupt.
package script

import (
	"context"
	"errors"
	"fmt"
	"terrastudio/codesync"
	"terrastudio/editor"
	"terrastudio/territory"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrDeadline reports that a script ran past its deadline and was
// interrupted.
var ErrDeadline = errors.New("script deadline exceeded")

// Resolver finds the source expression a territory name is bound to.
// library.Store implements it.
type Resolver interface {
	Resolve(name string) (string, bool)
}

type Engine struct {
	log *zap.Logger
	lib Resolver
}

// New returns an engine. lib may be nil when no library store is around;
// resolve() then finds nothing.
func New(log *zap.Logger, lib Resolver) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log.Named("script"), lib: lib}
}

// Execute runs one script against the workspace editor. Constructors and
// studio methods reach the VM uncapitalized: gadm("IND"), studio.addFlag.
func (e *Engine) Execute(ctx context.Context, src string, ed *editor.Editor) error {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	vm.Set("sprintf", fmt.Sprintf)
	vm.Set("printf", fmt.Printf)
	vm.Set("println", fmt.Println)
	vm.Set("gadm", func(codes ...string) territory.Part {
		return territory.GADM(codes...)
	})
	vm.Set("polygon", func(points []territory.LatLng) territory.Part {
		return territory.Polygon(points...)
	})
	vm.Set("territory", func(name string) territory.Part {
		return territory.Predefined(name)
	})
	vm.Set("group", func(parts ...territory.Part) territory.Part {
		return territory.Group(parts...)
	})
	vm.Set("resolve", func(name string) goja.Value {
		if e.lib == nil {
			return goja.Null()
		}
		expr, ok := e.lib.Resolve(name)
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(expr)
	})
	vm.Set("studio", &studioAPI{ed: ed})

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := vm.RunString(src)
		done <- err
	}()

	select {
	case <-ctx.Done():
		vm.Interrupt("deadline")
		<-done
		e.log.Warn("script interrupted", zap.Duration("after", time.Since(start)))
		return fmt.Errorf("%w: %v", ErrDeadline, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("script failed: %w", err)
		}
		e.log.Info("script completed", zap.Duration("took", time.Since(start)))
		return nil
	}
}

// studioAPI is the studio object visible to scripts.
type studioAPI struct {
	ed *editor.Editor
}

// AddFlag appends a flag built from a part or a list of parts and returns
// its element id.
func (s *studioAPI) AddFlag(label string, value goja.Value) (string, error) {
	parts, err := toParts(value)
	if err != nil {
		return "", err
	}
	return s.ed.AddFlag(label, parts), nil
}

func (s *studioAPI) AddPoint(label string, lat, lng float64) string {
	return s.ed.AddPoint(label, territory.LatLng{lat, lng})
}

func (s *studioAPI) AddText(label string, lat, lng float64) string {
	return s.ed.AddText(label, territory.LatLng{lat, lng})
}

// Flags lists the workspace flags as {id, label, value} records, value
// being the serialized expression.
func (s *studioAPI) Flags() []map[string]interface{} {
	flags := s.ed.Snapshot().Flags()
	out := make([]map[string]interface{}, 0, len(flags))
	for _, el := range flags {
		out = append(out, map[string]interface{}{
			"id":    el.ID,
			"label": el.Label,
			"value": territory.Serialize(el.Expr),
		})
	}
	return out
}

// Serialize returns the serialized expression of the flag with the given
// label.
func (s *studioAPI) Serialize(label string) (string, error) {
	for _, el := range s.ed.Snapshot().Flags() {
		if el.Label == label {
			return territory.Serialize(el.Expr), nil
		}
	}
	return "", fmt.Errorf("no flag labelled %q", label)
}

// Source returns the generated source for the current workspace.
func (s *studioAPI) Source() string {
	return codesync.Generate(s.ed.Snapshot())
}

func (s *studioAPI) Zoom(z float64) {
	s.ed.SetZoom(z)
}

func (s *studioAPI) Focus(lat, lng float64) {
	s.ed.SetFocus(territory.LatLng{lat, lng})
}

// toParts accepts a single expression fragment or an array of them.
func toParts(v goja.Value) ([]territory.Part, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return []territory.Part{}, nil
	}
	switch exported := v.Export().(type) {
	case territory.Part:
		return []territory.Part{exported}, nil
	case []territory.Part:
		return exported, nil
	case []interface{}:
		parts := make([]territory.Part, 0, len(exported))
		for _, item := range exported {
			part, ok := item.(territory.Part)
			if !ok {
				return nil, fmt.Errorf("expected a territory part, got %T", item)
			}
			parts = append(parts, part)
		}
		return parts, nil
	}
	return nil, fmt.Errorf("expected a territory part or a list of them, got %T", v.Export())
}
