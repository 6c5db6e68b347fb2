package identity

import (
	"context"
	"fmt"

	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/names"
)

// Provider holds the identity models of a database, keyed case-insensitively
// by table name. All models report through the provider's error handler.
type Provider struct {
	models  *names.OrderedMap[Model]
	handler *ErrorHandler
}

// NewProvider creates an empty provider using DefaultErrorHandler.
func NewProvider() *Provider {
	return &Provider{models: names.NewOrderedMap[Model](), handler: DefaultErrorHandler()}
}

// Add registers m, replacing a previous model of the same table.
func (p *Provider) Add(m Model) error {
	if m == nil {
		return fmt.Errorf("identity is nil: %w", model.ErrInvalidArgument)
	}
	m.SetErrorHandler(p.handler)
	if b, ok := m.(interface{ setProvider(*Provider) }); ok {
		b.setProvider(p)
	}
	p.models.Put(m.Name(), m)
	return nil
}

// Identity returns the model of table.
func (p *Provider) Identity(table string) (Model, bool) {
	return p.models.Get(table)
}

// Identities returns all models in registration order.
func (p *Provider) Identities() []Model { return p.models.Values() }

// ErrorHandler returns the shared handler.
func (p *Provider) ErrorHandler() *ErrorHandler { return p.handler }

// SetErrorHandler replaces the handler of the provider and all its models.
func (p *Provider) SetErrorHandler(h *ErrorHandler) {
	p.handler = h
	for _, m := range p.models.Values() {
		m.SetErrorHandler(h)
	}
}

// ScanOrder returns the models so that every model follows the models it
// depends on. Dependencies without a model are ignored. A dependency cycle
// fails with model.ErrCycle.
func (p *Provider) ScanOrder(ctx context.Context, db *model.Database) ([]Model, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := names.NewOrderedMap[int]()
	var order []Model

	var visit func(m Model, trail []string) error
	visit = func(m Model, trail []string) error {
		s, _ := state.Get(m.Name())
		switch s {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("identities %v depend on each other: %w", append(trail, m.Name()), model.ErrCycle)
		}
		state.Put(m.Name(), visiting)
		deps, err := m.Dependencies(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to resolve dependencies of %s: %w", m.Name(), err)
		}
		for _, dep := range deps {
			if names.Equal(dep, m.Name()) {
				continue
			}
			depModel, ok := p.models.Get(dep)
			if !ok {
				continue
			}
			if err := visit(depModel, append(trail, m.Name())); err != nil {
				return err
			}
		}
		state.Put(m.Name(), done)
		order = append(order, m)
		return nil
	}

	for _, m := range p.models.Values() {
		if err := visit(m, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
