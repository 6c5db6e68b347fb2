package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranscode/internal/model"
)

func scanOrderNames(t *testing.T, p *Provider, db *model.Database) []string {
	t.Helper()
	order, err := p.ScanOrder(context.Background(), db)
	require.NoError(t, err)
	result := make([]string, len(order))
	for i, m := range order {
		result[i] = m.Name()
	}
	return result
}

func TestScanOrderFollowsDependencies(t *testing.T) {
	db := geoDatabase(t)
	p := geoProvider(t)
	assert.Equal(t, []string{"COUNTRY", "STATE", "CITY"}, scanOrderNames(t, p, db))

	// CITY no longer depends on STATE once STATE has no identity
	noState := NewProvider()
	require.NoError(t, noState.Add(NewUniqueKeyIdentity("CITY", "name", "state_id")))
	require.NoError(t, noState.Add(NewNkPkQueryIdentity("COUNTRY", countryQuery)))
	assert.Equal(t, []string{"CITY", "COUNTRY"}, scanOrderNames(t, noState, db))
}

func TestScanOrderRejectsCycles(t *testing.T) {
	db := geoDatabase(t)
	p := NewProvider()
	require.NoError(t, p.Add(NewSubNkPkQueryIdentity("STATE", []string{"COUNTRY"}, stateSubQuery)))
	require.NoError(t, p.Add(NewSubNkPkQueryIdentity("COUNTRY", []string{"STATE"}, "SELECT 1, 1")))

	_, err := p.ScanOrder(context.Background(), db)
	assert.ErrorIs(t, err, model.ErrCycle)
}

func TestProviderSharesErrorHandler(t *testing.T) {
	p := geoProvider(t)
	h := quietHandler()
	p.SetErrorHandler(h)
	for _, m := range p.Identities() {
		assert.Same(t, h, m.ErrorHandler())
	}

	late := NewNoIdentity("LOG")
	require.NoError(t, p.Add(late))
	assert.Same(t, h, late.ErrorHandler())

	m, ok := p.Identity("log")
	require.True(t, ok)
	assert.True(t, Equal(late, m))

	assert.ErrorIs(t, p.Add(nil), model.ErrInvalidArgument)
}

func TestErrorHandlerCounts(t *testing.T) {
	h := quietHandler()
	ctx := context.Background()
	h.HandleError(ctx, "first")
	h.HandleError(ctx, "second")
	assert.Equal(t, 2, h.Count())
	assert.Equal(t, []string{"first", "second"}, h.Messages())
	assert.Equal(t, "test", h.Name())

	h.Reset()
	assert.Zero(t, h.Count())
	assert.Equal(t, DefaultHandlerName, DefaultErrorHandler().Name())
}
