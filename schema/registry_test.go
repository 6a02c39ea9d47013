package schema_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sharegraph/schema"
)

func TestRegistryBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	reg := schema.NewRegistry(func() (*schema.Schema, error) {
		builds.Add(1)
		return pavement(), nil
	})

	var (
		wg  sync.WaitGroup
		got = make([]*schema.Schema, 32)
	)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := reg.Schema()
			assert.NoError(t, err)
			got[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
}

func TestRegistryRetriesFailedBuild(t *testing.T) {
	calls := 0
	reg := schema.NewRegistry(func() (*schema.Schema, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("disk on fire")
		}
		return pavement(), nil
	})

	_, err := reg.Schema()
	require.Error(t, err)
	s, err := reg.Schema()
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 2, calls)
	assert.Same(t, s, reg.MustSchema())
}

func TestStaticRegistry(t *testing.T) {
	s := pavement()
	assert.Same(t, s, schema.StaticRegistry(s).MustSchema())

	reg := schema.NewRegistry(func() (*schema.Schema, error) { return nil, errors.New("nope") })
	assert.Panics(t, func() { reg.MustSchema() })
}
