package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager("OneHotEncoder")

	err := s.RequireFitted("Transform")
	require.Error(t, err)
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))
	assert.Equal(t, "OneHotEncoder", notFitted.ModelName)
	assert.Equal(t, "Transform", notFitted.Method)

	s.SetDimensions(9, 7)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("Transform"))
	nf, ns := s.GetDimensions()
	assert.Equal(t, 9, nf)
	assert.Equal(t, 7, ns)

	s.Reset()
	assert.False(t, s.IsFitted())
	nf, ns = s.GetDimensions()
	assert.Zero(t, nf)
	assert.Zero(t, ns)
}

func TestStateManager_ConcurrentReads(t *testing.T) {
	s := NewStateManager("Regressor")
	s.SetFitted()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, s.IsFitted())
		}()
	}
	wg.Wait()
}
