package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	s := NewConfigStore()

	require.NoError(t, s.Set("embedding.model", "bge-m3"))
	val, ok := s.Get("embedding.model")

	assert.True(t, ok)
	assert.Equal(t, "bge-m3", val)

	_, ok = s.Get("embedding.absent")
	assert.False(t, ok)
}

func TestConfigStore_KeepsValueTypes(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("chunking.size", 512))
	require.NoError(t, s.Set("llm.mistral.temperature", 0.2))
	require.NoError(t, s.Set("reranker.enabled", true))

	v, _ := s.Get("chunking.size")
	assert.Equal(t, 512, v)
	v, _ = s.Get("llm.mistral.temperature")
	assert.Equal(t, 0.2, v)
	v, _ = s.Get("reranker.enabled")
	assert.Equal(t, true, v)
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("retrieval.top_k", 5))

	assert.NoError(t, s.Save())
	assert.NoError(t, s.Load())
	assert.Equal(t, []string{"retrieval.top_k"}, s.Keys())
	assert.Equal(t, ":memory:", s.Path())
}

func TestConfigStore_Concurrent(t *testing.T) {
	s := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Set("ingestion.batch_size", n)
			_, _ = s.Get("ingestion.batch_size")
		}(i)
	}
	wg.Wait()

	_, ok := s.Get("ingestion.batch_size")
	assert.True(t, ok)
}

func TestConfigStore_KeysSorted(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("retrieval.top_k", 5))
	require.NoError(t, s.Set("chunking.size", 256))
	assert.Equal(t, []string{"chunking.size", "retrieval.top_k"}, s.Keys())
}
