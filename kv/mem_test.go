package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreGetPutDelete(t *testing.T) {
	st := NewMem()
	defer st.Close()

	_, err := st.Get([]byte("k"))
	require.Error(t, err)
	assert.True(t, st.IsNotFound(err))

	require.NoError(t, st.Put([]byte("k"), []byte("v")))
	v, err := st.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	has, err := st.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, st.Delete([]byte("k")))
	_, err = st.Get([]byte("k"))
	assert.True(t, st.IsNotFound(err))
}

func TestMemStoreBatchAndIterate(t *testing.T) {
	st := NewMem()
	defer st.Close()

	require.NoError(t, st.Batch([]Op{
		PutOp([]byte("a/1"), []byte("1")),
		PutOp([]byte("a/2"), []byte("2")),
		PutOp([]byte("b/1"), []byte("3")),
	}))

	var keys []string
	it := st.Iterate([]byte("a/"))
	defer it.Release()
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
}
