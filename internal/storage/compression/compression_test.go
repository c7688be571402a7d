package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"lz4", "none"}, Available())

	c, err := Get("lz4")
	require.NoError(t, err)
	assert.Equal(t, "lz4", c.Name())

	_, err = Get("zstd")
	assert.Error(t, err)
}

func TestCompressors(t *testing.T) {
	inputs := map[string][]byte{
		"empty":      {},
		"tiny":       []byte("x"),
		"repetitive": bytes.Repeat([]byte("divvy ledger snapshot "), 200),
	}
	for _, name := range Available() {
		c, err := Get(name)
		require.NoError(t, err)
		for label, in := range inputs {
			t.Run(name+"/"+label, func(t *testing.T) {
				packed, err := c.Compress(in)
				require.NoError(t, err)
				out, err := c.Decompress(packed)
				require.NoError(t, err)
				assert.Equal(t, len(in), len(out))
				assert.True(t, bytes.Equal(in, out))
			})
		}
	}
}

func TestLZ4Shrinks(t *testing.T) {
	in := bytes.Repeat([]byte("abcdefgh"), 1024)
	packed, err := (&LZ4Compressor{}).Compress(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in)/4)
	assert.Equal(t, modeBlock, packed[0])
}

func TestLZ4Corrupt(t *testing.T) {
	c := &LZ4Compressor{}
	packed, err := c.Compress(bytes.Repeat([]byte("abcdefgh"), 64))
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"empty":     nil,
		"bad mode":  append([]byte{9}, packed[1:]...),
		"truncated": packed[:len(packed)/2],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decompress(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
