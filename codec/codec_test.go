package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	type record struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}

	t.Run("ByName", func(t *testing.T) {
		for _, name := range []string{"json", "go-json"} {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())
		}

		_, ok := ByName("msgpack")
		assert.False(t, ok)
	})

	t.Run("Interoperable", func(t *testing.T) {
		// Both codecs emit standard JSON, so either one can open a payload
		// written by the other.
		in := record{Name: "Eiffel Tower", Score: 0.92}

		data, err := (GoJSON{}).Marshal(in)
		require.NoError(t, err)

		var out record
		require.NoError(t, (JSON{}).Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("UnmarshalInvalid", func(t *testing.T) {
		var out record
		assert.Error(t, (JSON{}).Unmarshal([]byte("{"), &out))
		assert.Error(t, (GoJSON{}).Unmarshal([]byte("{"), &out))
	})
}
