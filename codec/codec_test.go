package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSON_RoundTrip(t *testing.T) {
	type payload struct {
		Name  string    `json:"name"`
		Times []float64 `json:"times"`
	}

	in := payload{Name: "interval-0", Times: []float64{0, 0.5, 1.25}}
	data, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	require.Equal(t, "json", c.Name())

	_, ok = ByName("msgpack")
	require.False(t, ok)
}

func TestMustMarshal_DefaultsAndPanics(t *testing.T) {
	require.NotEmpty(t, MustMarshal(nil, map[string]int{"rank": 3}))
	require.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
