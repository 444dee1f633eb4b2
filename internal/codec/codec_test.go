package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type measurement struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

func TestJSON_compact(t *testing.T) {
	b, err := JSON{}.Marshal(measurement{Type: "temp", Value: 21.5})
	require.NoError(t, err)
	require.Equal(t, `{"type":"temp","value":21.5}`, string(b))
}

func TestDecode(t *testing.T) {
	m, err := Decode[measurement](Or(nil), []byte(`{"type":"temp","value":3}`))
	require.NoError(t, err)
	require.Equal(t, measurement{Type: "temp", Value: 3}, m)

	_, err = Decode[measurement](JSON{}, []byte(`{`))
	require.Error(t, err)
}
