package tier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromScore(t *testing.T) {
	cases := []struct {
		score uint64
		want  Tier
	}{
		{score: 1_000_000, want: A},
		{score: 900_001, want: A},
		{score: 900_000, want: A},
		{score: 899_999, want: B},
		{score: 850_000, want: B},
		{score: 849_999, want: C},
		{score: 750_000, want: C},
		{score: 749_999, want: D},
		{score: 0, want: D},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FromScore(tc.score), "score %d", tc.score)
	}
}

func TestTier_Index(t *testing.T) {
	require.Equal(t, 0, A.Index())
	require.Equal(t, Count-1, D.Index())
	require.False(t, None.Valid())
	require.False(t, Tier(5).Valid())
	require.True(t, C.Valid())
}

func TestParse(t *testing.T) {
	for _, tr := range []Tier{None, A, B, C, D} {
		got, err := Parse(tr.String())
		require.NoError(t, err)
		require.Equal(t, tr, got)
	}
	_, err := Parse("E")
	require.EqualError(t, err, `unknown tier "E"`)
	require.Equal(t, "tier(9)", Tier(9).String())
}

func TestTier_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]Tier{"tier": B})
	require.NoError(t, err)
	require.JSONEq(t, `{"tier":"B"}`, string(b))

	var v struct{ Tier Tier }
	require.NoError(t, json.Unmarshal([]byte(`{"Tier":"d"}`), &v))
	require.Equal(t, D, v.Tier)
	require.EqualError(t, json.Unmarshal([]byte(`{"Tier":"X"}`), &v), `unknown tier "X"`)
}
