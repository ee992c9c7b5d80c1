package filter

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/signalwatch/store"
)

var events = []*store.Event{
	{ID: "e1", Type: "login", Description: "failed VPN login", Severity: store.SeverityLow, WatchlistID: "w1", CreatedTs: 100},
	{ID: "e2", Type: "malware", Description: "beacon to C2", Severity: store.SeverityHigh, WatchlistID: "w1", CreatedTs: 200},
	{ID: "e3", Type: "breach", Description: "data exfiltration", Severity: store.SeverityCritical, WatchlistID: "w2", CreatedTs: 300},
}

func ids(list []*store.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestCompileAndApply(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`severity in ["HIGH", "CRITICAL"]`, []string{"e2", "e3"}},
		{`description.contains("VPN")`, []string{"e1"}},
		{`watchlist_id == "w1" && created_ts > 150`, []string{"e2"}},
		{`event_type.startsWith("b")`, []string{"e3"}},
		{`true`, []string{"e1", "e2", "e3"}},
		{`false`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prg, err := Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, prg.String())

			got, err := prg.Apply(events)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	for _, expr := range []string{
		`severity ==`,
		`unknown_var == "x"`,
		`severity`,
		`created_ts + 1`,
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Compile(expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFilter))
		})
	}
}

func TestMatch(t *testing.T) {
	prg, err := Compile(`severity == "LOW"`)
	require.NoError(t, err)

	ok, err := prg.Match(events[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = prg.Match(events[1])
	require.NoError(t, err)
	assert.False(t, ok)
}
