package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-shard-query/internal/model"
)

var testTemplate = model.ConnectionTemplate{
	Host:     "db-{param}.internal",
	Port:     "3306",
	User:     "reader",
	Password: "secret-{param}",
	Database: "app_{param}",
}

func TestResolveTargets(t *testing.T) {
	got, err := ResolveTargets("a, b ,c", testTemplate)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, model.ShardTarget{
		Param: "b",
		Config: model.ConnectionConfig{
			Host:     "db-b.internal",
			Port:     3306,
			User:     "reader",
			Password: "secret-b",
			Database: "app_b",
		},
	}, got[1])

	var params []string
	for _, target := range got {
		params = append(params, target.Param)
	}
	assert.Equal(t, []string{"a", "b", "c"}, params)
}

func TestResolveTargets_SkipsEmptyTokens(t *testing.T) {
	tests := []struct {
		params string
		want   []string
	}{
		{params: "", want: nil},
		{params: " , ,", want: nil},
		{params: "a,,b,", want: []string{"a", "b"}},
		{params: " x ", want: []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.params, func(t *testing.T) {
			got, err := ResolveTargets(tt.params, testTemplate)
			require.NoError(t, err)

			var params []string
			for _, target := range got {
				params = append(params, target.Param)
			}
			assert.Equal(t, tt.want, params)
		})
	}
}

func TestResolveTargets_KeepsDuplicates(t *testing.T) {
	got, err := ResolveTargets("a,a", testTemplate)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResolveTargets_TemplatedPort(t *testing.T) {
	tmpl := testTemplate
	tmpl.Port = "33{param}"

	got, err := ResolveTargets("06,07", tmpl)
	require.NoError(t, err)
	assert.Equal(t, 3306, got[0].Config.Port)
	assert.Equal(t, 3307, got[1].Config.Port)
}

func TestResolveTargets_InvalidPort(t *testing.T) {
	tmpl := testTemplate
	tmpl.Port = "{param}"

	_, err := ResolveTargets("1,abc", tmpl)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "port", cfgErr.Field)
	assert.Contains(t, err.Error(), `"abc"`)
}
