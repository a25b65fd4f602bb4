package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"go-shard-query/internal/model"
)

// ------------------- Target Resolution -------------------

// ResolveTargets expands a comma-delimited parameter list against a connection
// template, one target per trimmed non-empty token, in input order.
func ResolveTargets(params string, tmpl model.ConnectionTemplate) ([]model.ShardTarget, error) {
	var targets []model.ShardTarget
	for _, token := range strings.Split(params, ",") {
		param := strings.TrimSpace(token)
		if param == "" {
			continue
		}

		target, err := resolveTarget(param, tmpl)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func resolveTarget(param string, tmpl model.ConnectionTemplate) (model.ShardTarget, error) {
	sub := func(s string) string {
		return strings.ReplaceAll(s, model.ParamPlaceholder, param)
	}

	portStr := sub(tmpl.Port)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return model.ShardTarget{}, &ConfigurationError{
			Field: "port",
			Err:   fmt.Errorf("%q is not an integer for shard %q", portStr, param),
		}
	}

	return model.ShardTarget{
		Param: param,
		Config: model.ConnectionConfig{
			Host:     sub(tmpl.Host),
			Port:     port,
			User:     sub(tmpl.User),
			Password: sub(tmpl.Password),
			Database: sub(tmpl.Database),
		},
	}, nil
}
