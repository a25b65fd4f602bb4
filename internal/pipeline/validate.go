package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"go-shard-query/internal/model"
)

// ValidateDataSource checks a data source before any shard is attempted.
// Every problem found is reported in one *ConfigurationError.
func ValidateDataSource(ds model.DataSource) error {
	var errs error

	if ds.Name == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}
	if ds.Template.Database == "" {
		errs = multierr.Append(errs, errors.New("db is required"))
	}

	switch ds.Type {
	case model.TypeShardingMySQL:
	case model.TypeShardingMySQLAggregate:
		if ds.AggregateColumns < 1 {
			errs = multierr.Append(errs, fmt.Errorf("aggregate_columns must be at least 1, got %d", ds.AggregateColumns))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown type %q", ds.Type))
	}

	if ds.Concurrency < 0 {
		errs = multierr.Append(errs, fmt.Errorf("concurrency must not be negative, got %d", ds.Concurrency))
	}
	if ds.Retry.MaxAttempts < 0 {
		errs = multierr.Append(errs, fmt.Errorf("retry.max_attempts must not be negative, got %d", ds.Retry.MaxAttempts))
	}
	if ds.SSL.Enabled && (ds.SSL.Cert == "") != (ds.SSL.Key == "") {
		errs = multierr.Append(errs, errors.New("ssl_cert and ssl_key must be set together"))
	}

	if errs != nil {
		return &ConfigurationError{Field: "data source " + ds.Name, Err: errs}
	}
	return nil
}
