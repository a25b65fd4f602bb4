package model

import "time"

// Data source types
const (
	TypeShardingMySQL          = "sharding_mysql"
	TypeShardingMySQLAggregate = "sharding_mysql_aggregate"
)

// ParamPlaceholder is replaced by the shard parameter inside connection template fields
const ParamPlaceholder = "{param}"

// SSLConfig holds optional TLS material for shard connections
type SSLConfig struct {
	Enabled bool   `json:"use_ssl" mapstructure:"use_ssl"`
	CACert  string `json:"ssl_cacert,omitempty" mapstructure:"ssl_cacert"` // path to CA bundle
	Cert    string `json:"ssl_cert,omitempty" mapstructure:"ssl_cert"`     // path to client certificate
	Key     string `json:"ssl_key,omitempty" mapstructure:"ssl_key"`       // path to client key
}

// ConnectionTemplate is a connection config whose fields may contain ParamPlaceholder
type ConnectionTemplate struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"-" mapstructure:"passwd"`
	Database string `json:"db" mapstructure:"db"`
}

// ConnectionConfig is a fully substituted connection config for one shard
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Database string `json:"db"`
}

// ShardTarget is one concrete shard to run a query against
type ShardTarget struct {
	Param  string           `json:"param"`
	Config ConnectionConfig `json:"config"`
}

// DataSource describes a group of shards sharing one schema
type DataSource struct {
	Name             string             `json:"name" mapstructure:"name"`
	Type             string             `json:"type" mapstructure:"type"`     // sharding_mysql, sharding_mysql_aggregate
	Params           string             `json:"params" mapstructure:"params"` // e.g. "shard1, shard2, shard3"
	ShowParams       bool               `json:"show_params" mapstructure:"show_params"`
	AggregateColumns int                `json:"aggregate_columns,omitempty" mapstructure:"aggregate_columns"`
	Template         ConnectionTemplate `json:"template" mapstructure:",squash"`
	SSL              SSLConfig          `json:"ssl" mapstructure:",squash"`
	ConnectTimeout   time.Duration      `json:"connect_timeout" mapstructure:"connect_timeout"`
	Concurrency      int                `json:"concurrency" mapstructure:"concurrency"` // shards queried at once, 1 = sequential
	Retry            RetryConfig        `json:"retry" mapstructure:"retry"`
}

// Aggregates reports whether the source collapses rows by its leading key columns
func (ds DataSource) Aggregates() bool {
	return ds.Type == TypeShardingMySQLAggregate
}

// Export defines where a run's final result is written
type Export struct {
	File string `json:"file"` // e.g. result.csv or result.json
}

// QueryJobSpec is the body of POST /api/v1/queries
type QueryJobSpec struct {
	DataSource string  `json:"data_source"`
	Query      string  `json:"query"`
	Timeout    string  `json:"timeout,omitempty"` // e.g. "5m"
	Export     *Export `json:"export,omitempty"`
}

// QueryResult is what a run hands back: the data plus the combined error text, if any
type QueryResult struct {
	Data  *ResultSet `json:"data"`
	Error string     `json:"error,omitempty"`
}

// Run statuses
const (
	StatusPending     = "pending"
	StatusResolving   = "resolving"
	StatusExecuting   = "executing"
	StatusAggregating = "aggregating"
	StatusCompleted   = "completed"
	StatusPartial     = "partial"
	StatusFailed      = "failed"
	StatusCancelled   = "cancelled"
)

// QueryRun is the persisted record of one query execution
type QueryRun struct {
	ID         string    `json:"id" db:"id"`
	DataSource string    `json:"data_source" db:"data_source"`
	Query      string    `json:"query" db:"query"`
	Status     string    `json:"status" db:"status"`
	Error      string    `json:"error,omitempty" db:"error"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
