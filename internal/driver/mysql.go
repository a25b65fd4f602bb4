package driver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"go-shard-query/internal/model"
)

// DefaultConnectTimeout bounds connection establishment to one shard
const DefaultConnectTimeout = 60 * time.Second

// mysqlTypeCodes maps the type names reported by go-sql-driver/mysql back to
// MySQL protocol field type codes. VARCHAR and DECIMAL are reported for two
// codes each; both codes resolve to the same logical type.
var mysqlTypeCodes = map[string]int{
	"DECIMAL":    0,
	"TINYINT":    1,
	"SMALLINT":   2,
	"INT":        3,
	"FLOAT":      4,
	"DOUBLE":     5,
	"NULL":       6,
	"TIMESTAMP":  7,
	"BIGINT":     8,
	"MEDIUMINT":  9,
	"DATE":       10,
	"TIME":       11,
	"DATETIME":   12,
	"YEAR":       13,
	"BIT":        16,
	"JSON":       245,
	"ENUM":       247,
	"SET":        248,
	"TINYBLOB":   249,
	"TINYTEXT":   249,
	"MEDIUMBLOB": 250,
	"MEDIUMTEXT": 250,
	"LONGBLOB":   251,
	"LONGTEXT":   251,
	"BLOB":       252,
	"TEXT":       252,
	"VARCHAR":    253,
	"VARBINARY":  253,
	"CHAR":       254,
	"BINARY":     254,
	"GEOMETRY":   255,
}

// MySQLTypeCode returns the protocol type code for a column type name, or UnknownTypeCode
func MySQLTypeCode(databaseTypeName string) int {
	name := strings.TrimPrefix(strings.ToUpper(databaseTypeName), "UNSIGNED ")
	if code, ok := mysqlTypeCodes[name]; ok {
		return code
	}
	return UnknownTypeCode
}

// NewMySQL creates a driver connecting to the shards of a MySQL data source
func NewMySQL(ds model.DataSource) (*SQLDriver, error) {
	timeout := ds.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	tlsName := ""
	if ds.SSL.Enabled {
		tlsConfig, err := buildTLSConfig(ds.SSL)
		if err != nil {
			return nil, fmt.Errorf("data source %s: %w", ds.Name, err)
		}
		tlsName = "shardquery-" + ds.Name
		if err := mysql.RegisterTLSConfig(tlsName, tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to register TLS config: %w", err)
		}
	}

	open := func(ctx context.Context, target model.ShardTarget) (*sql.DB, error) {
		connector, err := mysql.NewConnector(mysqlConfig(target, timeout, tlsName))
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	}
	return NewSQLDriver(open, MySQLTypeCode), nil
}

func mysqlConfig(target model.ShardTarget, timeout time.Duration, tlsName string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = target.Config.User
	cfg.Passwd = target.Config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(target.Config.Host, strconv.Itoa(target.Config.Port))
	cfg.DBName = target.Config.Database
	cfg.Timeout = timeout
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Params = map[string]string{"charset": "utf8"}
	if tlsName != "" {
		cfg.TLSConfig = tlsName
	}
	return cfg
}

func buildTLSConfig(ssl model.SSLConfig) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if ssl.CACert != "" {
		pem, err := os.ReadFile(ssl.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", ssl.CACert)
		}
		cfg.RootCAs = pool
	}

	if ssl.Cert != "" || ssl.Key != "" {
		cert, err := tls.LoadX509KeyPair(ssl.Cert, ssl.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// ErrorMessage returns the text recorded for a failed shard.
// MySQL server errors contribute their message only, without the error number.
func ErrorMessage(err error) string {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}
