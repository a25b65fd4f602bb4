package model

// ColumnType is the logical type of a result column
type ColumnType string

const (
	TypeFloat    ColumnType = "float"
	TypeInteger  ColumnType = "integer"
	TypeString   ColumnType = "string"
	TypeDatetime ColumnType = "datetime"
	TypeDate     ColumnType = "date"
	TypeUnknown  ColumnType = "unknown"
)

// driverTypes maps MySQL protocol field type codes to logical column types.
var driverTypes = map[int]ColumnType{
	0:   TypeFloat,
	1:   TypeInteger,
	2:   TypeInteger,
	3:   TypeInteger,
	4:   TypeFloat,
	5:   TypeFloat,
	7:   TypeDatetime,
	8:   TypeInteger,
	9:   TypeInteger,
	10:  TypeDate,
	12:  TypeDatetime,
	15:  TypeString,
	16:  TypeInteger,
	246: TypeFloat,
	253: TypeString,
	254: TypeString,
}

// TypeForCode resolves a driver type code, unmapped codes resolve to TypeUnknown
func TypeForCode(code int) ColumnType {
	if t, ok := driverTypes[code]; ok {
		return t
	}
	return TypeUnknown
}

// DatabaseColumn is the synthetic column carrying the shard parameter
const DatabaseColumn = "database"

// Column describes one result column
type Column struct {
	Name         string     `json:"name"`
	FriendlyName string     `json:"friendly_name"`
	Type         ColumnType `json:"type"`
}

// Row maps column names to scalar values (numbers, strings, times or nil)
type Row map[string]interface{}

// ResultSet is a logical table; column order defines row shape
type ResultSet struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns the column names in order
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// Values returns row values in the result set's column order
func (rs *ResultSet) Values(row Row) []interface{} {
	values := make([]interface{}, len(rs.Columns))
	for i, c := range rs.Columns {
		values[i] = row[c.Name]
	}
	return values
}
