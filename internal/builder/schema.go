package builder

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/tobsdb/mousedb/internal/parser"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

type TDBTables = pkg.Map[string, *Table]

// Schema is the set of tables known to a database.
type Schema struct {
	locker sync.RWMutex
	Tables TDBTables
}

func NewSchema() *Schema { return &Schema{Tables: TDBTables{}} }

func (s *Schema) GetLocker() *sync.RWMutex { return &s.locker }

func (s *Schema) AddTable(t *Table) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.Tables.Has(t.Name) {
		return types.NewConflictError(fmt.Sprintf("table %s already exists", t.Name))
	}
	s.Tables.Set(t.Name, t)
	return nil
}

// Table fails with ErrTableNotFound for unknown names.
func (s *Schema) Table(name string) (*Table, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()
	t, ok := s.Tables.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	return t, nil
}

func (s *Schema) TableNames() []string {
	s.locker.RLock()
	defer s.locker.RUnlock()
	return s.Tables.Keys()
}

func ParseLineError(line_idx int, err string) error {
	return types.NewSchemaError(fmt.Sprintf("Error parsing line %d: %s", line_idx, err))
}

// NewSchemaFromString parses the $TABLE/$TIMESERIES schema language.
func NewSchemaFromString(schema_data string) (*Schema, error) {
	schema := NewSchema()

	scanner := bufio.NewScanner(strings.NewReader(schema_data))
	line_idx := 0

	var (
		current_name   string
		current_ts     bool
		current_fields []*Field
		in_table       bool
	)

	for scanner.Scan() {
		line_idx++
		line := strings.TrimSpace(scanner.Text())

		// Ignore empty lines & comments
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}

		state, data, err := parser.LineParser(line)
		if err != nil {
			return nil, ParseLineError(line_idx, err.Error())
		}

		switch state {
		case parser.ParserStateTableStart:
			if in_table {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Table %s is missing a closing bracket", current_name))
			}
			if schema.Tables.Has(data.Name) {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Duplicate table %s", data.Name))
			}
			current_name, current_ts, current_fields, in_table = data.Name, data.TimeSeries, nil, true
		case parser.ParserStateTableEnd:
			if !in_table {
				return nil, ParseLineError(line_idx, "Unexpected closing bracket")
			}
			table, err := NewTable(current_name, current_ts, current_fields...)
			if err != nil {
				return nil, ParseLineError(line_idx, err.Error())
			}
			schema.Tables.Set(table.Name, table)
			in_table = false
		case parser.ParserStateNewField:
			if !in_table {
				return nil, ParseLineError(line_idx, "Field declared outside of a table")
			}
			current_fields = append(current_fields, NewField(data.Name, data.Builtin_type, data.Properties))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if in_table {
		return nil, ParseLineError(line_idx, fmt.Sprintf("Table %s is missing a closing bracket", current_name))
	}

	return schema, nil
}
