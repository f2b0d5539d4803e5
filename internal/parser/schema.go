package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tobsdb/mousedb/internal/props"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

type LineParserState int

const (
	ParserStateTableStart LineParserState = iota
	ParserStateTableEnd
	ParserStateNewField
	ParserStateIdle
)

type ParserData struct {
	Name         string
	TimeSeries   bool
	Builtin_type types.FieldType
	Properties   map[props.FieldProp]string
}

const (
	table_prefix      = "$TABLE "
	timeseries_prefix = "$TIMESERIES "
)

var (
	table_name_regexp = regexp.MustCompile(`^\w+$`)
	field_prop_regexp = regexp.MustCompile(`(?m)(\w+)\(([^)]+)\)`)
)

// LineParser parses one trimmed, non-empty line of a schema:
//
//	$TABLE users {
//	    user_id Int key(primary)
//	    email String index(hash)
//	}
//
// $TIMESERIES opens a time-series table instead of a plain one.
func LineParser(line string) (LineParserState, *ParserData, error) {
	time_series := strings.HasPrefix(line, timeseries_prefix)
	if strings.HasPrefix(line, table_prefix) || time_series {
		if time_series {
			line = line[len(timeseries_prefix):]
		} else {
			line = line[len(table_prefix):]
		}
		name_end := strings.Index(line, " ")

		if name_end > 0 {
			open_bracket := strings.TrimSpace(line[name_end:])
			if open_bracket != "{" {
				return ParserStateIdle, nil, errors.New("Table name cannot include space")
			}
			name := line[:name_end]
			if !table_name_regexp.MatchString(name) {
				return ParserStateIdle, nil, errors.New("Table name contains invalid characters")
			}
			return ParserStateTableStart, &ParserData{Name: name, TimeSeries: time_series}, nil
		}
	} else if line == "}" {
		return ParserStateTableEnd, nil, nil
	} else {
		splits := strings.Split(line, " ")
		splits = pkg.Filter(splits, func(s string) bool { return len(s) > 0 })
		if len(splits) < 2 {
			return ParserStateIdle, nil, errors.New("Invalid line")
		}
		builtin_type := types.FieldType(splits[1])
		if !builtin_type.IsValid() {
			return ParserStateIdle, nil, fmt.Errorf("Invalid field type: %s", builtin_type)
		}

		field_props, err := parseRawFieldProps(strings.Join(splits[2:], " "))
		if err != nil {
			return ParserStateIdle, nil, err
		}

		return ParserStateNewField, &ParserData{
			Name:         splits[0],
			Builtin_type: builtin_type,
			Properties:   field_props,
		}, nil
	}
	return ParserStateIdle, nil, errors.New("Invalid line")
}

func parseRawFieldProps(raw string) (map[props.FieldProp]string, error) {
	field_props := make(map[props.FieldProp]string)

	for _, match := range field_prop_regexp.FindAllStringSubmatch(raw, -1) {
		prop, value := props.FieldProp(match[1]), strings.TrimSpace(match[2])
		if !prop.IsValid() {
			return nil, fmt.Errorf("Invalid field prop: %s", prop)
		}
		if err := props.ValidatePropValue(prop, value); err != nil {
			return nil, err
		}
		field_props[prop] = value
	}

	return field_props, nil
}
