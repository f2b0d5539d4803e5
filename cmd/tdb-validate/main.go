package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tobsdb/mousedb/internal/builder"
)

// usage: tdb-validate [schema.tdb...]
func main() {
	schema_paths := os.Args[1:]
	if len(schema_paths) == 0 {
		schema_paths = []string{"./schema.tdb"}
	}

	failed := 0
	for _, schema_path := range schema_paths {
		if err := validate(schema_path); err != nil {
			fmt.Printf("Invalid schema; %s\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func validate(schema_path string) error {
	schema_path, err := filepath.Abs(schema_path)
	if err != nil {
		return err
	}
	fmt.Printf("Checking %s for errors\n", schema_path)

	schema_data, err := os.ReadFile(schema_path)
	if err != nil {
		return err
	}
	schema, err := builder.NewSchemaFromString(string(schema_data))
	if err != nil {
		return err
	}

	for _, name := range schema.TableNames() {
		table, _ := schema.Table(name)
		kind := "table"
		if table.TimeSeries {
			kind = "time-series table"
		}
		fmt.Printf("  %s %s (key %s)\n", kind, name, table.PrimaryKey().Name)
		for _, field := range table.Fields.Values() {
			fmt.Printf("    %s %s\n", field.Name, field.BuiltinType)
		}

		indexes := table.DeclaredIndexes()
		columns := make([]string, 0, len(indexes))
		for column, idx_kind := range indexes {
			columns = append(columns, fmt.Sprintf("%s(%s)", column, idx_kind))
		}
		slices.Sort(columns)
		if len(columns) > 0 {
			fmt.Printf("    indexes: %s\n", strings.Join(columns, ", "))
		}
	}
	fmt.Println("Schema checks successful: Schema is valid")
	return nil
}
