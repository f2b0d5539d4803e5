package types

import "github.com/tobsdb/mousedb/pkg"

// Maps row field name to its saved data
type Row = pkg.Map[string, any]
