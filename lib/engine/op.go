package engine

import (
	"strings"

	"github.com/ValentinKolb/jsonq/lib/db"
)

// Op is a request operation.
type Op int

const (
	OpProvision Op = iota + 1
	OpSave
	OpFetch
	OpDelete
	OpList
)

var opNames = map[Op]string{
	OpProvision: db.OpProvision,
	OpSave:      db.OpSave,
	OpFetch:     db.OpFetch,
	OpDelete:    db.OpDelete,
	OpList:      db.OpList,
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOp converts an operation name (case-insensitive) to an Op. An unknown
// name yields a *ValidationError "No operation <value>".
func ParseOp(value string) (Op, error) {
	lower := strings.ToLower(value)
	for op, name := range opNames {
		if name == lower {
			return op, nil
		}
	}
	return 0, invalid("No operation " + value)
}
