package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && !errors.Is(cErr, sql.ErrTxDone) {
		*err = cErr
	}
}

// toConfigData converts a configuration to its stored representation. Strings
// and byte slices are stored as is, anything else is marshaled to JSON.
func toConfigData(config any) (sql.NullString, error) {
	var data sql.NullString

	switch c := config.(type) {
	case nil:
		return data, nil

	case string:
		data.String = c

	case []byte:
		data.String = string(c)

	default:
		p, err := json.Marshal(config)
		if err != nil {
			return data, fmt.Errorf("marshaling config: %w", err)
		}
		data.String = string(p)
	}

	data.Valid = true
	return data, nil
}

// valuesClause builds "(?, ?), (?, ?)" for rows of n placeholders
func valuesClause(rows, n int) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"

	var sb strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholder)
	}
	return sb.String()
}

func toNullString(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
