package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ppiankov/forensia/internal/model"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull stores empty strings as NULL
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// idToNull stores a nil or zero id as NULL
func idToNull(id *int64) sql.NullInt64 {
	if id == nil || *id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// nullToID converts a nullable column back to an optional id
func nullToID(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	id := ni.Int64
	return &id
}

// marshalToNull marshals v to a nullable JSON string; empty slices become NULL
func marshalToNull(v []string) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalJSONField unmarshals a nullable JSON column into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// formatTime renders analytic timestamps
func formatTime(t time.Time) string {
	return model.FormatTimestamp(t)
}

// parseTime reads analytic timestamps written by formatTime
func parseTime(s string) time.Time {
	t, _ := model.ParseTimestamp(s)
	return t
}
