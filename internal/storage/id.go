package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a report. Browser clients and the sheet use millisecond
// timestamps, imports may carry arbitrary strings, so the value is kept as
// text and written back as a JSON number whenever it is a plain integer.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil && isCanonicalInt(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("storage.ID: expected number or string, got %s", data)
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*id = ID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

func isCanonicalInt(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
