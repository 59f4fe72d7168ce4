package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// flexString accepts strings, numbers, booleans and string lists; upstream
// payloads are not consistent about scalar types.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var list flexList
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = flexString(strings.Join(list, ","))
	default:
		*f = flexString(data)
	}
	return nil
}

var errObjectAsList = errors.New("object where a list was expected")

// flexList accepts either a JSON array or a single scalar. An object is an error.
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '{' {
		return errObjectAsList
	}

	if data[0] != '[' {
		var s flexString
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = nil
			return nil
		}
		*f = flexList{string(s)}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(flexList, 0, len(raw))
	for _, item := range raw {
		var s flexString
		if err := json.Unmarshal(item, &s); err != nil {
			return err
		}
		if s != "" {
			out = append(out, string(s))
		}
	}
	*f = out
	return nil
}

// flexBool treats true, "Y", "yes", "1" and "true" as set.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(string(s)) {
	case "y", "yes":
		*f = true
	default:
		b, err := strconv.ParseBool(string(s))
		*f = flexBool(err == nil && b)
	}
	return nil
}
