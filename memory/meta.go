package memory

import (
	"encoding/json"
	"strconv"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

type (
	// Metadata is an open string-keyed map of caller data attached to a
	// record. Values are a closed union of string, number and string list
	// so filter evaluation stays type-safe.
	Metadata map[string]MetaValue

	MetaKind uint8

	MetaValue struct {
		kind MetaKind
		str  string
		num  float64
		strs []string
	}
)

const (
	MetaKindString MetaKind = iota
	MetaKindNumber
	MetaKindStrings
)

func MetaStr(s string) MetaValue {
	return MetaValue{kind: MetaKindString, str: s}
}

func MetaNum(n float64) MetaValue {
	return MetaValue{kind: MetaKindNumber, num: n}
}

func MetaStrs(ss ...string) MetaValue {
	return MetaValue{kind: MetaKindStrings, strs: ss}
}

func (v MetaValue) Kind() MetaKind { return v.kind }

func (v MetaValue) AsString() (string, bool) {
	return v.str, v.kind == MetaKindString
}

func (v MetaValue) AsNumber() (float64, bool) {
	return v.num, v.kind == MetaKindNumber
}

func (v MetaValue) AsStrings() ([]string, bool) {
	return v.strs, v.kind == MetaKindStrings
}

// Equal compares kind and value. String lists compare element-wise in order.
func (v MetaValue) Equal(o MetaValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case MetaKindString:
		return v.str == o.str
	case MetaKindNumber:
		return v.num == o.num
	case MetaKindStrings:
		if len(v.strs) != len(o.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
		return true
	}
	return false
}

// indexValue flattens the value to the string form pushed into vector
// index metadata.
func (v MetaValue) indexValue() string {
	switch v.kind {
	case MetaKindString:
		return v.str
	case MetaKindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case MetaKindStrings:
		b, _ := json.Marshal(v.strs)
		return string(b)
	}
	return ""
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetaKindString:
		return json.Marshal(v.str)
	case MetaKindNumber:
		return json.Marshal(v.num)
	case MetaKindStrings:
		if v.strs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.strs)
	}
	return []byte("null"), nil
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	switch t := raw.(type) {
	case string:
		*v = MetaStr(t)
	case float64:
		*v = MetaNum(t)
	case []any:
		strs := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return errors.Errorf("metadata list values must be strings, got %T", e)
			}
			strs = append(strs, s)
		}
		*v = MetaStrs(strs...)
	case nil:
		*v = MetaStr("")
	default:
		return errors.Errorf("unsupported metadata value type %T", t)
	}
	return nil
}
