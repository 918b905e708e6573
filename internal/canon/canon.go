// Package canon implements the resonance canonical encoding, version 1.
//
// Every signature in the system hashes bytes produced here, so the output is
// fixed byte-for-byte:
//
//   - strings are JSON strings (RFC 8259 escaping, non-ASCII kept as UTF-8)
//   - floats are the shortest decimal that round-trips to the same float64
//     (strconv 'g' form, -0 written as 0); NaN and ±Inf are rejected
//   - integers are plain decimal, booleans are true/false
//   - instants are RFC 3339 with nanoseconds in UTC, encoded as strings
//   - objects are {"key":value,...} and arrays [v,...], with no whitespace
//
// Objects are encoded in one of two modes. Sorted orders keys
// lexicographically at every depth. Declared keeps the order the fields
// were added in. The signature hashes scheme + "\n" + encoding.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Version is the encoding contract version
const Version = "v1"

// Mode selects how object keys are ordered
type Mode int

const (
	Sorted   Mode = iota // keys sorted at every depth
	Declared             // keys in insertion order
)

// Field is one key/value pair of an Object
type Field struct {
	Key   string
	Value interface{}
}

// Object is an ordered set of fields
type Object []Field

// Set appends a field and returns the object
func (o Object) Set(key string, value interface{}) Object {
	return append(o, Field{Key: key, Value: value})
}

// Marshal encodes v. Supported values: nil, string, bool, int, int64,
// float64, time.Time, Object, []interface{}, []float64, []string, []Object.
func Marshal(v interface{}, mode Mode) ([]byte, error) {
	var b strings.Builder
	if err := encode(&b, v, mode); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Sign returns the hex SHA-256 of scheme + "\n" + Marshal(v, mode)
func Sign(scheme string, v interface{}, mode Mode) (string, error) {
	data, err := Marshal(v, mode)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s: %w", scheme, err)
	}
	return Digest(scheme, data), nil
}

// Digest hashes already-encoded bytes under a scheme
func Digest(scheme string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(scheme))
	h.Write([]byte{'\n'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FormatFloat renders f the way Marshal does
func FormatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite float %v", f)
	}
	if f == 0 {
		// -0 encodes as unsigned zero
		return "0", nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// FormatTime renders t the way Marshal does
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encode(b *strings.Builder, v interface{}, mode Mode) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		writeString(b, x)
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		s, err := FormatFloat(x)
		if err != nil {
			return err
		}
		b.WriteString(s)
	case time.Time:
		writeString(b, FormatTime(x))
	case Object:
		return encodeObject(b, x, mode)
	case []interface{}:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encode(b, e, mode); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case []float64:
		b.WriteByte('[')
		for i, f := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			s, err := FormatFloat(f)
			if err != nil {
				return err
			}
			b.WriteString(s)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, s := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, s)
		}
		b.WriteByte(']')
	case []Object:
		b.WriteByte('[')
		for i, o := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeObject(b, o, mode); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	return nil
}

func encodeObject(b *strings.Builder, o Object, mode Mode) error {
	fields := o
	if mode == Sorted {
		fields = make(Object, len(o))
		copy(fields, o)
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	}
	for i := 1; i < len(fields); i++ {
		if mode == Sorted && fields[i].Key == fields[i-1].Key {
			return fmt.Errorf("duplicate key %q", fields[i].Key)
		}
	}

	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, f.Key)
		b.WriteByte(':')
		if err := encode(b, f.Value, mode); err != nil {
			return fmt.Errorf("%s: %w", f.Key, err)
		}
	}
	b.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes a JSON string with minimal escaping
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"':
				b.WriteString(`\"`)
			case c == '\\':
				b.WriteString(`\\`)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			case c < 0x20:
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			default:
				b.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString("\ufffd")
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}
