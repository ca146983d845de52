// Package canonical provides deterministic JSON canonicalization and
// sha256 fingerprinting, per spec §6.4.
//
// Every input_hash (model input), content_hash (artifact), and tool-argument
// fingerprint in the system is computed from this package so that two
// semantically equal JSON values always hash the same, regardless of key
// order or serializer whitespace choices.
//
// Canonical form:
//   - object keys sorted lexicographically by Unicode codepoint
//   - no insignificant whitespace
//   - numbers in minimal decimal form (delegated to encoding/json)
//   - arrays retain order
//   - standard JSON string escaping
//   - non-finite numbers and arbitrary-precision integers are rejected
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
)

// Canonicalize converts a JSON-compatible value to canonical JSON bytes.
func Canonicalize(v any) ([]byte, error) {
	return canonicalizeValue(v)
}

// Hash computes "sha256:"+hex(sha256(canonical JSON bytes of v)).
func Hash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// HashBytes computes "sha256:"+hex(sha256(b)) directly, for artifact
// content hashing where the bytes are already the canonical/authoritative
// representation (the blob itself, not a JSON value).
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func canonicalizeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil

	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil

	case string:
		return json.Marshal(val)

	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("canonical: non-finite number is not representable")
		}
		return json.Marshal(val)

	case float32:
		return canonicalizeValue(float64(val))

	case int:
		return json.Marshal(val)

	case int32:
		return json.Marshal(val)

	case int64:
		return json.Marshal(val)

	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("canonical: invalid number %q: %w", val.String(), err)
		}
		return canonicalizeValue(f)

	case *big.Int:
		return nil, fmt.Errorf("canonical: arbitrary-precision integers are rejected")

	case []any:
		return canonicalizeArray(val)

	case map[string]any:
		return canonicalizeObject(val)

	default:
		return nil, fmt.Errorf("canonical: unsupported type %T", v)
	}
}

func canonicalizeArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := canonicalizeValue(elem)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func canonicalizeObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := canonicalizeValue(obj[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
