package lockrec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// canonicalVersion is the first byte of every canonical encoding. Bumping it
// changes every resource lock id in existence, so treat it like a wire
// format: append, never reinterpret.
const canonicalVersion = 0x01

// Type tags of the canonical encoding.
const (
	tagNull   = 'z'
	tagBool   = 'b'
	tagString = 's'
	tagNumber = 'n'
	tagList   = 'l'
	tagMap    = 'm'
)

// normalizeResource forces a payload through one JSON round-trip so that
// only the types handled by the canonical encoder remain and numbers collapse
// to json.Number. A payload built in process therefore hashes identically to
// the same payload read back off the wire.
func normalizeResource(resource map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return out, nil
}

// encodeCanonical renders a normalized payload as deterministic bytes. Map
// keys are emitted sorted, so equal content encodes identically regardless of
// insertion order.
func encodeCanonical(resource map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(canonicalVersion)
	if err := writeValue(&buf, resource); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteByte(tagNull)
	case bool:
		buf.WriteByte(tagBool)
		if t {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case string:
		buf.WriteByte(tagString)
		writeLen(buf, len(t))
		buf.WriteString(t)
	case json.Number:
		// Numbers hash by their JSON literal, which is stable across a
		// marshal/unmarshal round-trip.
		buf.WriteByte(tagNumber)
		writeLen(buf, len(t.String()))
		buf.WriteString(t.String())
	case []any:
		buf.WriteByte(tagList)
		writeLen(buf, len(t))
		for _, e := range t {
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
	case map[string]any:
		buf.WriteByte(tagMap)
		writeLen(buf, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeLen(buf, len(k))
			buf.WriteString(k)
			if err := writeValue(buf, t[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrSerialize, v)
	}
	return nil
}

func writeLen(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}
