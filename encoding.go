package tabcodec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/tabcodec/binio"
)

// Encoding selects how Store serializes definitions and patches.
type Encoding byte

const (
	MsgPack Encoding = iota
	JSON

	defaultValueEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Encoding(%d)", byte(enc))
	}
}

// encodeValue appends the encoding of v to w. Map keys are sorted so equal values encode
// to equal bytes.
func (enc Encoding) encodeValue(w *binio.Writer, v any) error {
	switch enc {
	case MsgPack:
		e := msgpack.GetEncoder()
		e.ResetDict(w, nil)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		return nil
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		w.WriteRaw(raw)
		return nil
	default:
		return fmt.Errorf("unsupported encoding %v", enc)
	}
}

func (enc Encoding) decodeValue(buf []byte, ptr any) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		d := msgpack.GetDecoder()
		d.ResetDict(&r, nil)
		err := d.Decode(ptr)
		msgpack.PutDecoder(d)
		if err != nil {
			return binio.Errorf(buf, 0, err, "failed to decode msgpack into %T", ptr)
		}
		return nil
	case JSON:
		if err := json.Unmarshal(buf, ptr); err != nil {
			return binio.Errorf(buf, 0, err, "failed to decode JSON into %T", ptr)
		}
		return nil
	default:
		return fmt.Errorf("unsupported encoding %v", enc)
	}
}
