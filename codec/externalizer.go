// Package codec implements the fixed byte-tagged binary encoding used to
// move PointValue contents and the rich value types across the wire and
// into the store, grounded on the teacher's custom envelope-control
// MarshalJSON/UnmarshalJSON style generalized to a binary tag set.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/evalgo/rvpf/value"
)

// Tag is the single byte identifying the type of the value that follows.
type Tag byte

const (
	TagBigDecimal Tag = 'D'
	TagBigInteger Tag = 'I'
	TagBigRational Tag = 'R'
	TagBoolean    Tag = 'z'
	TagByte       Tag = 'b'
	TagByteArray  Tag = 'a'
	TagChar       Tag = 'c'
	TagComplex    Tag = 'x'
	TagDict       Tag = 'm'
	TagDouble     Tag = 'd'
	TagFloat      Tag = 'f'
	TagInt32      Tag = 'i'
	TagInt64      Tag = 'j'
	TagNull       Tag = '0'
	TagOpaque     Tag = 'o'
	TagRational   Tag = 'r'
	TagInt16      Tag = 's'
	TagState      Tag = 'q'
	TagString     Tag = 't'
	TagTuple      Tag = 'n'
)

// maxChunk is the largest single chunk length. The chunk-length field is a
// 16-bit unsigned int whose zero value is reserved as the terminator; chunks
// are capped at 65534 bytes, so a 65534-byte array is written as one chunk
// and a 65535-byte array as two.
const maxChunk = 65534

// Externalize writes v's tagged binary encoding to w. Unknown concrete types
// are a programming error, reported as an error rather than silently
// dropped or coerced — the core never generates the opaque tag itself; see
// Internalize for the read side of that asymmetry.
func Externalize(w io.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		return writeTag(w, TagNull)
	case bool:
		if err := writeTag(w, TagBoolean); err != nil {
			return err
		}
		return writeBool(w, x)
	case byte:
		if err := writeTag(w, TagByte); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case []byte:
		if err := writeTag(w, TagByteArray); err != nil {
			return err
		}
		return writeChunked(w, x)
	// rune is an alias of int32, so a rune is written under TagInt32;
	// TagChar is only ever read (see Internalize).
	case int16:
		if err := writeTag(w, TagInt16); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case int32:
		if err := writeTag(w, TagInt32); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case int64:
		if err := writeTag(w, TagInt64); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case int:
		return Externalize(w, int64(x))
	case float32:
		if err := writeTag(w, TagFloat); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case float64:
		if err := writeTag(w, TagDouble); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x)
	case string:
		if err := writeTag(w, TagString); err != nil {
			return err
		}
		return writeChunked(w, []byte(x))
	case *big.Int:
		if err := writeTag(w, TagBigInteger); err != nil {
			return err
		}
		return writeChunked(w, x.Bytes())
	case *big.Float:
		if err := writeTag(w, TagBigDecimal); err != nil {
			return err
		}
		return writeChunked(w, []byte(x.Text('g', -1)))
	case value.Rational:
		if err := writeTag(w, TagRational); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, x.Num()); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, x.Den())
	case value.BigRational:
		if err := writeTag(w, TagBigRational); err != nil {
			return err
		}
		if err := writeChunked(w, x.Num().Bytes()); err != nil {
			return err
		}
		neg := x.Num().Sign() < 0
		if err := writeBool(w, neg); err != nil {
			return err
		}
		return writeChunked(w, x.Den().Bytes())
	case value.Complex:
		if err := writeTag(w, TagComplex); err != nil {
			return err
		}
		a := x.ToCartesian()
		if err := binary.Write(w, binary.BigEndian, a.Real()); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, a.Imag())
	case value.State:
		if err := writeTag(w, TagState); err != nil {
			return err
		}
		code, hasCode := x.Code()
		if err := writeBool(w, hasCode); err != nil {
			return err
		}
		if hasCode {
			if err := binary.Write(w, binary.BigEndian, int32(code)); err != nil {
				return err
			}
		}
		return writeChunked(w, []byte(x.Name()))
	case *value.Tuple:
		if err := writeTag(w, TagTuple); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(x.Len())); err != nil {
			return err
		}
		for i := 0; i < x.Len(); i++ {
			if err := Externalize(w, x.At(i)); err != nil {
				return err
			}
		}
		return nil
	case *value.Dict:
		if err := writeTag(w, TagDict); err != nil {
			return err
		}
		keys := x.Keys()
		if err := binary.Write(w, binary.BigEndian, int32(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := writeChunked(w, []byte(k)); err != nil {
				return err
			}
			val, _ := x.Get(k)
			if err := Externalize(w, val); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("codec: cannot externalize value of type %T", v)
	}
}

// ExternalizeBytes is a convenience wrapper returning the encoded bytes.
func ExternalizeBytes(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Externalize(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Internalize reads one tagged value from r. The opaque tag is accepted
// here even though Externalize never produces it: a value that arrived
// carrying an externally-generated 'o' tag must round-trip without loss,
// per the opaque-payload decision.
func Internalize(r io.Reader) (any, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagNull:
		return nil, nil
	case TagBoolean:
		return readBool(r)
	case TagByte:
		var b byte
		err := binary.Read(r, binary.BigEndian, &b)
		return b, err
	case TagByteArray:
		return readChunked(r)
	case TagChar:
		var v int32
		err := binary.Read(r, binary.BigEndian, &v)
		return rune(v), err
	case TagInt16:
		var v int16
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case TagInt32:
		var v int32
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case TagInt64:
		var v int64
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case TagFloat:
		var v float32
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case TagDouble:
		var v float64
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case TagString:
		b, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case TagBigInteger:
		b, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(b), nil
	case TagBigDecimal:
		b, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		f, _, err := big.ParseFloat(string(b), 10, 53, big.ToNearestEven)
		return f, err
	case TagRational:
		var num, den int64
		if err := binary.Read(r, binary.BigEndian, &num); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &den); err != nil {
			return nil, err
		}
		return value.ValueOf(num, den)
	case TagBigRational:
		numBytes, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		neg, err := readBool(r)
		if err != nil {
			return nil, err
		}
		denBytes, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		num := new(big.Int).SetBytes(numBytes)
		if neg {
			num.Neg(num)
		}
		den := new(big.Int).SetBytes(denBytes)
		return value.BigValueOf(num, den)
	case TagComplex:
		var re, im float64
		if err := binary.Read(r, binary.BigEndian, &re); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &im); err != nil {
			return nil, err
		}
		return value.NewCartesian(re, im), nil
	case TagState:
		hasCode, err := readBool(r)
		if err != nil {
			return nil, err
		}
		var code int32
		if hasCode {
			if err := binary.Read(r, binary.BigEndian, &code); err != nil {
				return nil, err
			}
		}
		nameBytes, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		name := string(nameBytes)
		switch {
		case hasCode && name != "":
			return value.NewStateCodeName(int(code), name), nil
		case hasCode:
			return value.NewStateCode(int(code)), nil
		default:
			return value.NewStateName(name), nil
		}
	case TagTuple:
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		t := value.NewTuple()
		for i := int32(0); i < n; i++ {
			item, err := Internalize(r)
			if err != nil {
				return nil, err
			}
			t.Append(item)
		}
		return t, nil
	case TagDict:
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		d := value.NewDict()
		for i := int32(0); i < n; i++ {
			keyBytes, err := readChunked(r)
			if err != nil {
				return nil, err
			}
			val, err := Internalize(r)
			if err != nil {
				return nil, err
			}
			d.Set(string(keyBytes), val)
		}
		return d, nil
	case TagOpaque:
		return readChunked(r)
	default:
		return nil, fmt.Errorf("codec: unknown type tag %q", byte(tag))
	}
}

// InternalizeBytes is a convenience wrapper over Internalize.
func InternalizeBytes(b []byte) (any, error) {
	return Internalize(bytes.NewReader(b))
}

func writeTag(w io.Writer, t Tag) error {
	_, err := w.Write([]byte{byte(t)})
	return err
}

func readTag(r io.Reader) (Tag, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return Tag(b[0]), nil
}

func writeBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// writeChunked emits data as a series of length-prefixed chunks (16-bit
// unsigned length) terminated by a zero-length chunk, applying uniformly
// to byte arrays and to strings' UTF-8 bytes per the chunking decision.
func writeChunked(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		if err := binary.Write(w, binary.BigEndian, uint16(n)); err != nil {
			return err
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return binary.Write(w, binary.BigEndian, uint16(0))
}

func readChunked(r io.Reader) ([]byte, error) {
	var out []byte
	for {
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			if out == nil {
				out = []byte{}
			}
			return out, nil
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}
