package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	cbor "github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encoder writes records to a binary stream.
type Encoder interface {
	Encode(rec Record) error
}

// Decoder reads records back; it returns io.EOF at the end of the stream.
type Decoder interface {
	Decode() (Record, error)
}

// NewEncoder returns the encoder for format ("cbor" or "proto").
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "", "cbor":
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, err
		}
		return cborEncoder{enc: em.NewEncoder(w)}, nil
	case "proto":
		return protoEncoder{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}

// NewDecoder returns the decoder for format ("cbor" or "proto").
func NewDecoder(format string, r io.Reader) (Decoder, error) {
	switch format {
	case "", "cbor":
		return cborDecoder{dec: cbor.NewDecoder(r)}, nil
	case "proto":
		return protoDecoder{r: bufio.NewReader(r)}, nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}

// ReadAll decodes every record in r.
func ReadAll(format string, r io.Reader) ([]Record, error) {
	dec, err := NewDecoder(format, r)
	if err != nil {
		return nil, err
	}
	var out []Record
	for {
		rec, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

type cborEncoder struct{ enc *cbor.Encoder }

func (e cborEncoder) Encode(rec Record) error { return e.enc.Encode(rec) }

type cborDecoder struct{ dec *cbor.Decoder }

func (d cborDecoder) Decode() (Record, error) {
	var rec Record
	err := d.dec.Decode(&rec)
	return rec, err
}

// protoEncoder writes each record as a length-delimited google.protobuf.Struct.
// Struct numbers are doubles, so Time keeps only microsecond-ish precision.
type protoEncoder struct{ w io.Writer }

func (e protoEncoder) Encode(rec Record) error {
	s, err := structpb.NewStruct(map[string]any{
		"boot":       rec.Boot,
		"seq":        rec.Seq,
		"time":       rec.Time,
		"tick":       uint32(rec.Tick),
		"kind":       rec.Kind,
		"pid":        uint32(rec.PID),
		"class":      rec.Class,
		"from":       rec.From,
		"to":         rec.To,
		"run_length": uint32(rec.RunLength),
		"fault":      rec.Fault,
	})
	if err != nil {
		return err
	}
	_, err = protodelim.MarshalTo(e.w, s)
	return err
}

type protoDecoder struct{ r *bufio.Reader }

func (d protoDecoder) Decode() (Record, error) {
	var s structpb.Struct
	if err := protodelim.UnmarshalFrom(d.r, &s); err != nil {
		return Record{}, err
	}
	f := s.GetFields()
	num := func(k string) float64 { return f[k].GetNumberValue() }
	str := func(k string) string { return f[k].GetStringValue() }
	return Record{
		Boot:      str("boot"),
		Seq:       uint64(num("seq")),
		Time:      int64(num("time")),
		Tick:      uint16(num("tick")),
		Kind:      str("kind"),
		PID:       uint16(num("pid")),
		Class:     str("class"),
		From:      str("from"),
		To:        str("to"),
		RunLength: uint16(num("run_length")),
		Fault:     str("fault"),
	}, nil
}
