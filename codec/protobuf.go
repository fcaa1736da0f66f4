package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/unkn0wn-root/shardcount/store"
)

// Proto encodes store.Shard in protobuf wire format, equivalent to
//
//	message Shard {
//	  string name  = 1;
//	  int64  index = 2;
//	  sint64 count = 3;
//	}
//
// Unknown fields are skipped on decode. The zero value is ready to use.
type Proto struct{}

var _ Codec[store.Shard] = Proto{}

const (
	fieldName  protowire.Number = 1
	fieldIndex protowire.Number = 2
	fieldCount protowire.Number = 3
)

func (Proto) Encode(s store.Shard) ([]byte, error) {
	b := make([]byte, 0, 16+len(s.Name))
	if s.Name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, s.Name)
	}
	if s.Index != 0 {
		b = protowire.AppendTag(b, fieldIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(s.Index)))
	}
	if s.Count != 0 {
		b = protowire.AppendTag(b, fieldCount, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(s.Count))
	}
	return b, nil
}

func (Proto) Decode(b []byte) (store.Shard, error) {
	var s store.Shard
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return store.Shard{}, fmt.Errorf("proto shard: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldName && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return store.Shard{}, fmt.Errorf("proto shard name: %w", protowire.ParseError(m))
			}
			s.Name, n = v, m
		case num == fieldIndex && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return store.Shard{}, fmt.Errorf("proto shard index: %w", protowire.ParseError(m))
			}
			s.Index, n = int(int64(v)), m
		case num == fieldCount && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return store.Shard{}, fmt.Errorf("proto shard count: %w", protowire.ParseError(m))
			}
			s.Count, n = protowire.DecodeZigZag(v), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return store.Shard{}, fmt.Errorf("proto shard field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return s, nil
}
