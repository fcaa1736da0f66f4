package codec

import (
	"fmt"

	"github.com/unkn0wn-root/shardcount/store"
)

// maxShardPayload bounds decoded shard records.
const maxShardPayload = 4 << 10

// ForShards returns the shard codec registered under name
// ("json", "cbor", "msgpack", "proto"), wrapped in a size Limit.
func ForShards(name string) (Codec[store.Shard], error) {
	var inner Codec[store.Shard]
	switch name {
	case "", "json":
		inner = JSON[store.Shard]{}
	case "cbor":
		c, err := NewCBOR[store.Shard]()
		if err != nil {
			return nil, err
		}
		inner = c
	case "msgpack":
		inner = Msgpack[store.Shard]{}
	case "proto":
		inner = Proto{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	return Limit[store.Shard]{Inner: inner, MaxDecode: maxShardPayload}, nil
}
