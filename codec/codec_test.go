package codec

import (
	"math"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/unkn0wn-root/shardcount/store"
)

func TestShardCodecsPreserveSignedCounts(t *testing.T) {
	shards := []store.Shard{
		{},
		{Name: "hits", Index: 1, Count: -7},
		{Name: "ünïcode", Index: 50, Count: math.MaxInt64},
		{Name: "min", Index: 3, Count: math.MinInt64},
	}
	for _, name := range []string{"json", "cbor", "msgpack", "proto"} {
		c, err := ForShards(name)
		if err != nil {
			t.Fatalf("ForShards(%q): %v", name, err)
		}
		for _, in := range shards {
			b, err := c.Encode(in)
			if err != nil {
				t.Fatalf("%s encode %+v: %v", name, in, err)
			}
			out, err := c.Decode(b)
			if err != nil {
				t.Fatalf("%s decode %+v: %v", name, in, err)
			}
			if out != in {
				t.Fatalf("%s: got %+v want %+v", name, out, in)
			}
		}
	}
}

func TestForShardsUnknown(t *testing.T) {
	if _, err := ForShards("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[store.Shard]{Inner: JSON[store.Shard]{}, MaxDecode: 16}
	big := `{"name":"` + strings.Repeat("x", 64) + `"}`
	if _, err := c.Decode([]byte(big)); err == nil {
		t.Fatalf("expected oversized payload to be rejected")
	}
}

func TestProtoSkipsUnknownFields(t *testing.T) {
	b, _ := Proto{}.Encode(store.Shard{Name: "hits", Index: 2, Count: 5})
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	got, err := Proto{}.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != (store.Shard{Name: "hits", Index: 2, Count: 5}) {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestProtoRejectsTruncated(t *testing.T) {
	b, _ := Proto{}.Encode(store.Shard{Name: "hits", Index: 2, Count: 5})
	if _, err := (Proto{}).Decode(b[:3]); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	c := MustCBOR[store.Shard]()
	a, _ := c.Encode(store.Shard{Name: "hits", Index: 1, Count: 2})
	b, _ := c.Encode(store.Shard{Name: "hits", Index: 1, Count: 2})
	if string(a) != string(b) {
		t.Fatalf("equal shards encoded differently")
	}
}
