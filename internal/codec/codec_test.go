package codec

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"tickpipe/internal/schema"
)

func randomTick(rng *rand.Rand) schema.MarketTick {
	return schema.MarketTick{
		SymbolID: schema.SymbolID(rng.Uint32()),
		Seq:      rng.Uint64(),
		Bid:      schema.Price(rng.Int63() - math.MaxInt64/2),
		Ask:      schema.Price(rng.Int63()),
		Last:     schema.Price(-rng.Int63()),
		Size:     schema.Quantity(rng.Int63()),
		TsEvent:  rng.Int63(),
	}
}

func TestTickRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	buf := make([]byte, 0, TickPayloadSize)
	for i := 0; i < 1000; i++ {
		in := randomTick(rng)
		out, ok := DecodeTick(EncodeTick(buf, in))
		if !ok {
			t.Fatalf("decode failed at %d", i)
		}
		if out != in {
			t.Fatalf("round trip mismatch: %+v != %+v", out, in)
		}
	}
}

func TestTickEncodeDeterministic(t *testing.T) {
	tick := schema.MarketTick{SymbolID: 1, Seq: 9, Bid: 4499900, Ask: 4500100, Last: 4500000, Size: 12000, TsEvent: 1700000000000000000}
	a := EncodeTick(nil, tick)
	b := AppendTick([]byte{0xff}, tick)
	if len(a) != TickPayloadSize {
		t.Fatalf("unexpected size: %d", len(a))
	}
	if !bytes.Equal(a, b[1:]) {
		t.Fatalf("encodings differ")
	}
	if _, ok := DecodeTick(a[:TickPayloadSize-1]); ok {
		t.Fatalf("short payload decoded")
	}
}

func TestSignalRoundTrip(t *testing.T) {
	in := schema.TradingSignal{
		SymbolID: 3,
		Side:     schema.OrderSideSell,
		Qty:      10000,
		Price:    10500,
		Strategy: "mean_reversion",
		TickSeq:  42,
		TsSignal: 123456789,
	}
	enc := EncodeSignal(nil, in)
	if len(enc) != SignalFixedSize+len(in.Strategy) {
		t.Fatalf("unexpected size: %d", len(enc))
	}
	out, ok := DecodeSignal(enc)
	if !ok || out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
	if _, ok := DecodeSignal(enc[:len(enc)-1]); ok {
		t.Fatalf("truncated name decoded")
	}

	long := in
	long.Strategy = string(bytes.Repeat([]byte{'x'}, 40))
	out, ok = DecodeSignal(EncodeSignal(nil, long))
	if !ok || len(out.Strategy) != schema.MaxStrategyNameLen {
		t.Fatalf("long name not truncated: %q", out.Strategy)
	}
}

func TestOrderAckRoundTrip(t *testing.T) {
	in := schema.Order{
		ID:       77,
		ClientID: "cn6s0bhq3jbd2rks0r8g",
		SymbolID: 1,
		Side:     schema.OrderSideBuy,
		Qty:      10000,
		Price:    4300000,
		TsSignal: 10,
		TsSubmit: 11,
		TsAck:    12,
		Status:   schema.OrderStatusRejected,
		Reason:   schema.RejectReasonMaxQty,
	}
	out, ok := DecodeOrderAck(EncodeOrderAck(nil, in))
	if !ok || out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	in := schema.Heartbeat{Sender: 2, Ts: -5}
	out, ok := DecodeHeartbeat(EncodeHeartbeat(nil, in))
	if !ok || out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
