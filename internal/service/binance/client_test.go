package binance

import (
	"context"
	"testing"
	"time"
)

func TestStreamPath(t *testing.T) {
	c := &Client{symbols: []string{"BTCUSDT", "ethusdt"}}
	got := c.streamPath()
	want := "/stream?streams=btcusdt@trade/ethusdt@trade"
	if got != want {
		t.Fatalf("streamPath = %q, want %q", got, want)
	}
}

func TestParseTradeFrame(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"43210.55","q":"0.002","T":1700000000123}}`)
	tick, ok := parseTradeFrame(raw)
	if !ok {
		t.Fatal("frame should parse")
	}
	if tick.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q", tick.Symbol)
	}
	if tick.Price != 43210.55 {
		t.Fatalf("price = %v", tick.Price)
	}
	if tick.Volume != 0.002 {
		t.Fatalf("volume = %v", tick.Volume)
	}
	if tick.Timestamp != 1700000000123 {
		t.Fatalf("timestamp = %v", tick.Timestamp)
	}
}

func TestParseTradeFrameRejectsNonTrade(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@depth","data":{"e":"depthUpdate","s":"BTCUSDT"}}`)
	if _, ok := parseTradeFrame(raw); ok {
		t.Fatal("non-trade frame should be skipped")
	}
}

func TestParseTradeFrameRejectsBadNumbers(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"not-a-price","q":"1","T":1}}`)
	if _, ok := parseTradeFrame(raw); ok {
		t.Fatal("unparseable price should be skipped")
	}
}

func TestSubscribeRequiresConnection(t *testing.T) {
	c := New("wss://example.invalid", []string{"BTCUSDT"}, time.Second, time.Second)
	if err := c.Subscribe(context.Background()); err == nil {
		t.Fatal("subscribe before connect should fail")
	}
}
