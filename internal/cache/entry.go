package cache

import (
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Entry is one cached value together with its lifetime.
// Each tier owns its own copy; the memory and durable copies are never shared.
type Entry struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	// Value is the JSON encoding of the cached payload.
	Value []byte
}

func newEntry(value []byte, now time.Time, ttl time.Duration) Entry {
	return Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is logically dead at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// encodeEnvelope renders the durable representation:
// {"value":<json>,"expiry":<epoch ms>,"timestamp":<epoch ms>}.
func encodeEnvelope(e Entry) ([]byte, error) {
	doc, err := sjson.SetRawBytes([]byte(`{}`), "value", e.Value)
	if err != nil {
		return nil, err
	}
	doc, err = sjson.SetBytes(doc, "expiry", e.ExpiresAt.UnixMilli())
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(doc, "timestamp", e.CreatedAt.UnixMilli())
}

// decodeEnvelope parses a durable envelope. Any structural problem is ErrCorruptEntry.
func decodeEnvelope(data []byte) (Entry, error) {
	if !gjson.ValidBytes(data) {
		return Entry{}, ErrCorruptEntry
	}

	doc := gjson.ParseBytes(data)
	value := doc.Get("value")
	expiry := doc.Get("expiry")
	if !value.Exists() || expiry.Type != gjson.Number {
		return Entry{}, ErrCorruptEntry
	}

	return Entry{
		Value:     []byte(value.Raw),
		CreatedAt: time.UnixMilli(doc.Get("timestamp").Int()),
		ExpiresAt: time.UnixMilli(expiry.Int()),
	}, nil
}

// envelopeExpiry reads only the expiry field, for sweeps that do not need the value.
func envelopeExpiry(data []byte) (time.Time, error) {
	if !gjson.ValidBytes(data) {
		return time.Time{}, ErrCorruptEntry
	}
	expiry := gjson.GetBytes(data, "expiry")
	if expiry.Type != gjson.Number || !gjson.GetBytes(data, "value").Exists() {
		return time.Time{}, ErrCorruptEntry
	}
	return time.UnixMilli(expiry.Int()), nil
}
