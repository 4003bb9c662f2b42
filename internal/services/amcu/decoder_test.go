package amcu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packetSink struct {
	packets []Fields
}

func (s *packetSink) collect(f Fields) {
	s.packets = append(s.packets, f)
}

func TestDecoderEmitsPacketOnEnd(t *testing.T) {
	sink := &packetSink{}
	d := NewDecoder(sink.collect)

	d.Write([]byte("CID:1\nQTY:5\nFAT:4.2\nEND\n"))

	require.Len(t, sink.packets, 1)
	assert.Equal(t, Fields{"CID": "1", "QTY": "5", "FAT": "4.2"}, sink.packets[0])
}

func TestDecoderNoResidualBetweenPackets(t *testing.T) {
	sink := &packetSink{}
	d := NewDecoder(sink.collect)

	d.Write([]byte("CID:1\nQTY:5\nEND\nCID:2\nQTY:3\nEND\n"))

	require.Len(t, sink.packets, 2)
	assert.Equal(t, Fields{"CID": "1", "QTY": "5"}, sink.packets[0])
	assert.Equal(t, Fields{"CID": "2", "QTY": "3"}, sink.packets[1])
}

func TestDecoderCIDRestartsInProgressPacket(t *testing.T) {
	sink := &packetSink{}
	d := NewDecoder(sink.collect)

	// First farmer's pour is cut off before END; their FAT must not
	// leak into the second farmer's packet.
	d.Write([]byte("CID:1\nFAT:6.5\nCID:2\nQTY:3\nEND\n"))

	require.Len(t, sink.packets, 1)
	got := sink.packets[0]
	assert.Equal(t, "2", got["CID"])
	assert.Equal(t, "3", got["QTY"])
	assert.NotContains(t, got, "FAT")
}

func TestDecoderChunkedInputMatchesUnsplit(t *testing.T) {
	stream := []byte("CID:1\nQTY:5\nFAT:4.2\nSNF:8.6\nEND\nCID:2\nQTY:3.5\nAMT:120\nEND\n")

	whole := &packetSink{}
	NewDecoder(whole.collect).Write(stream)
	require.Len(t, whole.packets, 2)

	// Split at every byte boundary.
	for cut := 1; cut < len(stream); cut++ {
		sink := &packetSink{}
		d := NewDecoder(sink.collect)
		d.Write(stream[:cut])
		d.Write(stream[cut:])
		assert.Equal(t, whole.packets, sink.packets, "split at byte %d", cut)
	}

	// One byte at a time.
	sink := &packetSink{}
	d := NewDecoder(sink.collect)
	for i := range stream {
		d.Write(stream[i : i+1])
	}
	assert.Equal(t, whole.packets, sink.packets)
}

func TestDecoderIgnoresMalformedAndBlankLines(t *testing.T) {
	sink := &packetSink{}
	d := NewDecoder(sink.collect)

	d.Write([]byte("garbage without colon\n\n  \nCID:7\nQTY:2\n:leading colon\nEND\n"))

	require.Len(t, sink.packets, 1)
	assert.Equal(t, Fields{"CID": "7", "QTY": "2"}, sink.packets[0])
}

func TestDecoderNormalizesKeysAndTrims(t *testing.T) {
	sink := &packetSink{}
	d := NewDecoder(sink.collect)

	d.Write([]byte("  cid : 9 \nqty:4\nNOTE:a:b:c\nEND\n"))

	require.Len(t, sink.packets, 1)
	got := sink.packets[0]
	assert.Equal(t, "9", got["CID"])
	assert.Equal(t, "4", got["QTY"])
	// Only the first colon separates key from value.
	assert.Equal(t, "a:b:c", got["NOTE"])
}

func TestParsePacketRequiredFields(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)

	_, err := ParsePacket(Fields{"QTY": "5"}, now)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = ParsePacket(Fields{"CID": "1"}, now)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = ParsePacket(Fields{"CID": "1", "QTY": "abc"}, now)
	assert.ErrorIs(t, err, ErrBadField)

	_, err = ParsePacket(Fields{"CID": "1", "QTY": "0"}, now)
	assert.ErrorIs(t, err, ErrBadField)
}

func TestParsePacketDefaults(t *testing.T) {
	morning := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	evening := time.Date(2026, 3, 14, 17, 30, 0, 0, time.Local)

	p, err := ParsePacket(Fields{"CID": "1", "QTY": "5"}, morning)
	require.NoError(t, err)
	assert.Equal(t, "M", p.Shift)
	assert.Equal(t, "2026-03-14", p.Date.Format("2006-01-02"))
	assert.Equal(t, "09:30:00", p.Time)
	assert.Nil(t, p.Fat)
	assert.Nil(t, p.Amount)

	p, err = ParsePacket(Fields{"CID": "1", "QTY": "5"}, evening)
	require.NoError(t, err)
	assert.Equal(t, "E", p.Shift)
}

func TestParsePacketExplicitFields(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	p, err := ParsePacket(Fields{
		"CID":   "42",
		"QTY":   "7.5",
		"FAT":   "4.8",
		"SNF":   "8.9",
		"AMT":   "375.50",
		"SHIFT": "E",
		"MILK":  "BUFFALO",
		"DATE":  "2026-03-10",
		"TIME":  "18:05:00",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "42", p.CustomerExternalID)
	assert.Equal(t, 7.5, p.QuantityLitre)
	require.NotNil(t, p.Fat)
	assert.Equal(t, 4.8, *p.Fat)
	require.NotNil(t, p.Amount)
	assert.Equal(t, "375.50", p.Amount.StringFixed(2))
	assert.Equal(t, "E", p.Shift)
	assert.Equal(t, "BUFFALO", p.MilkType)
	assert.Equal(t, "2026-03-10", p.Date.Format("2006-01-02"))
	assert.Equal(t, "18:05:00", p.Time)
}
