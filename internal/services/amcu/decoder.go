package amcu

import (
	"bytes"
	"strings"
)

// Fields is the raw key/value map assembled for one pour.
type Fields map[string]string

// Decoder assembles line-oriented AMCU traffic into packets. One
// decoder per physical connection: it owns its partial-line buffer and
// the in-progress field map, so chunked reads can split lines anywhere.
//
// Protocol: each data line is KEY:VALUE (first colon splits, key is
// upper-cased), a bare END line finalizes the packet. A CID arriving
// while a packet is open restarts it, so a truncated pour can never
// leak fields into the next farmer's packet.
type Decoder struct {
	buf      []byte
	fields   Fields
	onPacket func(Fields)
}

func NewDecoder(onPacket func(Fields)) *Decoder {
	return &Decoder{
		fields:   make(Fields),
		onPacket: onPacket,
	}
}

// Write consumes an arbitrary chunk of the stream. Partial trailing
// lines are buffered until their terminator arrives. Implements
// io.Writer so the transport can just copy into the decoder.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)

	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		d.processLine(line)
	}
}

func (d *Decoder) processLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if line == "END" {
		packet := d.fields
		d.fields = make(Fields)
		if d.onPacket != nil {
			d.onPacket(packet)
		}
		return
	}

	colon := strings.Index(line, ":")
	if colon <= 0 {
		// Malformed line, not fatal to the stream.
		return
	}

	key := strings.ToUpper(strings.TrimSpace(line[:colon]))
	value := strings.TrimSpace(line[colon+1:])

	// CID marks the start of a new farmer's data: drop anything left
	// over from an unterminated packet.
	if key == "CID" {
		d.fields = make(Fields)
	}

	d.fields[key] = value
}
