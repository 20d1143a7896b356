package queue

import (
	"encoding/binary"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// Encode serializes records into the §4.H persistence format: a sequence of
// records, each
//
//	id(8) priority(1) enqueuedAtMs(8) attempts(4) destLen(2) dest(destLen) payloadLen(4) payload(payloadLen)
//
// with the variable-length fields length-prefixed, in little-endian framing.
func Encode(records []types.QueuedMessage) []byte {
	buf := make([]byte, 0, 64*len(records))
	for _, m := range records {
		dest := []byte(m.Destination)

		var hdr [23]byte
		binary.LittleEndian.PutUint64(hdr[0:8], m.Id)
		hdr[8] = byte(m.Priority)
		binary.LittleEndian.PutUint64(hdr[9:17], m.EnqueuedAtMs)
		binary.LittleEndian.PutUint32(hdr[17:21], m.Attempts)
		binary.LittleEndian.PutUint16(hdr[21:23], uint16(len(dest)))

		buf = append(buf, hdr[:]...)
		buf = append(buf, dest...)

		var payloadLen [4]byte
		binary.LittleEndian.PutUint32(payloadLen[:], uint32(len(m.Payload)))
		buf = append(buf, payloadLen[:]...)
		buf = append(buf, m.Payload...)
	}
	return buf
}

// Decode parses a blob written by Encode. A truncated or otherwise corrupt
// trailing record is discarded rather than surfaced as an error: the
// well-formed prefix is still returned.
func Decode(blob []byte) ([]types.QueuedMessage, error) {
	var out []types.QueuedMessage
	pos := 0
	for {
		if pos+23 > len(blob) {
			break
		}
		id := binary.LittleEndian.Uint64(blob[pos : pos+8])
		priority := types.Priority(blob[pos+8])
		enqueuedAtMs := binary.LittleEndian.Uint64(blob[pos+9 : pos+17])
		attempts := binary.LittleEndian.Uint32(blob[pos+17 : pos+21])
		destLen := int(binary.LittleEndian.Uint16(blob[pos+21 : pos+23]))
		pos += 23

		if pos+destLen+4 > len(blob) {
			break
		}
		dest := string(blob[pos : pos+destLen])
		pos += destLen

		payloadLen := int(binary.LittleEndian.Uint32(blob[pos : pos+4]))
		pos += 4
		if payloadLen < 0 || pos+payloadLen > len(blob) {
			break
		}
		payload := append([]byte(nil), blob[pos:pos+payloadLen]...)
		pos += payloadLen

		out = append(out, types.QueuedMessage{
			Id:           id,
			Priority:     priority,
			EnqueuedAtMs: enqueuedAtMs,
			Attempts:     attempts,
			Destination:  dest,
			Payload:      payload,
		})
	}
	return out, nil
}
