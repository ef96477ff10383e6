package codec

import (
	"encoding/binary"

	"tickpipe/internal/schema"
)

const (
	OrderAckPayloadSize = 80
	clientIDSize        = 20
)

// EncodeOrderAck serializes an acknowledged or rejected order into a
// fixed-size payload. The strategy name is not carried.
func EncodeOrderAck(dst []byte, o schema.Order) []byte {
	if cap(dst) < OrderAckPayloadSize {
		dst = make([]byte, OrderAckPayloadSize)
	} else {
		dst = dst[:OrderAckPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], o.ID)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(o.SymbolID))
	binary.LittleEndian.PutUint16(dst[12:14], uint16(o.Side))
	binary.LittleEndian.PutUint16(dst[14:16], uint16(o.Status))
	binary.LittleEndian.PutUint16(dst[16:18], uint16(o.Reason))
	binary.LittleEndian.PutUint16(dst[18:20], 0)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(o.Qty))
	binary.LittleEndian.PutUint64(dst[28:36], uint64(o.Price))
	binary.LittleEndian.PutUint64(dst[36:44], uint64(o.TsSignal))
	binary.LittleEndian.PutUint64(dst[44:52], uint64(o.TsSubmit))
	binary.LittleEndian.PutUint64(dst[52:60], uint64(o.TsAck))
	clear(dst[60:80])
	copy(dst[60:80], o.ClientID)

	return dst
}

// DecodeOrderAck parses a fixed-size order acknowledgment payload.
func DecodeOrderAck(src []byte) (schema.Order, bool) {
	if len(src) < OrderAckPayloadSize {
		return schema.Order{}, false
	}
	cid := src[60:80]
	n := 0
	for n < clientIDSize && cid[n] != 0 {
		n++
	}
	return schema.Order{
		ID:       binary.LittleEndian.Uint64(src[0:8]),
		SymbolID: schema.SymbolID(binary.LittleEndian.Uint32(src[8:12])),
		Side:     schema.OrderSide(binary.LittleEndian.Uint16(src[12:14])),
		Status:   schema.OrderStatus(binary.LittleEndian.Uint16(src[14:16])),
		Reason:   schema.RejectReason(binary.LittleEndian.Uint16(src[16:18])),
		Qty:      schema.Quantity(int64(binary.LittleEndian.Uint64(src[20:28]))),
		Price:    schema.Price(int64(binary.LittleEndian.Uint64(src[28:36]))),
		TsSignal: int64(binary.LittleEndian.Uint64(src[36:44])),
		TsSubmit: int64(binary.LittleEndian.Uint64(src[44:52])),
		TsAck:    int64(binary.LittleEndian.Uint64(src[52:60])),
		ClientID: string(cid[:n]),
	}, true
}
