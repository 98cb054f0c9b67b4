package world

import (
	"encoding/binary"
	"fmt"
)

// 服务端 → 客户端 消息类型
const (
	MsgSetClientID    uint8 = 0
	MsgUpdateData     uint8 = 1
	MsgLoadLevel      uint8 = 4
	MsgTeleportClient uint8 = 5
)

// 客户端 → 服务端 消息类型
const (
	MsgMove  uint8 = 1
	MsgClick uint8 = 2
	MsgDraw  uint8 = 3
)

// Writer 小端定长字段编码器
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) U8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

// Coord 坐标按 u16 写出，负值钳制为 0
func (w *Writer) Coord(v int) {
	if v < 0 {
		v = 0
	}
	w.U16(uint16(v))
}

// CString 以 0 结尾的字符串
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Bytes 返回已编码的数据
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

// truncate 回退到之前的长度，丢弃写了一半的记录
func (w *Writer) truncate(n int) { w.buf = w.buf[:n] }

// putU16At 回填先前预留的计数
func (w *Writer) putU16At(at int, v uint16) { binary.LittleEndian.PutUint16(w.buf[at:], v) }

// Reader 带边界检查的小端解码器，任何越界读取都会记录 ErrMalformedMessage
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d of %d: %w", n, r.off, len(r.buf), ErrMalformedMessage)
		return false
	}
	return true
}

func (r *Reader) U8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Err 返回第一次越界读取的错误
func (r *Reader) Err() error { return r.err }

// ClientMessage 解码后的客户端消息
type ClientMessage struct {
	Type uint8
	Pos  Point  // MOVE / CLICK 目标点；DRAW 起点
	End  Point  // DRAW 终点
	Sync uint32 // MOVE / CLICK 客户端同步计数
}

// DecodeClientMessage 解码入站二进制帧；长度不足或类型未知返回 ErrMalformedMessage
func DecodeClientMessage(b []byte) (ClientMessage, error) {
	var m ClientMessage
	if len(b) < 2 {
		return m, fmt.Errorf("frame of %d bytes: %w", len(b), ErrMalformedMessage)
	}
	r := NewReader(b)
	m.Type = r.U8()
	switch m.Type {
	case MsgMove, MsgClick:
		m.Pos = Point{X: int(r.U16()), Y: int(r.U16())}
		m.Sync = r.U32()
	case MsgDraw:
		m.Pos = Point{X: int(r.U16()), Y: int(r.U16())}
		m.End = Point{X: int(r.U16()), Y: int(r.U16())}
	default:
		return m, fmt.Errorf("unknown message type %d: %w", m.Type, ErrMalformedMessage)
	}
	if err := r.Err(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeSetClientID SET_CLIENT_ID 帧
func EncodeSetClientID(id uint32) []byte {
	w := NewWriter(5)
	w.U8(MsgSetClientID)
	w.U32(id)
	return w.Bytes()
}

// EncodeTeleportClient TELEPORT_CLIENT（重同步）帧
func EncodeTeleportClient(p Point, sync uint32) []byte {
	w := NewWriter(9)
	w.U8(MsgTeleportClient)
	w.Coord(p.X)
	w.Coord(p.Y)
	w.U32(sync)
	return w.Bytes()
}

// EncodeMove 客户端 MOVE 帧（测试与机器人客户端使用）
func EncodeMove(p Point, sync uint32) []byte {
	return encodeIntent(MsgMove, p, sync)
}

// EncodeClick 客户端 CLICK 帧
func EncodeClick(p Point, sync uint32) []byte {
	return encodeIntent(MsgClick, p, sync)
}

func encodeIntent(tag uint8, p Point, sync uint32) []byte {
	w := NewWriter(9)
	w.U8(tag)
	w.Coord(p.X)
	w.Coord(p.Y)
	w.U32(sync)
	return w.Bytes()
}

// EncodeDraw 客户端 DRAW 帧
func EncodeDraw(a, b Point) []byte {
	w := NewWriter(9)
	w.U8(MsgDraw)
	w.Coord(a.X)
	w.Coord(a.Y)
	w.Coord(b.X)
	w.Coord(b.Y)
	return w.Bytes()
}
