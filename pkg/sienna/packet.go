// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"encoding/binary"
	"fmt"
)

// Packet represents a decoded Sienna protocol packet, the structured message
// carried inside a frame payload.
//
// Wire layout: TYPE(1) CMD_ID(1) SEQ(1) STATUS(1) LENGTH_LE(2) PAYLOAD.
type Packet struct {
	Type    PacketType
	CmdID   uint8
	Seq     uint8
	Status  Status // meaningful for responses only
	Payload []byte
}

// NewCommand creates a command packet.
func NewCommand(cmdID, seq uint8, payload []byte) *Packet {
	return &Packet{Type: TypeCommand, CmdID: cmdID, Seq: seq, Payload: payload}
}

// NewResponse creates a response packet echoing the command's ID and
// sequence number.
func NewResponse(cmdID, seq uint8, status Status, payload []byte) *Packet {
	return &Packet{Type: TypeResponse, CmdID: cmdID, Seq: seq, Status: status, Payload: payload}
}

// NewNotification creates an unsolicited notification packet.
func NewNotification(cmdID, seq uint8, payload []byte) *Packet {
	return &Packet{Type: TypeNotification, CmdID: cmdID, Seq: seq, Status: StatusOK, Payload: payload}
}

// Marshal serializes the packet header and payload for framing.
func (p *Packet) Marshal() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(p.Payload), MaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = byte(p.Type)
	buf[1] = p.CmdID
	buf[2] = p.Seq
	buf[3] = byte(p.Status)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)

	return buf, nil
}

// ParsePacket decodes a protocol packet from a frame payload.
//
// The declared payload length must not exceed the bytes actually present;
// extra trailing bytes beyond the declared length are ignored.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes (header is %d)", len(data), HeaderSize)
	}

	length := int(binary.LittleEndian.Uint16(data[4:6]))
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("declared payload length %d exceeds max %d", length, MaxPayloadSize)
	}
	if length > len(data)-HeaderSize {
		return nil, fmt.Errorf("declared payload length %d exceeds available %d bytes", length, len(data)-HeaderSize)
	}

	payload := make([]byte, length)
	copy(payload, data[HeaderSize:HeaderSize+length])

	return &Packet{
		Type:    PacketType(data[0]),
		CmdID:   data[1],
		Seq:     data[2],
		Status:  Status(data[3]),
		Payload: payload,
	}, nil
}
