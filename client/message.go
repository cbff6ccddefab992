package client

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HelloMessageName is the text message a relay sends first, carrying the handle it assigned to the connection.
const HelloMessageName = "hello"

var messageExp = regexp.MustCompile(`(?P<name>[A-Za-z_][A-Za-z0-9_]*)(:(?P<args>[A-Za-z0-9-.]+(,[A-Za-z0-9-.]+)*))?;`)

// ParseTextMessage parses the given string as a relay text message.
func ParseTextMessage(s string) (Message, error) {
	matches := messageExp.FindStringSubmatch(s)
	if len(matches) == 0 {
		return Message{}, fmt.Errorf("invalid message format: %s", s)
	}

	nameIndex := messageExp.SubexpIndex("name")
	if nameIndex == -1 {
		return Message{}, fmt.Errorf("invalid message format, name not found: %s", s)
	}
	name := strings.TrimSpace(matches[nameIndex])

	argsIndex := messageExp.SubexpIndex("args")
	var args []string
	if argsIndex == -1 || matches[argsIndex] == "" {
		args = []string{}
	} else {
		args = strings.Split(matches[argsIndex], ",")
	}

	return Message{name: name, args: args}, nil
}

// NewMessage returns a new message with the given name and the given arguments.
func NewMessage(name string, args ...interface{}) Message {
	result := Message{
		name: strings.TrimSpace(name),
		args: make([]string, len(args)),
	}
	for i, arg := range args {
		result.args[i] = strings.TrimSpace(fmt.Sprintf("%v", arg))
	}
	return result
}

// NewControlMessage returns the text message of a control notification: name:from,to,param;
func NewControlMessage(name string, from, to Handle, param ElectrodeID) Message {
	return NewMessage(name, uint32(from), uint32(to), uint32(param))
}

// Message is a text frame exchanged between a relay and its peers.
type Message struct {
	name string
	args []string
}

func (m Message) String() string {
	if len(m.args) == 0 {
		return fmt.Sprintf("%s;", m.name)
	}
	return fmt.Sprintf("%s:%s;", m.name, strings.Join(m.args, ","))
}

// Name of the message
func (m Message) Name() string {
	return m.name
}

// Args of the message
func (m Message) Args() []string {
	return m.args
}

func (m Message) arg(i int) (string, error) {
	if len(m.args) < i+1 {
		return "", fmt.Errorf("invalid argument index %d: %q", i, m)
	}
	return m.args[i], nil
}

// ToUint32 returns the argument with the given index as unsigned integer.
func (m Message) ToUint32(i int) (uint32, error) {
	arg, err := m.arg(i)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(arg, 10, 32)
	return uint32(value), err
}

// WithArg returns a copy of the message with the argument at index i replaced.
func (m Message) WithArg(i int, value interface{}) Message {
	args := make([]string, len(m.args))
	copy(args, m.args)
	if i < len(args) {
		args[i] = strings.TrimSpace(fmt.Sprintf("%v", value))
	}
	return Message{name: m.name, args: args}
}

// Control returns the sender, the receiver and the parameter of a control message.
func (m Message) Control() (from Handle, to Handle, param ElectrodeID, err error) {
	values := make([]uint32, 3)
	for i := range values {
		values[i], err = m.ToUint32(i)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid control message %q: %w", m, err)
		}
	}
	return Handle(values[0]), Handle(values[1]), ElectrodeID(values[2]), nil
}

// ParseBinaryMessage parses a binary frame: header, tag name, payload.
func ParseBinaryMessage(b []byte) (BinaryMessage, error) {
	buf := bytes.NewReader(b)
	var msg encodedBinaryMessage
	err := binary.Read(buf, binary.LittleEndian, &msg)
	if err != nil {
		return BinaryMessage{}, fmt.Errorf("cannot read binary message header: %v", err)
	}
	if int(msg.TagLength) > buf.Len() {
		return BinaryMessage{}, fmt.Errorf("cannot read binary message tag: %d > %d bytes", msg.TagLength, buf.Len())
	}

	tag := make([]byte, msg.TagLength)
	_, _ = buf.Read(tag)
	data := make([]byte, buf.Len())
	_, _ = buf.Read(data)

	return BinaryMessage{
		From: Handle(msg.From),
		To:   Handle(msg.To),
		Tag:  string(tag),
		Data: data,
	}, nil
}

type encodedBinaryMessage struct {
	From      uint32
	To        uint32
	TagLength uint32
}

// BinaryMessage carries a payload-bearing notification over the relay.
type BinaryMessage struct {
	From Handle
	To   Handle
	// Tag is the registered name of the payload type.
	Tag  string
	Data []byte
}

// Bytes encodes the binary message.
func (m BinaryMessage) Bytes() []byte {
	header := encodedBinaryMessage{
		From:      uint32(m.From),
		To:        uint32(m.To),
		TagLength: uint32(len(m.Tag)),
	}
	buf := bytes.NewBuffer(make([]byte, 0, binary.Size(header)+len(m.Tag)+len(m.Data)))
	_ = binary.Write(buf, binary.LittleEndian, &header)
	buf.WriteString(m.Tag)
	buf.Write(m.Data)
	return buf.Bytes()
}

// SetFrom overwrites the sender handle of an encoded binary message in place.
func SetFrom(b []byte, from Handle) {
	if len(b) >= 4 {
		binary.LittleEndian.PutUint32(b[0:4], uint32(from))
	}
}
