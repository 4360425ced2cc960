package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds a single encoded command.
const MaxFrameSize = 1024 * 1024

var (
	ErrUnknownKind   = errors.New("UNKNOWN_KIND: Unknown command kind")
	ErrFrameTooLarge = errors.New("FRAME_TOO_LARGE: Command exceeds maximum frame size")
	ErrMalformed     = errors.New("MALFORMED: Command could not be decoded")
)

// Codec turns commands into framed bytes and back. Both directions use the
// same envelope and framing.
type Codec struct {
	name      string
	marshal   func(Command) ([]byte, error)
	unmarshal func([]byte) (Command, error)
	framing   framing
}

var (
	JSON    = &Codec{name: "json", marshal: marshalJSON, unmarshal: unmarshalJSON, framing: lineFraming{}}
	MsgPack = &Codec{name: "msgpack", marshal: marshalMsgPack, unmarshal: unmarshalMsgPack, framing: lengthFraming{}}
)

func CodecByName(name string) (*Codec, error) {
	switch name {
	case "", JSON.name:
		return JSON, nil
	case MsgPack.name:
		return MsgPack, nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want json or msgpack)", name)
	}
}

func (c *Codec) Name() string {
	return c.name
}

// Encode returns the command ready to be written to a connection.
func (c *Codec) Encode(cmd Command) ([]byte, error) {
	if _, err := NewPayload(cmd.Kind); err != nil {
		return nil, err
	}
	body, err := c.marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("Marshal error: %w", err)
	}
	if len(body) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	return c.framing.frame(body), nil
}

func (c *Codec) NewDecoder() *Decoder {
	return &Decoder{codec: c}
}

// Decoder accumulates bytes from a stream and hands back whole commands.
// A command split across reads stays buffered until the rest arrives.
type Decoder struct {
	codec *Codec
	buf   []byte
}

func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete command. ok is false when more bytes are
// needed. Any error leaves the stream unusable.
func (d *Decoder) Next() (cmd Command, ok bool, err error) {
	for {
		body, consumed, err := d.codec.framing.split(d.buf)
		if err != nil {
			return Command{}, false, err
		}
		if consumed == 0 {
			return Command{}, false, nil
		}
		d.buf = d.buf[consumed:]
		if len(d.buf) == 0 {
			d.buf = nil
		}

		// Blank keep-alive lines carry nothing.
		if len(body) == 0 {
			continue
		}

		cmd, err = d.codec.unmarshal(body)
		if err != nil {
			return Command{}, false, err
		}
		return cmd, true, nil
	}
}

// ============================================================================
// FRAMING
// ============================================================================

type framing interface {
	frame(body []byte) []byte
	// split returns the first frame body in buf and how many bytes it used,
	// or consumed == 0 if buf does not hold a whole frame yet.
	split(buf []byte) (body []byte, consumed int, err error)
}

// lineFraming is one command per line.
type lineFraming struct{}

func (lineFraming) frame(body []byte) []byte {
	return append(body, '\n')
}

func (lineFraming) split(buf []byte) ([]byte, int, error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		if len(buf) > MaxFrameSize {
			return nil, 0, ErrFrameTooLarge
		}
		return nil, 0, nil
	}
	if i > MaxFrameSize {
		return nil, 0, ErrFrameTooLarge
	}
	return bytes.TrimRight(buf[:i], "\r"), i + 1, nil
}

// lengthFraming prefixes every body with its length as a big-endian uint32.
type lengthFraming struct{}

func (lengthFraming) frame(body []byte) []byte {
	framed := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(framed, uint32(len(body)))
	return append(framed, body...)
}

func (lengthFraming) split(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	size := binary.BigEndian.Uint32(buf)
	if size > MaxFrameSize {
		return nil, 0, ErrFrameTooLarge
	}
	end := 4 + int(size)
	if len(buf) < end {
		return nil, 0, nil
	}
	return buf[4:end], end, nil
}

// ============================================================================
// ENVELOPES
// ============================================================================

type jsonEnvelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func marshalJSON(cmd Command) ([]byte, error) {
	env := jsonEnvelope{Kind: cmd.Kind}
	if cmd.Payload != nil {
		payload, err := json.Marshal(cmd.Payload)
		if err != nil {
			return nil, err
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}

func unmarshalJSON(data []byte) (Command, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	payload, err := NewPayload(env.Kind)
	if err != nil {
		return Command{}, err
	}
	if len(env.Payload) > 0 && !bytes.Equal(env.Payload, []byte("null")) {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return Command{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Kind, err)
		}
	}
	return Command{Kind: env.Kind, Payload: payload}, nil
}

type msgpackEnvelope struct {
	Kind    Kind               `msgpack:"kind"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

func marshalMsgPack(cmd Command) ([]byte, error) {
	env := msgpackEnvelope{Kind: cmd.Kind}
	if cmd.Payload != nil {
		payload, err := msgpack.Marshal(cmd.Payload)
		if err != nil {
			return nil, err
		}
		env.Payload = payload
	}
	return msgpack.Marshal(&env)
}

func unmarshalMsgPack(data []byte) (Command, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	payload, err := NewPayload(env.Kind)
	if err != nil {
		return Command{}, err
	}
	if len(env.Payload) > 0 {
		if err := msgpack.Unmarshal(env.Payload, payload); err != nil {
			return Command{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Kind, err)
		}
	}
	return Command{Kind: env.Kind, Payload: payload}, nil
}
