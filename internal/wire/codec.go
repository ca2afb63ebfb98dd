package wire

import (
	"encoding/json"
	"fmt"
)

// envelope is the shape every client frame is parsed into before its
// type-specific payload is decoded.
type envelope struct {
	Type string `json:"type"`
}

// ErrUnknownCommand is returned by DecodeClientCommand for a tag it does
// not recognize. Per spec.md §6, unknown tags are forward-compatible:
// callers should discard the frame rather than treat this as fatal.
var ErrUnknownCommand = fmt.Errorf("wire: unknown command type")

// DecodeClientCommand decodes a single text frame sent by a client. A
// malformed envelope or an unrecognized type both return an error; the
// caller (PlayerLink) discards the frame in either case.
func DecodeClientCommand(data []byte) (ClientCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: malformed envelope: %w", err)
	}

	switch env.Type {
	case TypeStart:
		return StartCommand{}, nil
	case TypeNext:
		return NextCommand{}, nil
	case TypeBufferComplete:
		var cmd BufferCompleteCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("wire: malformed %s: %w", TypeBufferComplete, err)
		}
		return cmd, nil
	case TypeGuess:
		var cmd GuessCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("wire: malformed %s: %w", TypeGuess, err)
		}
		return cmd, nil
	default:
		return nil, ErrUnknownCommand
	}
}

// EncodeServerCommand encodes a server command into the text frame sent
// to a client. The envelope's "type" field is injected from the
// command's own ServerCommandType so callers never have to keep it in
// sync by hand.
func EncodeServerCommand(cmd ServerCommand) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", cmd.ServerCommandType(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("wire: flatten %s: %w", cmd.ServerCommandType(), err)
	}

	typeTag, _ := json.Marshal(cmd.ServerCommandType())
	fields["type"] = typeTag

	return json.Marshal(fields)
}
