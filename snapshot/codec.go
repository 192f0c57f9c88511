package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes snapshots for a persistence backend.
type Codec interface {
	// Name identifies the codec, used in logs and store metadata.
	Name() string
	Encode(*Snapshot) ([]byte, error)
	Decode([]byte) (*Snapshot, error)
}

// JSONCodec encodes snapshots as JSON. Human-inspectable; the default
// for the file store so operators can read the snapshot with standard
// tools.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(s *Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode json: %w", err)
	}
	return b, nil
}

func (JSONCodec) Decode(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode json: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// MsgpackCodec encodes snapshots as MessagePack. Denser and faster than
// JSON; the default for the redis and postgres stores.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(s *Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode msgpack: %w", err)
	}
	return b, nil
}

func (MsgpackCodec) Decode(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode msgpack: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
