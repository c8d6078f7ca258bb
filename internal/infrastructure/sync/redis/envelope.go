package redis

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// Message kinds on the wire.
const (
	kindEntity = "entity"
	kindLink   = "link"
	kindDelta  = "delta"
)

// Envelope is the JSON payload published on the sync channel.
type Envelope struct {
	Peer    string                    `json:"peer"`
	Kind    string                    `json:"kind"`
	Op      string                    `json:"op,omitempty"`
	Entity  *entities.Entity          `json:"entity,omitempty"`
	Link    *entities.Link            `json:"link,omitempty"`
	Project string                    `json:"project,omitempty"`
	Delta   *entities.DifferenceGraph `json:"delta,omitempty"`
}

// Encode wraps a sync message for peer.
func Encode(peer string, msg entities.SyncMessage) ([]byte, error) {
	env := Envelope{Peer: peer}
	switch m := msg.(type) {
	case entities.EntityChange:
		env.Kind, env.Op, env.Entity = kindEntity, m.Op.String(), m.Entity
	case entities.LinkChange:
		env.Kind, env.Op, env.Link = kindLink, m.Op.String(), m.Link
	case entities.DifferenceGraphMessage:
		env.Kind, env.Project, env.Delta = kindDelta, m.Project, m.Delta
	default:
		return nil, fmt.Errorf("unsupported sync message %T", msg)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return data, nil
}

// Decode unwraps a payload and returns the sending peer with the message.
func Decode(data []byte) (string, entities.SyncMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}

	switch env.Kind {
	case kindEntity:
		if env.Entity == nil {
			return env.Peer, nil, errors.New("entity message without entity")
		}
		return env.Peer, entities.EntityChange{Entity: env.Entity, Op: entities.ParseSyncOp(env.Op)}, nil
	case kindLink:
		if env.Link == nil {
			return env.Peer, nil, errors.New("link message without link")
		}
		return env.Peer, entities.LinkChange{Link: env.Link, Op: entities.ParseSyncOp(env.Op)}, nil
	case kindDelta:
		delta := env.Delta
		if delta == nil {
			delta = &entities.DifferenceGraph{}
		}
		return env.Peer, entities.DifferenceGraphMessage{Project: env.Project, Delta: delta}, nil
	}
	return env.Peer, nil, fmt.Errorf("unknown message kind %q", env.Kind)
}
