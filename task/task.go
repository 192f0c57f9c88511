// Package task defines the payloads carried by queue items and the
// registry that dispatches them to typed handlers. Items store an
// Envelope as their payload: a task kind plus the kind-specific request
// encoded as JSON.
package task

import (
	"encoding/json"
	"fmt"
)

// Kind names a task type the bot can process.
type Kind string

// Download task kinds handled by the bot.
const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindImages   Kind = "images"
	KindStory    Kind = "story"
	KindPlaylist Kind = "playlist"
	KindQuality  Kind = "generic_quality"
	KindVideoCut Kind = "video_cut"
)

// Envelope is the serialized form of an item payload: the task kind and
// the kind-specific request body.
type Envelope struct {
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Encode wraps a request body into an envelope payload.
func Encode(kind Kind, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("task: encode %s body: %w", kind, err)
	}
	env := Envelope{Kind: kind, Body: raw}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("task: encode envelope: %w", err)
	}
	return payload, nil
}

// DecodeEnvelope parses an item payload back into an envelope.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("task: decode envelope: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("task: envelope missing kind")
	}
	return env, nil
}

// DownloadRequest is the common request body for download task kinds.
type DownloadRequest struct {
	URL       string `json:"url"`
	Quality   string `json:"quality,omitempty"`
	MessageID int    `json:"messageId,omitempty"`

	// StartSec and EndSec bound the clip for video_cut requests.
	StartSec float64 `json:"startSec,omitempty"`
	EndSec   float64 `json:"endSec,omitempty"`
}
