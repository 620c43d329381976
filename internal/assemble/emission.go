package assemble

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/syllogos/internal/model"
)

// EmissionType tags a value sent to the consumer
type EmissionType string

const (
	EmissionMetadata EmissionType = "metadata"
	EmissionSnapshot EmissionType = "snapshot"
)

// MetadataPayload is the first emission of every stream
type MetadataPayload struct {
	model.Metadata
	Degraded bool `json:"degraded,omitempty"`
}

// Emission is one value of the output sequence. The first is always
// metadata; every later one is the full current snapshot, never a delta.
type Emission struct {
	Type     EmissionType
	Metadata *MetadataPayload
	Snapshot *model.AnalysisResult
}

// MarshalJSON renders {"type": ..., "data": ...}
func (e Emission) MarshalJSON() ([]byte, error) {
	var data any
	switch e.Type {
	case EmissionMetadata:
		data = e.Metadata
	case EmissionSnapshot:
		data = e.Snapshot
	default:
		return nil, fmt.Errorf("unknown emission type %q", e.Type)
	}
	return json.Marshal(struct {
		Type EmissionType `json:"type"`
		Data any          `json:"data"`
	}{e.Type, data})
}

// Emitter receives emissions in order. Returning an error stops the stream.
type Emitter func(Emission) error
