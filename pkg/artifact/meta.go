package artifact

import (
	"encoding/json"
	"time"
)

type recordMeta struct {
	Ref
	CreatedAt time.Time `json:"created_at"`
}

func marshalMeta(m recordMeta) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func unmarshalMeta(data []byte) (recordMeta, error) {
	var m recordMeta
	err := json.Unmarshal(data, &m)
	return m, err
}
