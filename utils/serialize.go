package utils

import (
	"encoding/json"

	"github.com/juju/errors"
)

// Serialize encodes a run report value for the store.
func Serialize(o any) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b, nil
}

// Unserialize decodes a stored run report value.
func Unserialize(b []byte, o any) error {
	return errors.Trace(json.Unmarshal(b, o))
}
