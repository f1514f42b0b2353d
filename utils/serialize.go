package utils

import (
	"encoding/json"
	"io"
)

func Serialize(o any) ([]byte, error) {
	return json.Marshal(o)
}

func Unserialize(b []byte, o any) error {
	return json.Unmarshal(b, o)
}

func UnserializeReader(r io.Reader, o any) error {
	return json.NewDecoder(r).Decode(o)
}
