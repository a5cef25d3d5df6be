package repository

import "encoding/json"

// marshalJSONColumn serializes v for a JSONB column, nil when empty so the
// column stays NULL instead of storing "[]".
func marshalJSONColumn(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	if s == "null" || s == "[]" || s == "{}" {
		return nil, nil
	}
	return s, nil
}

// unmarshalJSONColumn decodes a nullable JSONB column into out.
func unmarshalJSONColumn(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
