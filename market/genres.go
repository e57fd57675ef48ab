package market

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NormalizeGenres splits each value on commas, trims the parts and drops the
// empty ones. Order is kept and repeats are not removed, so both
// NormalizeGenres("Fiction, Drama") and NormalizeGenres("Fiction", "Drama")
// yield [Fiction Drama].
func NormalizeGenres(values ...string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if g := strings.TrimSpace(part); g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

// Genres accepts either a JSON array or a comma-separated JSON string.
// null leaves it nil, so a patch carrying null keeps the stored genres.
type Genres []string

func (g *Genres) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*g = NormalizeGenres(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*g = NormalizeGenres(list...)
	return nil
}
