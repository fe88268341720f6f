package qbt

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/sjson"
)

// SetPreferencesRequest changes daemon preferences. Only the given keys
// are modified.
type SetPreferencesRequest struct {
	route
	Preferences map[string]any
}

func NewSetPreferencesRequest(prefs map[string]any) *SetPreferencesRequest {
	return &SetPreferencesRequest{route: route{OpAppSetPreferences}, Preferences: prefs}
}

// Payload renders the json form field in key order.
func (r *SetPreferencesRequest) Payload() (string, error) {
	keys := make([]string, 0, len(r.Preferences))
	for k := range r.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := "{}"
	for _, k := range keys {
		var err error
		payload, err = sjson.Set(payload, escapePathKey(k), r.Preferences[k])
		if err != nil {
			return "", err
		}
	}
	return payload, nil
}

func (r *SetPreferencesRequest) Params() url.Values {
	payload, err := r.Payload()
	if err != nil {
		return url.Values{}
	}
	return url.Values{"json": {payload}}
}

func (r *SetPreferencesRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if len(r.Preferences) == 0 {
		v.addError("preferences", "at least one preference is required")
	}
	for k := range r.Preferences {
		if strings.TrimSpace(k) == "" {
			v.addError("preferences", "keys must not be empty")
		}
	}
	if _, err := r.Payload(); err != nil {
		v.addError("preferences", "cannot encode: %v", err)
	}
	return v
}

func (r *SetPreferencesRequest) Summary() map[string]any {
	s := r.summary(nil)
	keys := make([]string, 0, len(r.Preferences))
	for k := range r.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s["keys"] = keys
	return s
}

// escapePathKey makes a preference name a literal sjson path.
func escapePathKey(k string) string {
	r := strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`)
	return r.Replace(k)
}
