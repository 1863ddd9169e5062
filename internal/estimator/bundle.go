package estimator

import (
	"encoding/json"
	"fmt"
	"sort"
)

const KindBundle = "bundle"

// Bundle groups named estimators persisted as one artifact, such as an
// overall survival curve plus one curve per segment.
type Bundle struct {
	Members map[string]Estimator `json:"-"`
}

func NewBundle() *Bundle {
	return &Bundle{Members: make(map[string]Estimator)}
}

func (b *Bundle) Kind() string { return KindBundle }

func (b *Bundle) Add(name string, e Estimator) {
	if b.Members == nil {
		b.Members = make(map[string]Estimator)
	}
	b.Members[name] = e
}

func (b *Bundle) Get(name string) (Estimator, bool) {
	e, ok := b.Members[name]
	return e, ok
}

func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Members))
	for name := range b.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Bundle) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(b.Members))
	for name, e := range b.Members {
		data, err := Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}
		out[name] = data
	}
	return json.Marshal(out)
}

func (b *Bundle) UnmarshalJSON(data []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Members = make(map[string]Estimator, len(in))
	for name, raw := range in {
		e, err := Unmarshal(raw)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		b.Members[name] = e
	}
	return nil
}
