package estimator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownKind = errors.New("unknown estimator kind")

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

var factories = map[string]func() Estimator{
	KindPipeline:         func() Estimator { return &Pipeline{} },
	KindMultiHorizon:     func() Estimator { return &MultiHorizon{} },
	KindOneVsRest:        func() Estimator { return &OneVsRest{} },
	KindKMeans:           func() Estimator { return &KMeans{} },
	KindRidge:            func() Estimator { return &Ridge{} },
	KindKaplanMeier:      func() Estimator { return &KaplanMeier{} },
	KindSeasonalForecast: func() Estimator { return &SeasonalForecaster{} },
	KindBundle:           func() Estimator { return &Bundle{} },
}

// Marshal encodes e together with its kind so Unmarshal can rebuild the
// concrete type.
func Marshal(e Estimator) ([]byte, error) {
	if _, ok := factories[e.Kind()]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind())
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(envelope{Kind: e.Kind(), Payload: payload})
}

func Unmarshal(data []byte) (Estimator, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode estimator envelope: %w", err)
	}
	factory, ok := factories[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Kind)
	}
	e := factory()
	if err := json.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Kind, err)
	}
	return e, nil
}

type multiHorizonJSON struct {
	Horizons []int                      `json:"horizons"`
	Models   map[string]json.RawMessage `json:"models"`
}

func (m *MultiHorizon) MarshalJSON() ([]byte, error) {
	out := multiHorizonJSON{
		Horizons: m.Horizons,
		Models:   make(map[string]json.RawMessage, len(m.Models)),
	}
	for h, c := range m.Models {
		data, err := Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("horizon %d: %w", h, err)
		}
		out.Models[strconv.Itoa(h)] = data
	}
	return json.Marshal(out)
}

func (m *MultiHorizon) UnmarshalJSON(data []byte) error {
	var in multiHorizonJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Horizons = in.Horizons
	m.Models = make(map[int]Classifier, len(in.Models))
	for key, raw := range in.Models {
		h, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid horizon %q: %w", key, err)
		}
		e, err := Unmarshal(raw)
		if err != nil {
			return fmt.Errorf("horizon %d: %w", h, err)
		}
		c, ok := e.(Classifier)
		if !ok {
			return fmt.Errorf("horizon %d: %s is not a classifier", h, e.Kind())
		}
		m.Models[h] = c
	}
	return nil
}
