package estimator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion guards artifact compatibility across engine versions.
const schemaVersion = 1

// ArtifactExt is the file extension of persisted model artifacts.
const ArtifactExt = ".msgpack"

// envelope is the on-disk artifact framing: estimator kind plus its
// msgpack-encoded parameters.
type envelope struct {
	Schema  int    `msgpack:"schema"`
	Kind    string `msgpack:"kind"`
	Payload []byte `msgpack:"payload"`
}

type pipelinePayload struct {
	Scaler *RobustScaler `msgpack:"scaler"`
	Inner  envelope      `msgpack:"inner"`
}

type weightedPayload struct {
	Weights []float64 `msgpack:"weights"`
	Inner   envelope  `msgpack:"inner"`
}

// Marshal serializes a fitted estimator into a self-describing artifact.
func Marshal(est Estimator) ([]byte, error) {
	env, err := encode(est)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(env)
}

// Unmarshal restores an estimator from artifact bytes. Unknown kinds are
// rejected rather than guessed at.
func Unmarshal(data []byte) (Estimator, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode artifact envelope: %w", err)
	}
	return decode(env)
}

// Save writes the estimator artifact to path, creating parent directories.
func Save(est Estimator, path string) error {
	data, err := Marshal(est)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	// Write-then-rename so a crash never leaves a truncated artifact behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}

// Load reads an estimator artifact from path.
func Load(path string) (Estimator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return Unmarshal(data)
}

func encode(est Estimator) (envelope, error) {
	if p, ok := est.(*Pipeline); ok {
		inner, err := encode(p.Inner)
		if err != nil {
			return envelope{}, err
		}
		payload, err := msgpack.Marshal(pipelinePayload{Scaler: p.Scaler, Inner: inner})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Schema: schemaVersion, Kind: "pipeline", Payload: payload}, nil
	}

	if w, ok := est.(*WeightedFeatures); ok {
		inner, err := encode(w.Inner)
		if err != nil {
			return envelope{}, err
		}
		payload, err := msgpack.Marshal(weightedPayload{Weights: w.Weights, Inner: inner})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Schema: schemaVersion, Kind: "weighted", Payload: payload}, nil
	}

	payload, err := msgpack.Marshal(est)
	if err != nil {
		return envelope{}, fmt.Errorf("encode %s estimator: %w", est.Kind(), err)
	}
	return envelope{Schema: schemaVersion, Kind: est.Kind(), Payload: payload}, nil
}

func decode(env envelope) (Estimator, error) {
	if env.Schema != schemaVersion {
		return nil, fmt.Errorf("unsupported artifact schema %d", env.Schema)
	}

	if env.Kind == "pipeline" || strings.HasPrefix(env.Kind, "pipeline:") {
		var pp pipelinePayload
		if err := msgpack.Unmarshal(env.Payload, &pp); err != nil {
			return nil, fmt.Errorf("decode pipeline payload: %w", err)
		}
		inner, err := decode(pp.Inner)
		if err != nil {
			return nil, err
		}
		return &Pipeline{Scaler: pp.Scaler, Inner: inner}, nil
	}

	if env.Kind == "weighted" || strings.HasPrefix(env.Kind, "weighted:") {
		var wp weightedPayload
		if err := msgpack.Unmarshal(env.Payload, &wp); err != nil {
			return nil, fmt.Errorf("decode weighted payload: %w", err)
		}
		inner, err := decode(wp.Inner)
		if err != nil {
			return nil, err
		}
		return &WeightedFeatures{Weights: wp.Weights, Inner: inner}, nil
	}

	var est Estimator
	switch env.Kind {
	case "linear":
		est = &Linear{}
	case "ridge":
		est = &Ridge{}
	case "lasso":
		est = &Lasso{}
	case "random_forest":
		est = &RandomForest{}
	case "gradient_boosting":
		est = &GradientBoosting{}
	case "svr":
		est = &SVR{}
	case "mlp":
		est = &MLP{}
	default:
		return nil, fmt.Errorf("unknown estimator kind %q in artifact", env.Kind)
	}

	if err := msgpack.Unmarshal(env.Payload, est); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return est, nil
}
