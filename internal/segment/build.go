package segment

import (
	"strings"
	"time"

	"github.com/thai-tokenizer/sidecar/internal/config"
)

// Engines bundles the backends a Segmenter and its compound pass need:
// the primary, an ordered fallback chain, and a lookup by name used by
// SegmentCompound to re-segment candidates with the other engines.
type Engines struct {
	Segmenter *Segmenter
	ByName    map[string]Backend
}

// BuildFromConfig constructs a Segmenter and its engine lookup from a
// resolved SegmenterConfig. If cfg.DockerEndpoint is set, all HTTP
// backends point at that single shared endpoint (one container
// multiplexing all three engines via the "engine" request field, the
// shape HTTPBackend.Segment sends); otherwise every HTTP backend targets
// the default local endpoint http://127.0.0.1:8000. No container is
// launched here.
func BuildFromConfig(cfg config.SegmenterConfig) (*Engines, error) {
	dict, err := NewDictionary(cfg.DictionaryPath)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Backend)
	for _, name := range []string{EngineNewmm, EngineAttacut, EngineDeepcut} {
		byName[name] = backendFor(name, cfg)
	}

	var fallback []Backend
	for _, name := range cfg.FallbackChain {
		if name == cfg.Backend {
			continue
		}
		if b, ok := byName[name]; ok {
			fallback = append(fallback, b)
		}
	}
	fallback = append(fallback, NewCharFallbackBackend())

	primary := byName[cfg.Backend]
	if primary == nil {
		primary = NewCharFallbackBackend()
	}

	return &Engines{
		Segmenter: New(primary, fallback, dict).WithCandidateCache(cfg.CandidateCacheSize),
		ByName:    byName,
	}, nil
}

func backendFor(name string, cfg config.SegmenterConfig) Backend {
	endpoint := cfg.DockerEndpoint
	if endpoint == "" {
		endpoint = defaultEndpointForImage(cfg.DockerImage, name)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewHTTPBackend(name, endpoint, timeout)
}

// defaultEndpointForImage derives a best-effort local endpoint when no
// explicit DockerEndpoint was configured; callers that need the
// container actually launched should drive ContainerManager themselves
// (see cmd/thaisidecar's serve command) and set DockerEndpoint to the
// URL it returns.
func defaultEndpointForImage(image, engine string) string {
	base := "http://127.0.0.1:8000"
	if image == "" {
		return base
	}
	if strings.Contains(image, engine) {
		return base
	}
	return base
}
