package provider

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gnss-tools/sp3eph/pkg/gnss"
)

//go:embed providers.json
var registryFS embed.FS

type jsonProvider struct {
	Kind         string   `json:"kind" validate:"oneof=file http"`
	NameTemplate string   `json:"name_template" validate:"required"`
	URLTemplate  string   `json:"url_template"`
	Compression  string   `json:"compression" validate:"oneof=none gzip unix"`
	TimeSystem   string   `json:"time_system" validate:"required"`
	DurationDays float64  `json:"duration_days" validate:"gt=0"`
	Sp3Ids       []string `json:"sp3_ids" validate:"required,dive,required"`
}

var (
	registryOnce sync.Once
	registry     []Provider
	registryErr  error
)

func loadRegistry() {
	raw, err := registryFS.ReadFile("providers.json")
	if err != nil {
		registryErr = fmt.Errorf("provider: read providers.json: %w", err)
		return
	}
	var entries []jsonProvider
	if err := json.Unmarshal(raw, &entries); err != nil {
		registryErr = fmt.Errorf("provider: parse providers.json: %w", err)
		return
	}
	validate := validator.New()
	providers := make([]Provider, 0, len(entries))
	for i, entry := range entries {
		if err := validate.Struct(entry); err != nil {
			registryErr = fmt.Errorf("provider: providers.json entry %d: %w", i, err)
			return
		}
		sys, err := gnss.ParseTimeSystem(entry.TimeSystem)
		if err != nil {
			registryErr = fmt.Errorf("provider: providers.json entry %d: %w", i, err)
			return
		}
		ids := make(map[string]struct{}, len(entry.Sp3Ids))
		for _, id := range entry.Sp3Ids {
			ids[id] = struct{}{}
		}
		duration := time.Duration(entry.DurationDays * 24 * float64(time.Hour))

		switch entry.Kind {
		case "file":
			providers = append(providers, &FileProvider{
				NameTemplate: entry.NameTemplate,
				Sp3IdSet:     ids,
				TimeSys:      sys,
				DurationVal:  duration,
			})
		case "http":
			providers = append(providers, &HTTPProvider{
				NameTemplate: entry.NameTemplate,
				URLTemplate:  entry.URLTemplate,
				Compression:  Compression(entry.Compression),
				Sp3IdSet:     ids,
				TimeSys:      sys,
				DurationVal:  duration,
			})
		default:
			registryErr = fmt.Errorf("provider: providers.json entry %d: unknown kind %q", i, entry.Kind)
			return
		}
	}
	registry = providers
}

func ensureRegistry() {
	registryOnce.Do(loadRegistry)
	if registryErr != nil {
		panic(registryErr)
	}
}

// Registry returns the embedded default provider list.
func Registry() []Provider {
	ensureRegistry()
	return registry
}

// FindProvidersOf returns the registered providers that carry sp3Id, in
// registry order.
func FindProvidersOf(sp3Id string) []Provider {
	ensureRegistry()
	var found []Provider
	for _, p := range registry {
		if p.Covers(sp3Id) {
			found = append(found, p)
		}
	}
	return found
}
