package gnss

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Sp3Pattern matches a 3-character SP3 satellite identifier, e.g. "G01".
var Sp3Pattern = regexp.MustCompile(`^[A-Z]\d\d$`)

// IlrsPattern matches an International Laser Ranging Service designation.
var IlrsPattern = regexp.MustCompile(`^\d{6,7}$`)

// NoradPattern matches a NORAD catalog number.
var NoradPattern = regexp.MustCompile(`^\d+$`)

// Sp3Id is a validated SP3 satellite identifier.
type Sp3Id struct{ value string }

// NewSp3Id validates value against Sp3Pattern and returns an Sp3Id, or an
// error if value does not match.
func NewSp3Id(value string) (Sp3Id, error) {
	if !Sp3Pattern.MatchString(value) {
		return Sp3Id{}, fmt.Errorf("gnss: invalid SP3 id %q", value)
	}
	return Sp3Id{value: value}, nil
}

// String returns the identifier's canonical 3-character form.
func (id Sp3Id) String() string { return id.value }

// IlrsId is a validated ILRS satellite identifier.
type IlrsId struct{ value string }

// NewIlrsId validates value against IlrsPattern and returns an IlrsId.
func NewIlrsId(value string) (IlrsId, error) {
	if !IlrsPattern.MatchString(value) {
		return IlrsId{}, fmt.Errorf("gnss: invalid ILRS id %q", value)
	}
	return IlrsId{value: value}, nil
}

// String returns the identifier's canonical form.
func (id IlrsId) String() string { return id.value }

// NoradId is a validated NORAD catalog identifier.
type NoradId struct{ value string }

// NewNoradId validates value against NoradPattern and returns a NoradId.
func NewNoradId(value string) (NoradId, error) {
	if !NoradPattern.MatchString(value) {
		return NoradId{}, fmt.Errorf("gnss: invalid NORAD id %q", value)
	}
	return NoradId{value: value}, nil
}

// String returns the identifier's canonical form.
func (id NoradId) String() string { return id.value }

// UnknownSatelliteError is returned by catalog lookups that miss.
type UnknownSatelliteError struct {
	Id string
}

func (e *UnknownSatelliteError) Error() string {
	return fmt.Sprintf("gnss: unknown satellite %q", e.Id)
}

// CatalogSatellite is one entry of the embedded satellite catalog, mapping
// a canonical satellite to all three of its identifiers plus a human name.
type CatalogSatellite struct {
	Name  string `json:"name" validate:"required"`
	Sp3   string `json:"sp3" validate:"required"`
	Norad string `json:"norad" validate:"required"`
	Ilrs  string `json:"ilrs"`
}

//go:embed satellites.json
var catalogFS embed.FS

var (
	catalogOnce      sync.Once
	sp3ToSatellite   map[string]CatalogSatellite
	noradToSatellite map[string]CatalogSatellite
	catalogInitErr   error
)

// loadCatalog parses the embedded catalog and builds the process-wide
// SP3→satellite and NORAD→satellite lookup tables. Duplicate identifiers
// in the catalog are a fatal configuration error, mirrored from the
// teacher's panic-on-corrupt-embedded-data style for data that ships with
// the binary and can never legitimately be malformed at runtime.
func loadCatalog() {
	raw, err := catalogFS.ReadFile("satellites.json")
	if err != nil {
		catalogInitErr = fmt.Errorf("gnss: read embedded catalog: %w", err)
		return
	}
	var entries []CatalogSatellite
	if err := json.Unmarshal(raw, &entries); err != nil {
		catalogInitErr = fmt.Errorf("gnss: decode embedded catalog: %w", err)
		return
	}
	validate := validator.New()
	sp3ToSatellite = make(map[string]CatalogSatellite, len(entries))
	noradToSatellite = make(map[string]CatalogSatellite, len(entries))
	for _, sat := range entries {
		if err := validate.Struct(sat); err != nil {
			catalogInitErr = fmt.Errorf("gnss: invalid catalog entry %+v: %w", sat, err)
			return
		}
		if !Sp3Pattern.MatchString(sat.Sp3) {
			catalogInitErr = fmt.Errorf("gnss: catalog entry %q has invalid SP3 id %q", sat.Name, sat.Sp3)
			return
		}
		if !NoradPattern.MatchString(sat.Norad) {
			catalogInitErr = fmt.Errorf("gnss: catalog entry %q has invalid NORAD id %q", sat.Name, sat.Norad)
			return
		}
		if sat.Ilrs != "" && !IlrsPattern.MatchString(sat.Ilrs) {
			catalogInitErr = fmt.Errorf("gnss: catalog entry %q has invalid ILRS id %q", sat.Name, sat.Ilrs)
			return
		}
		if _, dup := sp3ToSatellite[sat.Sp3]; dup {
			catalogInitErr = fmt.Errorf("gnss: non-unique SP3 id %q in catalog", sat.Sp3)
			return
		}
		if _, dup := noradToSatellite[sat.Norad]; dup {
			catalogInitErr = fmt.Errorf("gnss: non-unique NORAD id %q in catalog", sat.Norad)
			return
		}
		sp3ToSatellite[sat.Sp3] = sat
		noradToSatellite[sat.Norad] = sat
	}
}

// ensureCatalog lazily initialises the catalog tables exactly once and
// panics if the embedded catalog is corrupt: this is build-time data, not
// user input, so a malformed catalog is a programmer error.
func ensureCatalog() {
	catalogOnce.Do(loadCatalog)
	if catalogInitErr != nil {
		panic(catalogInitErr)
	}
}

// SatelliteBySp3 resolves an SP3 identifier to its catalog entry.
func SatelliteBySp3(id Sp3Id) (CatalogSatellite, error) {
	ensureCatalog()
	sat, ok := sp3ToSatellite[id.String()]
	if !ok {
		return CatalogSatellite{}, &UnknownSatelliteError{Id: id.String()}
	}
	return sat, nil
}

// SatelliteByNorad resolves a NORAD identifier to its catalog entry.
func SatelliteByNorad(id NoradId) (CatalogSatellite, error) {
	ensureCatalog()
	sat, ok := noradToSatellite[id.String()]
	if !ok {
		return CatalogSatellite{}, &UnknownSatelliteError{Id: id.String()}
	}
	return sat, nil
}

// NoradToSp3 looks up the SP3 identifier corresponding to a NORAD id.
func NoradToSp3(id NoradId) (Sp3Id, error) {
	sat, err := SatelliteByNorad(id)
	if err != nil {
		return Sp3Id{}, err
	}
	return NewSp3Id(sat.Sp3)
}
