package tags

import (
	"github.com/dicomnet/dicomnet/dcmdata"
)

// Strategy selects how ResolveScoped's result is reshaped for output
// (original spec §4.F, grouping_strategy config field).
type Strategy int

const (
	StrategyByScope Strategy = iota
	StrategyFlat
	StrategyStudyLevel
	StrategyCustom
)

// CustomTag names an additional attribute to extract under a caller
// chosen alias, independent of config.CustomTag so this package has no
// dependency on the config package.
type CustomTag struct {
	Tag   string
	Alias string
}

// Scoped holds extracted attributes grouped by where each one lives in
// the DICOM information hierarchy. Empty sub-maps are left nil so
// callers and JSON encoders alike omit them (original spec §4.F).
type Scoped struct {
	Patient   map[string]interface{}
	Study     map[string]interface{}
	Series    map[string]interface{}
	Instance  map[string]interface{}
	Equipment map[string]interface{}
	Custom    map[string]interface{}
}

// Flat holds every extracted attribute (including custom ones) under a
// single namespace, discarding scope information.
type Flat map[string]interface{}

// StudyLevelTags separates attributes that are constant across an
// entire study (Patient+Study scope) from everything that varies
// per-instance (Series+Instance+Equipment scope).
type StudyLevelTags struct {
	StudyLevel    map[string]interface{}
	InstanceLevel map[string]interface{}
	Custom        map[string]interface{}
}

// ResolveScoped extracts requested (by keyword or hex tag) and custom
// (by explicit tag with an alias) attributes from ds and classifies
// each by scope. Attributes absent from ds are silently skipped; a
// malformed name in requested or custom is reported as an
// errors.InvalidTagError.
func ResolveScoped(ds dcmdata.Dataset, requested []string, custom []CustomTag) (Scoped, error) {
	var out Scoped
	for _, name := range requested {
		t, value, ok, err := find(ds, name)
		if err != nil {
			return Scoped{}, err
		}
		if !ok {
			continue
		}
		switch Classify(t) {
		case ScopePatient:
			out.Patient = putInto(out.Patient, name, value)
		case ScopeStudy:
			out.Study = putInto(out.Study, name, value)
		case ScopeSeries:
			out.Series = putInto(out.Series, name, value)
		case ScopeEquipment:
			out.Equipment = putInto(out.Equipment, name, value)
		default:
			out.Instance = putInto(out.Instance, name, value)
		}
	}
	for _, c := range custom {
		_, value, ok, err := find(ds, c.Tag)
		if err != nil {
			return Scoped{}, err
		}
		if !ok {
			continue
		}
		out.Custom = putInto(out.Custom, c.Alias, value)
	}
	return out, nil
}

func putInto(m map[string]interface{}, key string, value interface{}) map[string]interface{} {
	if m == nil {
		m = make(map[string]interface{})
	}
	m[key] = value
	return m
}

// Shape reshapes a Scoped result per strategy, returning the concrete
// output value the configured grouping_strategy produces.
func Shape(scoped Scoped, strategy Strategy) interface{} {
	switch strategy {
	case StrategyFlat, StrategyCustom:
		return flatten(scoped)
	case StrategyStudyLevel:
		return studyLevel(scoped)
	default:
		return scoped
	}
}

func flatten(scoped Scoped) Flat {
	out := make(Flat)
	merge(out, scoped.Patient)
	merge(out, scoped.Study)
	merge(out, scoped.Series)
	merge(out, scoped.Instance)
	merge(out, scoped.Equipment)
	merge(out, scoped.Custom)
	if len(out) == 0 {
		return nil
	}
	return out
}

func studyLevel(scoped Scoped) StudyLevelTags {
	var out StudyLevelTags
	studyLevelMap := make(map[string]interface{})
	merge(studyLevelMap, scoped.Patient)
	merge(studyLevelMap, scoped.Study)
	if len(studyLevelMap) > 0 {
		out.StudyLevel = studyLevelMap
	}

	instanceLevelMap := make(map[string]interface{})
	merge(instanceLevelMap, scoped.Series)
	merge(instanceLevelMap, scoped.Instance)
	merge(instanceLevelMap, scoped.Equipment)
	if len(instanceLevelMap) > 0 {
		out.InstanceLevel = instanceLevelMap
	}

	out.Custom = scoped.Custom
	return out
}

func merge(dst map[string]interface{}, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

// Project splits a Scoped result into the three per-level maps the SCP
// pipeline attaches to a stored instance and its study/series
// aggregates (original spec §4.D), following the same
// scope-to-level mapping as the configured grouping_strategy.
func Project(scoped Scoped, strategy Strategy) (study, series, instance map[string]interface{}) {
	switch strategy {
	case StrategyByScope:
		study = mergeNew(scoped.Patient, scoped.Study)
		series = mergeNew(scoped.Series)
		instance = mergeNew(scoped.Instance, scoped.Equipment, scoped.Custom)
	case StrategyStudyLevel:
		study = mergeNew(scoped.Patient, scoped.Study)
		instance = mergeNew(scoped.Series, scoped.Instance, scoped.Equipment, scoped.Custom)
	default: // StrategyFlat, StrategyCustom
		instance = mergeNew(scoped.Patient, scoped.Study, scoped.Series, scoped.Instance, scoped.Equipment, scoped.Custom)
	}
	return study, series, instance
}

func mergeNew(srcs ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, src := range srcs {
		merge(out, src)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
