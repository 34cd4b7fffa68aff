package verify

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

const DefaultLocale = "en"

// TaxonomyEntry — готовые пояснение и рекомендации для категории ошибки.
type TaxonomyEntry struct {
	Label       string   `yaml:"label"`
	Explanation string   `yaml:"explanation"`
	Suggestions []string `yaml:"suggestions"`
}

type taxonomyMessages struct {
	AllCorrect           string `yaml:"all_correct"`
	Praise               string `yaml:"praise"`
	NoSolution           string `yaml:"no_solution"`
	IncorrectSteps       string `yaml:"incorrect_steps"`
	StepRule             string `yaml:"step_rule"`
	StepExternal         string `yaml:"step_external"`
	StepExternalDisputed string `yaml:"step_external_disputed"`
	StepInconclusive     string `yaml:"step_inconclusive"`
	DisagreementNote     string `yaml:"disagreement_note"`
	ErrorSummary         string `yaml:"error_summary"`
	SourceExternal       string `yaml:"source_external"`
	SourceRule           string `yaml:"source_rule"`
}

// Taxonomy — локализованное содержимое таксономии. Неизменяема после загрузки.
type Taxonomy struct {
	Locale     string                          `yaml:"-"`
	Categories map[ErrorCategory]TaxonomyEntry `yaml:"categories"`
	Messages   taxonomyMessages                `yaml:"messages"`
}

var (
	taxonomies     map[string]*Taxonomy
	taxonomiesOnce sync.Once
	taxonomiesErr  error
)

func loadTaxonomies() (map[string]*Taxonomy, error) {
	taxonomiesOnce.Do(func() {
		var raw map[string]*Taxonomy
		if err := yaml.Unmarshal(taxonomyYAML, &raw); err != nil {
			taxonomiesErr = fmt.Errorf("parsing taxonomy.yaml: %w", err)
			return
		}
		for locale, t := range raw {
			t.Locale = locale
			for _, c := range Categories {
				if _, ok := t.Categories[c]; !ok {
					taxonomiesErr = fmt.Errorf("taxonomy %s: missing category %s", locale, c)
					return
				}
			}
		}
		taxonomies = raw
	})
	return taxonomies, taxonomiesErr
}

// LoadTaxonomy возвращает таксономию для локали. Неизвестная локаль — ошибка.
func LoadTaxonomy(locale string) (*Taxonomy, error) {
	all, err := loadTaxonomies()
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	t, ok := all[locale]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownLocale, locale, Locales())
	}
	return t, nil
}

// MustTaxonomy is LoadTaxonomy for the embedded locales; it panics only if
// the embedded YAML itself is broken.
func MustTaxonomy(locale string) *Taxonomy {
	t, err := LoadTaxonomy(locale)
	if err != nil {
		if t, err2 := LoadTaxonomy(DefaultLocale); err2 == nil {
			return t
		}
		panic(err)
	}
	return t
}

func Locales() []string {
	all, _ := loadTaxonomies()
	out := make([]string, 0, len(all))
	for k := range all {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entry returns the canned content; unknown categories map to Unknown.
func (t *Taxonomy) Entry(c ErrorCategory) TaxonomyEntry {
	if e, ok := t.Categories[c]; ok {
		return e
	}
	return t.Categories[Unknown]
}
