// Package classifier assigns a document type from the filename and the
// start of the extracted text.
//
// Rules are tried in order: every filename rule, then every content rule.
// The first match wins; with no match the type is domain.DefaultDocumentType.
// Rules loaded from YAML take precedence over the built-in set.
package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// contentWindow is how many leading runes of text content rules inspect.
const contentWindow = 5000

// RuleSpec is the serialised form of a rule. A spec with Filename patterns
// is a filename rule; otherwise it is a content rule.
type RuleSpec struct {
	Type string `yaml:"type"`

	// Filename holds regular expressions; any match classifies.
	Filename []string `yaml:"filename,omitempty"`

	// Keywords are case-insensitive phrases searched in the text.
	Keywords []string `yaml:"keywords,omitempty"`

	// MinMatches is how many distinct keywords must appear (default 1).
	MinMatches int `yaml:"min_matches,omitempty"`
}

// RuleFile is the YAML layout of a rules file.
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

type filenameRule struct {
	docType  string
	patterns []*regexp.Regexp
}

type contentRule struct {
	docType    string
	keywords   []string
	minMatches int
}

// Classifier implements driven.Classifier.
type Classifier struct {
	filename []filenameRule
	content  []contentRule
}

// New builds a classifier from extra rules followed by the defaults.
func New(extra ...RuleSpec) (*Classifier, error) {
	c := &Classifier{}
	specs := make([]RuleSpec, 0, len(extra)+len(defaultFilenameRules)+len(defaultContentRules))
	specs = append(specs, extra...)
	specs = append(specs, defaultFilenameRules...)
	specs = append(specs, defaultContentRules...)

	for i, spec := range specs {
		if err := c.add(spec); err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", domain.ErrInvalidInput, i, spec.Type, err)
		}
	}
	return c, nil
}

// Load builds a classifier whose YAML rules from path run before the defaults.
// An empty path yields the defaults only.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return New()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing rules file %s: %v", domain.ErrInvalidInput, path, err)
	}
	return New(file.Rules...)
}

func (c *Classifier) add(spec RuleSpec) error {
	spec.Type = strings.TrimSpace(spec.Type)
	if spec.Type == "" {
		return fmt.Errorf("type is required")
	}

	if len(spec.Filename) > 0 {
		rule := filenameRule{docType: spec.Type}
		for _, p := range spec.Filename {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return err
			}
			rule.patterns = append(rule.patterns, re)
		}
		c.filename = append(c.filename, rule)
	}

	if len(spec.Keywords) > 0 {
		rule := contentRule{docType: spec.Type, minMatches: spec.MinMatches}
		for _, k := range spec.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				rule.keywords = append(rule.keywords, k)
			}
		}
		if rule.minMatches <= 0 {
			rule.minMatches = 1
		}
		if rule.minMatches > len(rule.keywords) {
			return fmt.Errorf("min_matches %d exceeds %d keywords", rule.minMatches, len(rule.keywords))
		}
		c.content = append(c.content, rule)
	}

	if len(spec.Filename) == 0 && len(spec.Keywords) == 0 {
		return fmt.Errorf("rule needs filename patterns or keywords")
	}
	return nil
}

// Classify returns the first matching type, or domain.DefaultDocumentType.
func (c *Classifier) Classify(filename, text string) string {
	name := normaliseFilename(filename)
	for _, r := range c.filename {
		for _, re := range r.patterns {
			if re.MatchString(name) {
				return r.docType
			}
		}
	}

	head := strings.ToLower(leading(text, contentWindow))
	for _, r := range c.content {
		matches := 0
		for _, k := range r.keywords {
			if strings.Contains(head, k) {
				matches++
			}
		}
		if matches >= r.minMatches {
			return r.docType
		}
	}
	return domain.DefaultDocumentType
}

func normaliseFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	return strings.ToLower(base)
}

func leading(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
