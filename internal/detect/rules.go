package detect

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"devprobe/internal/sysinfo"
)

//go:embed rules/*.yaml
var defaultRulesFS embed.FS

// Category groups rules under a name. Rules keep their file order.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rules       []Rule `json:"rules"`
}

type ruleFile struct {
	Category    string     `yaml:"category"`
	Description string     `yaml:"description"`
	Tools       []toolSpec `yaml:"tools"`
}

type toolSpec struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Essential      bool           `yaml:"essential"`
	MinimumVersion string         `yaml:"minimum_version"`
	Strategies     []strategySpec `yaml:"strategies"`
}

type strategySpec struct {
	Method         string            `yaml:"method"`
	Platform       string            `yaml:"platform"`
	Platforms      []string          `yaml:"platforms"`
	Command        string            `yaml:"command"`
	Paths          []string          `yaml:"paths"`
	VersionPattern string            `yaml:"version_pattern"`
	Timeout        string            `yaml:"timeout"`
	Dir            string            `yaml:"dir"`
	Env            map[string]string `yaml:"env"`
}

// ParseRuleFile decodes one category document. source names the file in
// error messages.
func ParseRuleFile(data []byte, source string) (Category, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Category{}, fmt.Errorf("parse %s: %w", source, err)
	}
	if strings.TrimSpace(doc.Category) == "" {
		return Category{}, fmt.Errorf("%s: missing category", source)
	}

	cat := Category{Name: doc.Category, Description: doc.Description}
	seen := make(map[string]bool, len(doc.Tools))
	for _, entry := range doc.Tools {
		rule, err := entry.rule(doc.Category)
		if err != nil {
			return Category{}, fmt.Errorf("%s: %w", source, err)
		}
		if seen[rule.Name] {
			return Category{}, fmt.Errorf("%s: duplicate tool %s", source, rule.Name)
		}
		seen[rule.Name] = true
		cat.Rules = append(cat.Rules, rule)
	}
	return cat, nil
}

func (t toolSpec) rule(category string) (Rule, error) {
	rule := Rule{
		Name:           t.Name,
		Category:       category,
		Description:    t.Description,
		Essential:      t.Essential,
		MinimumVersion: t.MinimumVersion,
	}
	for _, entry := range t.Strategies {
		strategies, err := entry.expand()
		if err != nil {
			return Rule{}, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		rule.Strategies = append(rule.Strategies, strategies...)
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// expand turns one document entry into a Strategy per listed platform.
func (s strategySpec) expand() ([]Strategy, error) {
	method, err := ParseMethod(s.Method)
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if s.Timeout != "" {
		timeout, err = time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", s.Timeout, err)
		}
	}

	var command string
	var args []string
	if strings.TrimSpace(s.Command) != "" {
		words, err := shellwords.NewParser().Parse(s.Command)
		if err != nil {
			return nil, fmt.Errorf("parse command %q: %w", s.Command, err)
		}
		if len(words) > 0 {
			command, args = words[0], words[1:]
		}
	}

	env, err := envList(s.Env)
	if err != nil {
		return nil, err
	}

	names := s.Platforms
	if s.Platform != "" {
		names = append([]string{s.Platform}, names...)
	}
	if len(names) == 0 {
		return nil, errors.New("strategy lists no platforms")
	}

	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		platform, err := sysinfo.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Strategy{
			Method:         method,
			Platform:       platform,
			Command:        command,
			Args:           append([]string(nil), args...),
			Paths:          append([]string(nil), s.Paths...),
			VersionPattern: s.VersionPattern,
			Timeout:        timeout,
			Dir:            s.Dir,
			Env:            append([]string(nil), env...),
		})
	}
	return out, nil
}

// envList flattens an env mapping into sorted KEY=VALUE pairs.
func envList(vars map[string]string) ([]string, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		if k == "" || strings.ContainsAny(k, "= ") {
			return nil, fmt.Errorf("invalid env name %q", k)
		}
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out, nil
}

// LoadDefaultRules parses the rule files compiled into the binary.
func LoadDefaultRules() ([]Category, error) {
	return loadRulesFS(defaultRulesFS, "rules")
}

// LoadRulesDir parses every *.yaml and *.yml file in dir, in name order.
// A missing directory yields no categories.
func LoadRulesDir(dir string) ([]Category, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat rules dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules path %s is not a directory", dir)
	}
	return loadRulesFS(os.DirFS(dir), ".")
}

func loadRulesFS(fsys fs.FS, root string) ([]Category, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var cats []Category
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := entry.Name()
		if root != "." {
			name = root + "/" + name
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		cat, err := ParseRuleFile(data, entry.Name())
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// Registry holds the registered categories and indexes their rules by
// tool name.
type Registry struct {
	categories []Category
	index      map[string]int
	rules      map[string]Rule
}

// NewRegistry registers categories in order. A category whose name was
// already registered replaces the earlier one in place.
func NewRegistry(categories ...Category) (*Registry, error) {
	r := &Registry{
		index: make(map[string]int),
		rules: make(map[string]Rule),
	}
	for _, cat := range categories {
		if i, ok := r.index[cat.Name]; ok {
			r.categories[i] = cat
			continue
		}
		r.index[cat.Name] = len(r.categories)
		r.categories = append(r.categories, cat)
	}

	for _, cat := range r.categories {
		for _, rule := range cat.Rules {
			if prev, ok := r.rules[rule.Name]; ok {
				return nil, fmt.Errorf("tool %s registered in both %s and %s", rule.Name, prev.Category, cat.Name)
			}
			r.rules[rule.Name] = rule
		}
	}
	return r, nil
}

// LoadRegistry builds a registry from the embedded rules followed by the
// rule files in userDir.
func LoadRegistry(userDir string) (*Registry, error) {
	defaults, err := LoadDefaultRules()
	if err != nil {
		return nil, err
	}
	user, err := LoadRulesDir(userDir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(append(defaults, user...)...)
}

// Categories returns the registered categories in registration order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// CategoryNames returns category names in registration order.
func (r *Registry) CategoryNames() []string {
	names := make([]string, 0, len(r.categories))
	for _, cat := range r.categories {
		names = append(names, cat.Name)
	}
	return names
}

// Category looks up a category by name.
func (r *Registry) Category(name string) (Category, bool) {
	i, ok := r.index[name]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Rule looks up a rule by tool name.
func (r *Registry) Rule(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Rules returns every rule, grouped by category in registration order.
func (r *Registry) Rules() []Rule {
	var out []Rule
	for _, cat := range r.categories {
		out = append(out, cat.Rules...)
	}
	return out
}
