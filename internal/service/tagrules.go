package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"
	"github.com/sirupsen/logrus"
)

// TagRule is one configured (tag name, query expression) pair.
type TagRule struct {
	Name       string
	Expression string
	compiled   *jmespath.JMESPath
}

// TagRuleEngine derives topic tags from event payloads by evaluating
// configured JMESPath expressions. Parsed rule sets are cached per raw
// configuration string, so a settings change invalidates naturally.
type TagRuleEngine struct {
	logger *logrus.Logger

	mu    sync.RWMutex
	cache map[string][]TagRule
}

func NewTagRuleEngine(logger *logrus.Logger) *TagRuleEngine {
	return &TagRuleEngine{
		logger: logger,
		cache:  make(map[string][]TagRule),
	}
}

// ExtractTags evaluates every configured rule against the payload tree and
// returns the names of the matching ones, deduplicated. A tag matches unless
// the expression result is nil or boolean false; empty strings and zero are
// matches. Parse and evaluation errors are returned, not swallowed.
func (e *TagRuleEngine) ExtractTags(rulesConfig string, data map[string]interface{}) ([]string, error) {
	rules, err := e.parseRules(rulesConfig)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		result, err := rule.compiled.Search(data)
		if err != nil {
			return nil, fmt.Errorf("evaluate tag rule %q: %w", rule.Name, err)
		}
		if result == nil || result == false {
			continue
		}
		if _, dup := seen[rule.Name]; dup {
			continue
		}
		seen[rule.Name] = struct{}{}
		tags = append(tags, rule.Name)
	}
	return tags, nil
}

// parseRules splits a pipe-separated "name,expression" list, compiling each
// expression. Rules missing a name or expression are dropped with a warning.
func (e *TagRuleEngine) parseRules(rulesConfig string) ([]TagRule, error) {
	rulesConfig = strings.TrimSpace(rulesConfig)
	if rulesConfig == "" {
		return nil, nil
	}

	e.mu.RLock()
	cached, ok := e.cache[rulesConfig]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var rules []TagRule
	for _, raw := range strings.Split(rulesConfig, "|") {
		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			e.logger.Warnf("tag rule %q has no expression, dropped", raw)
			continue
		}
		name := strings.TrimSpace(parts[0])
		expression := strings.TrimSpace(parts[1])
		if name == "" || expression == "" {
			e.logger.Warnf("tag rule %q missing name or expression, dropped", raw)
			continue
		}

		compiled, err := jmespath.Compile(expression)
		if err != nil {
			return nil, fmt.Errorf("compile tag rule %q: %w", name, err)
		}
		rules = append(rules, TagRule{Name: name, Expression: expression, compiled: compiled})
	}

	e.mu.Lock()
	e.cache[rulesConfig] = rules
	e.mu.Unlock()
	return rules, nil
}
