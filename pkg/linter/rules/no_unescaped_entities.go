package rules

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xivanalysis/xivlint/pkg/jsast"
	"github.com/xivanalysis/xivlint/pkg/linter"
)

// NoUnescapedEntitiesName is the registered name of NoUnescapedEntitiesRule
const NoUnescapedEntitiesName = "react/no-unescaped-entities"

var errInvalidForbid = errors.New("invalid forbid entry")

// forbiddenEntity is a character that must not appear raw in JSX text.
// Entities without alternatives come from plain string options.
type forbiddenEntity struct {
	char         string
	alternatives []string
}

var defaultForbiddenEntities = []forbiddenEntity{
	{char: ">", alternatives: []string{"&gt;"}},
	{char: `"`, alternatives: []string{"&quot;", "&ldquo;", "&#34;", "&rdquo;"}},
	{char: "'", alternatives: []string{"&apos;", "&lsquo;", "&#39;", "&rsquo;"}},
	{char: "}", alternatives: []string{"&#125;"}},
}

// NoUnescapedEntitiesRule reports characters in JSX text that should be
// written as HTML entities.
type NoUnescapedEntitiesRule struct {
	BaseRule
}

// NewNoUnescapedEntitiesRule creates a new unescaped entities rule
func NewNoUnescapedEntitiesRule() *NoUnescapedEntitiesRule {
	return &NoUnescapedEntitiesRule{
		BaseRule: BaseRule{
			RuleName:        NoUnescapedEntitiesName,
			RuleCategory:    linter.CategoryPresentation,
			RuleSeverity:    linter.SeverityError,
			RuleDescription: "Disallow unescaped HTML entities from appearing in markup",
		},
	}
}

// ValidateOptions accepts a single {forbid: [...]} object
func (r *NoUnescapedEntitiesRule) ValidateOptions(options []interface{}) error {
	_, err := parseForbiddenEntities(options)
	return err
}

// Check reports every forbidden character of every JSX text node
func (r *NoUnescapedEntitiesRule) Check(file *jsast.File, ctx *linter.LintContext) {
	entities, err := parseForbiddenEntities(ctx.Options)
	if err != nil {
		return
	}

	jsast.Inspect(file.Root(), func(n *sitter.Node) bool {
		if n.Type() != "jsx_text" {
			return true
		}
		text := file.Text(n)
		start := jsast.PositionOf(n)
		for _, entity := range entities {
			for i := 0; i < len(text); {
				j := strings.Index(text[i:], entity.char)
				if j < 0 {
					break
				}
				ctx.ReportAt(start.Advance(text[:i+j]), entity.message())
				i += j + len(entity.char)
			}
		}
		return false
	})
}

func (e forbiddenEntity) message() string {
	if len(e.alternatives) == 0 {
		return fmt.Sprintf("HTML entity, `%s` , must be escaped.", e.char)
	}
	alts := make([]string, len(e.alternatives))
	for i, alt := range e.alternatives {
		alts[i] = "`" + alt + "`"
	}
	return fmt.Sprintf("`%s` can be escaped with %s.", e.char, strings.Join(alts, ", "))
}

func parseForbiddenEntities(options []interface{}) ([]forbiddenEntity, error) {
	if len(options) == 0 {
		return defaultForbiddenEntities, nil
	}
	if len(options) > 1 {
		return nil, fmt.Errorf("expected at most one option object, got %d", len(options))
	}

	obj, ok := options[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an option object, got %T", options[0])
	}
	for key := range obj {
		if key != "forbid" {
			return nil, fmt.Errorf("unknown option %q", key)
		}
	}
	raw, ok := obj["forbid"]
	if !ok {
		return defaultForbiddenEntities, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: forbid must be a list, got %T", errInvalidForbid, raw)
	}

	entities := make([]forbiddenEntity, 0, len(items))
	for _, item := range items {
		entity, err := parseForbiddenEntity(item)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func parseForbiddenEntity(item interface{}) (forbiddenEntity, error) {
	switch v := item.(type) {
	case string:
		if v == "" {
			return forbiddenEntity{}, fmt.Errorf("%w: empty character", errInvalidForbid)
		}
		return forbiddenEntity{char: v}, nil
	case map[string]interface{}:
		char, ok := v["char"].(string)
		if !ok || char == "" {
			return forbiddenEntity{}, fmt.Errorf("%w: char is required", errInvalidForbid)
		}
		entity := forbiddenEntity{char: char}
		alts, _ := v["alternatives"].([]interface{})
		for _, alt := range alts {
			s, ok := alt.(string)
			if !ok {
				return forbiddenEntity{}, fmt.Errorf("%w: alternatives must be strings", errInvalidForbid)
			}
			entity.alternatives = append(entity.alternatives, s)
		}
		return entity, nil
	default:
		return forbiddenEntity{}, fmt.Errorf("%w: %v", errInvalidForbid, item)
	}
}
