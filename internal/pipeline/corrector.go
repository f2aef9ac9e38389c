package pipeline

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
)

// Corrector is a marketplace-specific correction strategy: given a violated
// rule and the offending value, it proposes a replacement value or declines.
type Corrector interface {
	Fix(rule canonical.Rule, value interface{}) (interface{}, bool)
}

var (
	correctorsMu sync.RWMutex
	correctors   = map[string]Corrector{}
)

// RegisterCorrector installs the strategy for a marketplace, replacing any
// previous one.
func RegisterCorrector(marketplace string, c Corrector) {
	correctorsMu.Lock()
	correctors[strings.ToLower(marketplace)] = c
	correctorsMu.Unlock()
}

// correctorFor picks the marketplace's strategy, falling back to the generic
// one so an unknown marketplace still gets safe corrections.
func correctorFor(marketplace string) Corrector {
	correctorsMu.RLock()
	defer correctorsMu.RUnlock()
	if c, ok := correctors[strings.ToLower(marketplace)]; ok {
		return c
	}
	return correctors[""]
}

// StandardCorrector fixes what can be fixed mechanically: fills required
// fields from per-field defaults, generates SKUs with a marketplace prefix,
// and truncates over-long strings to the rule's limit.
type StandardCorrector struct {
	// Defaults supplies a literal per field for failed REQUIRED rules.
	Defaults map[string]interface{}
	// SKUField, when set, gets a generated identifier instead of a default.
	SKUField  string
	SKUPrefix string
}

func (c *StandardCorrector) Fix(rule canonical.Rule, value interface{}) (interface{}, bool) {
	switch rule.RuleType {
	case canonical.RuleRequired:
		if c.SKUField != "" && rule.FieldName == c.SKUField {
			return c.SKUPrefix + strings.ToUpper(uuid.NewString()[:8]), true
		}
		if d, ok := c.Defaults[rule.FieldName]; ok {
			return d, true
		}
		return nil, false

	case canonical.RuleMaxLength:
		limit, err := cast.ToIntE(rule.Params[canonical.ParamMaxLength])
		if err != nil || limit <= 0 {
			return nil, false
		}
		s := cast.ToString(value)
		runes := []rune(s)
		if len(runes) <= limit {
			return nil, false
		}
		return string(runes[:limit]), true
	}
	return nil, false
}

func init() {
	// Generic fallback: truncate only, no invented defaults.
	RegisterCorrector("", &StandardCorrector{})
	RegisterCorrector("meli", &StandardCorrector{
		Defaults:  map[string]interface{}{"condition": "new"},
		SKUField:  "sku",
		SKUPrefix: "MLB-",
	})
}
