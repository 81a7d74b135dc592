// ABOUTME: Pattern rules and keyword weight tables used by the Classifier
// ABOUTME: Rules carry an explicit tier and numeric priority; tables can be extended from YAML
package core

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harper/finrouter/internal/models"
)

// RuleTier separates narrow domain rules from broad catch-all phrasings.
// Every specific rule is evaluated before any generic rule.
type RuleTier string

const (
	TierSpecific RuleTier = "specific"
	TierGeneric  RuleTier = "generic"
)

func (t RuleTier) order() int {
	if t == TierGeneric {
		return 1
	}
	return 0
}

// Rule is a pattern that, when it matches, routes straight to its handler
type Rule struct {
	Name     string           `yaml:"name"`
	Handler  models.HandlerID `yaml:"handler"`
	Pattern  string           `yaml:"pattern"`
	Exclude  string           `yaml:"exclude,omitempty"`
	Priority int              `yaml:"priority"`
	Tier     RuleTier         `yaml:"tier"`

	re      *regexp.Regexp
	exclude *regexp.Regexp
}

// Match reports whether the rule accepts the (lowercased) text
func (r *Rule) Match(text string) bool {
	if r.re == nil || !r.re.MatchString(text) {
		return false
	}
	if r.exclude != nil && r.exclude.MatchString(text) {
		return false
	}
	return true
}

// Keyword is a weighted term for keyword scoring. Terms sharing a Table are
// scored together: a handler's score is its best table's matched weight over
// that table's total weight.
type Keyword struct {
	Term   string
	Weight int
	Table  string

	re *regexp.Regexp
}

// CustomTable receives flat keyword terms from a rules file that are not in any table yet
const CustomTable = "custom"

// RuleSet holds compiled rules (in evaluation order) and keyword tables
type RuleSet struct {
	Rules    []*Rule
	Keywords map[models.HandlerID][]Keyword
}

// Compile validates and compiles every rule and keyword, then sorts rules into
// evaluation order: tier, then priority, then declaration order.
func (rs *RuleSet) Compile() error {
	for _, r := range rs.Rules {
		if !r.Handler.IsValid() {
			return fmt.Errorf("rule %q: unknown handler %q", r.Name, r.Handler)
		}
		if r.Tier == "" {
			r.Tier = TierSpecific
		}
		if r.Tier != TierSpecific && r.Tier != TierGeneric {
			return fmt.Errorf("rule %q: unknown tier %q", r.Name, r.Tier)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.re = re
		if r.Exclude != "" {
			ex, err := regexp.Compile("(?i)" + r.Exclude)
			if err != nil {
				return fmt.Errorf("rule %q exclude: %w", r.Name, err)
			}
			r.exclude = ex
		}
	}

	sort.SliceStable(rs.Rules, func(i, j int) bool {
		a, b := rs.Rules[i], rs.Rules[j]
		if a.Tier.order() != b.Tier.order() {
			return a.Tier.order() < b.Tier.order()
		}
		return a.Priority < b.Priority
	})

	for id, kws := range rs.Keywords {
		if !id.IsValid() {
			return fmt.Errorf("keyword table for unknown handler %q", id)
		}
		for i := range kws {
			if kws[i].Weight <= 0 {
				return fmt.Errorf("keyword %q for %s: weight must be positive", kws[i].Term, id)
			}
			term := strings.ToLower(strings.TrimSpace(kws[i].Term))
			kws[i].Term = term
			kws[i].re = regexp.MustCompile(`(?i)(?:^|\W)` + regexp.QuoteMeta(term) + `(?:\W|$)`)
		}
	}
	return nil
}

// Tables returns a handler's keyword table names in declaration order
func (rs *RuleSet) Tables(id models.HandlerID) []string {
	var names []string
	seen := map[string]bool{}
	for _, kw := range rs.Keywords[id] {
		if !seen[kw.Table] {
			seen[kw.Table] = true
			names = append(names, kw.Table)
		}
	}
	return names
}

// TableWeight is the maximum score one keyword table of a handler can reach
func (rs *RuleSet) TableWeight(id models.HandlerID, table string) int {
	total := 0
	for _, kw := range rs.Keywords[id] {
		if kw.Table == table {
			total += kw.Weight
		}
	}
	return total
}

// ruleFile is the YAML layout of a rules file
type ruleFile struct {
	ReplaceKeywords bool                                           `yaml:"replace_keywords"`
	Rules           []*Rule                                        `yaml:"rules"`
	Keywords        map[models.HandlerID]map[string]int            `yaml:"keywords"`
	KeywordTables   map[models.HandlerID]map[string]map[string]int `yaml:"keyword_tables"`
}

// LoadRuleSet reads a YAML rules file and merges it over the default tables.
// Extra rules are appended. Flat keywords override the weight of an existing
// term in every table that holds it, and new flat terms join the handler's
// custom table. keyword_tables adds or replaces whole tables. replace_keywords
// drops the default tables first.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	rs := defaultRuleSet()
	rs.Rules = append(rs.Rules, rf.Rules...)

	if rf.ReplaceKeywords && (len(rf.Keywords) > 0 || len(rf.KeywordTables) > 0) {
		rs.Keywords = map[models.HandlerID][]Keyword{}
	}
	for id, tables := range rf.KeywordTables {
		rs.Keywords[id] = mergeTables(rs.Keywords[id], tables)
	}
	for id, terms := range rf.Keywords {
		rs.Keywords[id] = mergeKeywords(rs.Keywords[id], terms)
	}

	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return rs, nil
}

func mergeKeywords(base []Keyword, overrides map[string]int) []Keyword {
	for _, term := range sortedKeys(overrides) {
		key := strings.ToLower(term)
		found := false
		for i := range base {
			if strings.ToLower(base[i].Term) == key {
				base[i].Weight = overrides[term]
				found = true
			}
		}
		if !found {
			base = append(base, Keyword{Term: key, Weight: overrides[term], Table: CustomTable})
		}
	}
	return base
}

// mergeTables replaces each named table with the given terms
func mergeTables(base []Keyword, tables map[string]map[string]int) []Keyword {
	for _, name := range sortedKeys(tables) {
		kept := base[:0:0]
		for _, k := range base {
			if k.Table != name {
				kept = append(kept, k)
			}
		}
		base = append(kept, table(name, tables[name])...)
	}
	return base
}

// sortedKeys keeps merged tables independent of map iteration order
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRuleSet returns the built-in compiled rule tables
func DefaultRuleSet() *RuleSet {
	rs := defaultRuleSet()
	if err := rs.Compile(); err != nil {
		panic(fmt.Sprintf("built-in rule set does not compile: %v", err))
	}
	return rs
}

func kw(pairs map[string]int) []Keyword {
	return table("", pairs)
}

// table builds one keyword table, terms sorted
func table(name string, pairs map[string]int) []Keyword {
	out := make([]Keyword, 0, len(pairs))
	for _, t := range sortedKeys(pairs) {
		out = append(out, Keyword{Term: t, Weight: pairs[t], Table: name})
	}
	return out
}

// tables concatenates keyword tables in declaration order
func tables(parts ...[]Keyword) []Keyword {
	var out []Keyword
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Priority bands. Lower is evaluated first within a tier.
//
//	100 portfolio intent   200 goal intent   300 research intent
//	400 market phrasing    500 ticker and company mentions
//	900 generic education phrasing
func defaultRuleSet() *RuleSet {
	rules := []*Rule{
		// Portfolio: the user talks about holdings they own
		{Name: "portfolio-status", Handler: models.HandlerPortfolio, Priority: 100,
			Pattern: `(?:how (?:is|did)|what's|analyze) my portfolio`},
		{Name: "portfolio-metric", Handler: models.HandlerPortfolio, Priority: 101,
			Pattern: `my portfolio(?:'s)? (?:performance|return|diversification|risk|value|allocation)`},
		{Name: "portfolio-holdings", Handler: models.HandlerPortfolio, Priority: 102,
			Pattern: `analyze my (?:holdings|investments|positions)`},
		{Name: "portfolio-balance", Handler: models.HandlerPortfolio, Priority: 103,
			Pattern: `(?:am i|is my portfolio) (?:diversified|concentrated|balanced)`},
		{Name: "portfolio-benchmark", Handler: models.HandlerPortfolio, Priority: 104,
			Pattern: `compare (?:my )?portfolio (?:to|vs|against) (?:s&p|benchmark|market)`},
		{Name: "portfolio-rebalance", Handler: models.HandlerPortfolio, Priority: 105,
			Pattern: `rebalanc(?:e|ing) (?:my )?portfolio`},
		{Name: "portfolio-my-positions", Handler: models.HandlerPortfolio, Priority: 106,
			Pattern: `\bmy (?:stocks|shares|holdings|positions)\b`},

		// Goal planning
		{Name: "goal-save-for", Handler: models.HandlerGoalPlanning, Priority: 200,
			Pattern: `(?:i want to|i need to|help me) save (?:for|up)`},
		{Name: "goal-create", Handler: models.HandlerGoalPlanning, Priority: 201,
			Pattern: `(?:create|set|make|plan|build) (?:a )?(?:financial )?goal`},
		{Name: "goal-how-much", Handler: models.HandlerGoalPlanning, Priority: 202,
			Pattern: `how much (?:do i need to|should i|must i) save`},
		{Name: "goal-saving-for", Handler: models.HandlerGoalPlanning, Priority: 203,
			Pattern: `saving for (?:a )?(?:house|home|car|education|college|wedding|retirement|vacation)`},
		{Name: "goal-retirement", Handler: models.HandlerGoalPlanning, Priority: 204,
			Pattern: `retirement (?:goal|planning|savings|fund)`},
		{Name: "goal-on-track", Handler: models.HandlerGoalPlanning, Priority: 205,
			Pattern: `(?:am i|is my goal) on track`},
		{Name: "goal-prioritize", Handler: models.HandlerGoalPlanning, Priority: 206,
			Pattern: `prioritize (?:my )?goals`},
		{Name: "goal-update", Handler: models.HandlerGoalPlanning, Priority: 207,
			Pattern: `update (?:my )?goal`},
		{Name: "goal-progress", Handler: models.HandlerGoalPlanning, Priority: 208,
			Pattern: `(?:goal|savings) (?:progress|status|update)`},

		// News: research before investing
		{Name: "news-should-invest", Handler: models.HandlerNews, Priority: 300,
			Pattern: `should i invest in \w+`},
		{Name: "news-considering", Handler: models.HandlerNews, Priority: 301,
			Pattern: `(?:thinking about|considering|researching) investing`},
		{Name: "news-risks", Handler: models.HandlerNews, Priority: 302,
			Pattern: `what are (?:the )?(?:investment )?risks? (?:of|for|in) \w+`},
		{Name: "news-thesis", Handler: models.HandlerNews, Priority: 303,
			Pattern: `investment (?:thesis|case|opportunity|analysis) (?:for|of|on)`},
		{Name: "news-timing", Handler: models.HandlerNews, Priority: 304,
			Pattern: `is (?:now|this|it) (?:a )?good time to (?:invest|buy)`},
		{Name: "news-bull-bear", Handler: models.HandlerNews, Priority: 305,
			Pattern: `(?:bull|bear) case (?:for|of|on) \w+`},
		{Name: "news-compare-investments", Handler: models.HandlerNews, Priority: 306,
			Pattern: `compare .+ (?:for investment|to invest|as an? investment)`},
		{Name: "news-due-diligence", Handler: models.HandlerNews, Priority: 307,
			Pattern: `due diligence (?:on|for) \w+`},
		{Name: "news-watchlist", Handler: models.HandlerNews, Priority: 308,
			Pattern: `watchlist (?:news|updates?)`},

		// Market phrasing
		{Name: "market-price-query", Handler: models.HandlerMarket, Priority: 400,
			Pattern: `(?:what(?:'s| is)|what's the|get|show|tell me) (?:the )?\w+(?:'s)? (?:stock |etf )?(?:price|max|high|low|close|open)\b`},
		{Name: "market-price-mention", Handler: models.HandlerMarket, Priority: 401,
			Pattern: `\w+ (?:stock|etf) (?:price|high|low)|\b52.week\b|\bstock price\b`},
		{Name: "market-performance-of", Handler: models.HandlerMarket, Priority: 402,
			Pattern: `(?:what(?:'s| is)|show|get) (?:the )?(?:performance|returns?|gains?) (?:of|for|on)`},
		{Name: "market-has-performed", Handler: models.HandlerMarket, Priority: 403,
			Pattern: `(?:how|what) (?:has|have|is|are) .+? (?:performed|performing|returned)`},
		{Name: "market-period-return", Handler: models.HandlerMarket, Priority: 404,
			Pattern: `\b(?:1|5|10) (?:year|yr|y) (?:performance|return|gains?)|(?:lifetime|historical|past) (?:performance|returns?)`},
		{Name: "market-overview", Handler: models.HandlerMarket, Priority: 405,
			Pattern: `what(?:'s| is) the market (?:doing|performance|status)|how (?:is|are) (?:the )?(?:s&p|nasdaq|dow|(?:stock )?market|indices)`},
		{Name: "market-sector", Handler: models.HandlerMarket, Priority: 406,
			Pattern: `(?:sector|industry) performance`},
		{Name: "market-technicals", Handler: models.HandlerMarket, Priority: 407,
			Pattern: `technical analysis (?:of|for) \w+|\b(?:rsi|moving average|macd|beta|volatility) (?:of|for) \w+|(?:stock|market) technicals`},
		{Name: "market-fundamentals", Handler: models.HandlerMarket, Priority: 408,
			Pattern: `compare (?:the )?fundamentals (?:of|for|between)`},
		{Name: "market-earnings", Handler: models.HandlerMarket, Priority: 409,
			Pattern: `earnings (?:calendar|report|announcement)|market (?:overview|sentiment|breadth|conditions)`},

		// Market entity mentions. Broad, so they sit below every intent rule.
		{Name: "market-stock-ticker", Handler: models.HandlerMarket, Priority: 500,
			Pattern: `\b(?:aapl|tsla|msft|googl|goog|amzn|nvda|meta|nflx|crm|amd|intc|orcl|ibm|dis|wmt|jpm|bac)\b`},
		{Name: "market-etf-ticker", Handler: models.HandlerMarket, Priority: 501,
			Pattern: `\b(?:voo|vti|spy|qqq|ivv|vea|vwo|agg|bnd|vig|vym|schd|vug|vtv)\b`},
		{Name: "market-company-stock", Handler: models.HandlerMarket, Priority: 502,
			Pattern: `\b(?:apple|tesla|microsoft|google|amazon|nvidia|meta|netflix|oracle|intel|boeing|disney|walmart|jpmorgan)\s+(?:stock|shares?)\b`},
		{Name: "market-fund-family", Handler: models.HandlerMarket, Priority: 503,
			Pattern: `\b(?:vanguard|ishares|spdr|schwab|fidelity) .+? (?:etf|fund)\b`},

		// Education: broad explanatory phrasing, evaluated last
		{Name: "education-what-is", Handler: models.HandlerEducation, Priority: 900, Tier: TierGeneric,
			Pattern: `\bwhat (?:is|are|does) (?:a |an |the )?\S`,
			Exclude: `\bwhat (?:is|are|does) (?:a |an |the )?(?:my\b|market\b|the market\b)`},
		{Name: "education-explain", Handler: models.HandlerEducation, Priority: 901, Tier: TierGeneric,
			Pattern: `\b(?:explain|define|describe|clarify) (?:what |how |why )?\S`,
			Exclude: `\b(?:explain|define|describe|clarify) (?:what |how |why )?(?:my\b|the market\b)`},
		{Name: "education-how-works", Handler: models.HandlerEducation, Priority: 902, Tier: TierGeneric,
			Pattern: `how (?:do|does) .+? work`},
		{Name: "education-difference", Handler: models.HandlerEducation, Priority: 903, Tier: TierGeneric,
			Pattern: `difference between`},
		{Name: "education-teach-me", Handler: models.HandlerEducation, Priority: 904, Tier: TierGeneric,
			Pattern: `tell me about|teach me about|help me understand|(?:learn|understand) (?:about |how |what )`},
	}

	// Each table is one topic. A message that covers a topic fully scores 1.0
	// for that handler, so keep tables small and avoid synonyms within a table.
	keywords := map[models.HandlerID][]Keyword{
		models.HandlerPortfolio: tables(
			table("holdings", map[string]int{"portfolio": 3, "holdings": 3}),
			table("diversification", map[string]int{"diversification": 3, "concentration": 3}),
			table("allocation", map[string]int{"allocation": 3, "rebalance": 3}),
			table("risk", map[string]int{"risk": 3, "volatility": 3}),
			table("benchmark", map[string]int{"benchmark": 3, "invested": 2}),
		),
		models.HandlerGoalPlanning: tables(
			table("retirement", map[string]int{"retirement": 3, "target": 2, "years": 1}),
			table("savings", map[string]int{"save": 3, "monthly": 2, "budget": 1}),
			table("emergency", map[string]int{"emergency fund": 3, "months": 2}),
			table("home", map[string]int{"down payment": 3, "afford": 2, "house": 1}),
			table("goals", map[string]int{"goals": 3, "priority": 2}),
		),
		models.HandlerMarket: tables(
			table("indices", map[string]int{"s&p": 3, "nasdaq": 3, "dow": 1}),
			table("technicals", map[string]int{"rsi": 3, "macd": 3, "moving average": 2}),
			table("fundamentals", map[string]int{"earnings": 3, "revenue": 3, "p/e": 2}),
			table("sectors", map[string]int{"sector": 3, "momentum": 2}),
			table("prices", map[string]int{"price": 2, "ytd": 2, "52-week": 1}),
		),
		models.HandlerNews: tables(
			table("headlines", map[string]int{"news": 3, "recent": 2, "developments": 1}),
			table("opportunity", map[string]int{"opportunity": 3, "investment": 2}),
			table("risks", map[string]int{"risks": 3, "downside": 3}),
			table("cases", map[string]int{"bull case": 3, "bear case": 3}),
			table("watchlist", map[string]int{"watchlist": 3, "considering": 2}),
		),
		models.HandlerEducation: tables(
			table("learning", map[string]int{"learn": 3, "concept": 2}),
			table("basics", map[string]int{"basics": 3, "beginner": 3}),
			table("mechanics", map[string]int{"understand": 3, "works": 2}),
		),
	}

	return &RuleSet{Rules: rules, Keywords: keywords}
}
