package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of a guardrail check. Reason and Category are set
// only when the command is blocked; Line is the zero-based index of the
// offending line for configuration sequences, -1 otherwise.
type Verdict struct {
	Allowed  bool
	Reason   string
	Category string
	Line     int
}

func allowed() Verdict {
	return Verdict{Allowed: true, Line: -1}
}

func blocked(category, reason string, line int) Verdict {
	return Verdict{Allowed: false, Category: category, Reason: reason, Line: line}
}

// Engine classifies commands against deny rulesets. It has no device or
// network awareness: verdicts are a pure function of the input and the
// ruleset, so every check is testable offline. Matching is token based, not
// a command grammar; compound commands joined by shell-like separators are
// treated as one opaque string.
type Engine struct {
	show   Ruleset
	config Ruleset
}

// NewEngine builds an engine from the given rulesets.
func NewEngine(show, config Ruleset) *Engine {
	return &Engine{show: show, config: config}
}

// NewDefaultEngine builds an engine with the built-in policy data.
func NewDefaultEngine() *Engine {
	return NewEngine(ShowRuleset(), ConfigRuleset())
}

// normalize trims, case-folds and collapses whitespace.
func normalize(command string) string {
	return strings.Join(strings.Fields(strings.ToLower(command)), " ")
}

// match reports whether a normalized command hits a deny pattern.
// Single-token patterns match whole tokens; multi-token patterns match a
// contiguous token run.
func match(norm string, pattern DenyPattern) bool {
	p := normalize(pattern.Pattern)
	if !strings.Contains(p, " ") {
		for _, tok := range strings.Fields(norm) {
			if tok == p {
				return true
			}
		}
		return false
	}
	return strings.Contains(" "+norm+" ", " "+p+" ")
}

// ValidateShow checks one line destined for a read-only diagnostic context.
// Empty input is a no-op and passes. If no deny pattern matches, the
// command is allowed.
func (e *Engine) ValidateShow(command string) Verdict {
	norm := normalize(command)
	if norm == "" {
		return allowed()
	}
	if e.show.BlockPipes && strings.ContainsAny(command, "|><") {
		return blocked("pipe/redirect",
			fmt.Sprintf("command %q blocked: pipes and redirects are not permitted", strings.TrimSpace(command)), -1)
	}
	for _, deny := range e.show.Deny {
		if match(norm, deny) {
			return blocked(deny.Category,
				fmt.Sprintf("command %q blocked by %s guardrail (matched %q)",
					strings.TrimSpace(command), deny.Category, deny.Pattern), -1)
		}
	}
	return allowed()
}

// ValidateConfig checks an ordered configuration sequence line by line in
// caller order, short-circuiting at the first violation. The first blocked
// line is the one reported; later lines are never evaluated.
func (e *Engine) ValidateConfig(lines []string) Verdict {
	for i, line := range lines {
		norm := normalize(line)
		if norm == "" {
			continue
		}
		if e.config.BlockPipes && strings.ContainsAny(line, "|><") {
			return blocked("pipe/redirect",
				fmt.Sprintf("config line %d (%q) blocked: pipes and redirects are not permitted", i, strings.TrimSpace(line)), i)
		}
		for _, deny := range e.config.Deny {
			if match(norm, deny) {
				return blocked(deny.Category,
					fmt.Sprintf("config line %d (%q) blocked by %s guardrail (matched %q)",
						i, strings.TrimSpace(line), deny.Category, deny.Pattern), i)
			}
		}
	}
	return allowed()
}

var pingTargetRE = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// MaxPingCount bounds the repeat count accepted for ping operations.
const MaxPingCount = 1000

// ValidatePing checks a ping target and packet count. The target is
// interpolated into a device command, so anything outside plain
// hostname/address characters is rejected.
func (e *Engine) ValidatePing(target string, count int) Verdict {
	target = strings.TrimSpace(target)
	if target == "" {
		return blocked("input validation", "ping target is required", -1)
	}
	if !pingTargetRE.MatchString(target) {
		return blocked("input validation",
			fmt.Sprintf("ping target %q blocked: only hostname and address characters are permitted", target), -1)
	}
	if count < 1 || count > MaxPingCount {
		return blocked("input validation",
			fmt.Sprintf("ping count %d out of range (1-%d)", count, MaxPingCount), -1)
	}
	return allowed()
}
