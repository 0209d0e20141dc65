package guardrail

// DenyPattern is one entry of versioned security policy data: a normalized
// token pattern and the human-readable category reported when it matches.
// Single-word patterns match any whitespace-separated token of the command;
// multi-word patterns match as a contiguous token sequence.
type DenyPattern struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

// Ruleset is the deny policy applied to one command class.
type Ruleset struct {
	Name       string        `json:"name"`
	Deny       []DenyPattern `json:"deny"`
	BlockPipes bool          `json:"block_pipes"`
}

// ShowRuleset returns the deny policy for the read path. The patterns block
// configuration entry, reload, file mutation and interactive forms that
// could mutate state or hang a read-only session. Overly broad matches are
// the accepted tradeoff; a destructive command must never pass.
func ShowRuleset() Ruleset {
	return Ruleset{
		Name:       "show",
		BlockPipes: true,
		Deny: []DenyPattern{
			{Pattern: "configure", Category: "configuration entry"},
			{Pattern: "reload", Category: "reload"},
			{Pattern: "reboot", Category: "reload"},
			{Pattern: "write", Category: "configuration write"},
			{Pattern: "copy", Category: "file copy"},
			{Pattern: "delete", Category: "file delete"},
			{Pattern: "erase", Category: "file erase"},
			{Pattern: "format", Category: "filesystem format"},
			{Pattern: "debug", Category: "interactive debug"},
			{Pattern: "monitor", Category: "interactive session"},
			{Pattern: "terminal", Category: "terminal control"},
		},
	}
}

// ConfigRuleset returns the deny policy for configuration lines: a superset
// tuned for config mode, covering configuration erase, reload, factory
// reset, key destruction and removal of management access.
func ConfigRuleset() Ruleset {
	return Ruleset{
		Name: "config",
		Deny: []DenyPattern{
			{Pattern: "write erase", Category: "configuration erase"},
			{Pattern: "erase", Category: "configuration erase"},
			{Pattern: "reload", Category: "reload"},
			{Pattern: "reboot", Category: "reload"},
			{Pattern: "format", Category: "filesystem format"},
			{Pattern: "delete", Category: "file delete"},
			{Pattern: "factory-reset", Category: "factory reset"},
			{Pattern: "init", Category: "factory reset"},
			{Pattern: "crypto key zeroize", Category: "key destruction"},
			{Pattern: "license boot", Category: "license tampering"},
			{Pattern: "no line vty", Category: "management access removal"},
			{Pattern: "no username", Category: "credential removal"},
		},
	}
}
