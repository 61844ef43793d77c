package admission

// Warning values carried on a Decision taken without usage counts.
const (
	WarnRuleStoreUnavailable = "rule_store_unavailable"
	WarnCounterUnavailable   = "usage_counter_unavailable"
)
