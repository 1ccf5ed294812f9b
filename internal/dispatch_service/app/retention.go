package app

// RetentionPolicy decides whether rendered content is persisted for an environment.
type RetentionPolicy struct {
	defaultOn bool
	overrides map[string]bool
}

func NewRetentionPolicy(defaultOn bool, overrides map[string]bool) RetentionPolicy {
	return RetentionPolicy{defaultOn: defaultOn, overrides: overrides}
}

// StoreContent reports whether message content and raw content snapshots are kept.
func (p RetentionPolicy) StoreContent(environmentID string) bool {
	if on, ok := p.overrides[environmentID]; ok {
		return on
	}
	return p.defaultOn
}
