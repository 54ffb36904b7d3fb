package pulse

// Usage tracks token consumption for one completion.
//
// InputTokens excludes tokens served from the provider's prompt cache;
// those are reported separately in CacheReadTokens. Providers clamp derived
// values to zero.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	CacheReadTokens int
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + o.InputTokens,
		OutputTokens:    u.OutputTokens + o.OutputTokens,
		CacheReadTokens: u.CacheReadTokens + o.CacheReadTokens,
	}
}
