package aggnet

// detectDuplicate decides whether an inbound request is already covered by
// live state. True means "fully handled": either a pure retransmission or
// a request-aggregation merge; no further processing may run.
func (e *Engine) detectDuplicate(ent *entry, in Face) bool {
	// The entry was already forwarded, or its intake finished another way
	// (piggybacked, waiting, stalled): never forward again.
	if len(ent.up) > 0 || ent.intakeDone {
		if _, ok := ent.down[in.ID()]; ok {
			e.stats.retransmissions.Add(1)
			e.log.Debug("retransmission suppressed", "name", ent.name.String(), "face", in.ID())
			return true
		}
		ent.down[in.ID()] = in
		e.stats.aggregated.Add(1)
		e.log.Debug("request aggregated", "name", ent.name.String(), "face", in.ID())
		return true
	}

	// Defensive cross-entry check: some other live entry with an identical
	// name was already forwarded. The arena keys entries by name, so this
	// should not happen; if it does, do not forward twice.
	dup := false
	e.store.each(func(other *entry) bool {
		if other != ent && !other.satisfied && other.name.Equal(ent.name) && len(other.up) > 0 {
			dup = true
			return false
		}
		return true
	})
	if dup {
		e.log.Warn("duplicate across entries", "name", ent.name.String())
	}
	return dup
}
