package ecosystem

// Override replaces (or, with a nil Replacement, clears) the
// effective template resolved for TemplateKey by Ecosystem.Overrides.
type Override struct {
	TemplateKey string
	Replacement *Template
}

// Overrides commits a new override table atomically: every live
// instance whose effective template actually changes is destroyed,
// and its dependents re-evaluate against the new table on their next
// flush.
func (e *Ecosystem) Overrides(list []Override) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	changedKeys := make(map[string]bool)
	for _, ov := range list {
		cur, hasCur := e.overridesByKey[ov.TemplateKey]
		switch {
		case ov.Replacement == nil:
			if hasCur {
				changedKeys[ov.TemplateKey] = true
			}
		case !hasCur, cur.Key != ov.Replacement.Key, !sameFactory(cur.Factory, ov.Replacement.Factory):
			changedKeys[ov.TemplateKey] = true
		}
	}

	var affected []string
	for id, inst := range e.instances {
		if inst.activeState != StateDestroyed && changedKeys[inst.templateKey] {
			affected = append(affected, id)
		}
	}

	for _, ov := range list {
		if ov.Replacement == nil {
			delete(e.overridesByKey, ov.TemplateKey)
		} else {
			e.overridesByKey[ov.TemplateKey] = ov.Replacement
		}
	}

	for _, id := range affected {
		e.logEvent(EventOverrideApplied, map[string]any{"instance": id})

		if e.isRunningFactory(id) {
			// defer the swap until the in-flight factory run
			// completes; runFactory's deferred cleanup checks this.
			e.pendingOverrideEnd[id] = true
			continue
		}

		e.destroyLocked(id, true)
	}

	e.sched.Schedule()
	return nil
}

func (e *Ecosystem) isRunningFactory(id string) bool {
	for _, frame := range e.stack {
		if frame.instance.id == id {
			return true
		}
	}
	return false
}
