package main

import (
	"github.com/nrask/ecosystem"
	"github.com/nrask/ecosystem/config"
)

func countTemplate() *ecosystem.Template {
	return &ecosystem.Template{
		Key: "count",
		Factory: func(inj *ecosystem.Injection, params ...any) any {
			return inj.Store(0)
		},
	}
}

// buildDemo wires a small counter/double graph, acquires both
// instances, subscribes to double, and pushes one state change
// through — enough activity for dump/graph to have something to show.
// It also returns the count template itself, so callers can re-resolve
// it through GetNode after installing an override.
func buildDemo(cfg config.Config) (*ecosystem.Ecosystem, *ecosystem.Template, *ecosystem.Instance, *ecosystem.Instance) {
	eco := ecosystem.New(ecosystem.WithConfig(cfg))

	count := countTemplate()
	double := &ecosystem.Template{
		Key: "double",
		Factory: func(inj *ecosystem.Injection, params ...any) any {
			return inj.Get(count).(int) * 2
		},
	}

	doubleInst, _ := eco.GetNode(double)
	countInst, _ := eco.GetNode(count)

	unsub, _ := doubleInst.Subscribe(func(any) {})
	_ = unsub

	countInst.SetState(5)

	return eco, count, countInst, doubleInst
}
