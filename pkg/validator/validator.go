// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package validator

import (
	"fmt"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/model"
	"go.uber.org/multierr"
)

// Kind classifies a schedule violation.
type Kind string

// Violation kinds
const (
	KindOutOfRange       Kind = "out-of-range"
	KindMissing          Kind = "missing"
	KindDuplicate        Kind = "duplicate"
	KindSlotConflict     Kind = "slot-conflict"
	KindDependency       Kind = "dependency"
	KindMakespanMismatch Kind = "makespan-mismatch"
)

// Violation is one way a schedule breaks its contract.
type Violation struct {
	Kind    Kind   `json:"kind" msgpack:"kind"`
	Message string `json:"message" msgpack:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

type stageStep struct {
	stage, step int
}

// Validate checks sched against sg and returns every violation found, in a
// deterministic order. An empty result means the schedule is valid.
func Validate(sg *model.StageGraph, sched *model.Schedule) []Violation {
	var out []Violation
	report := func(kind Kind, format string, args ...interface{}) {
		out = append(out, Violation{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}
	if sg == nil || sched == nil {
		report(KindMissing, "stage graph or schedule is absent")
		return out
	}

	k, n := sg.NumStages(), sched.MicroBatches
	if sched.Stages != k {
		report(KindOutOfRange, "schedule covers %d stages, stage graph has %d", sched.Stages, k)
	}
	if n < 1 {
		report(KindOutOfRange, "micro-batch count %d is not positive", n)
	}

	steps := make(map[model.Unit]int, len(sched.Slots))
	occupied := make(map[stageStep]model.Unit, len(sched.Slots))
	for _, slot := range sched.Slots {
		u := slot.Unit
		if !sg.ValidStage(u.Stage) || u.MicroBatch < 0 || u.MicroBatch >= n ||
			(u.Direction != model.Forward && u.Direction != model.Backward) || slot.Step < 0 {
			report(KindOutOfRange, "%s at step %d is out of range", u, slot.Step)
			continue
		}
		if prev, ok := steps[u]; ok {
			report(KindDuplicate, "%s scheduled at steps %d and %d", u, prev, slot.Step)
			continue
		}
		steps[u] = slot.Step
		key := stageStep{u.Stage, slot.Step}
		if other, ok := occupied[key]; ok {
			report(KindSlotConflict, "%s and %s both run on stage %d at step %d", other, u, u.Stage, slot.Step)
			continue
		}
		occupied[key] = u
	}

	for _, e := range sg.Edges {
		switch {
		case !sg.ValidStage(e.Src) || !sg.ValidStage(e.Dst):
			report(KindOutOfRange, "stage edge %d -> %d references a stage out of range", e.Src, e.Dst)
		case e.Src == e.Dst:
			report(KindOutOfRange, "stage edge %d -> %d is a self edge", e.Src, e.Dst)
		}
	}

	preds, succs := sg.Predecessors(), sg.Successors()
	for s := 0; s < k; s++ {
		for m := 0; m < n; m++ {
			f := model.Unit{Stage: s, MicroBatch: m, Direction: model.Forward}
			b := model.Unit{Stage: s, MicroBatch: m, Direction: model.Backward}
			fStep, fok := steps[f]
			bStep, bok := steps[b]
			if !fok {
				report(KindMissing, "%s is not scheduled", f)
			}
			if !bok {
				report(KindMissing, "%s is not scheduled", b)
			}
			if fok {
				for _, p := range preds[s] {
					if p == s {
						continue
					}
					dep := model.Unit{Stage: p, MicroBatch: m, Direction: model.Forward}
					if d, ok := steps[dep]; ok && d >= fStep {
						report(KindDependency, "%s at step %d does not precede %s at step %d", dep, d, f, fStep)
					}
				}
			}
			if bok {
				if fok && fStep >= bStep {
					report(KindDependency, "%s at step %d does not precede %s at step %d", f, fStep, b, bStep)
				}
				for _, q := range succs[s] {
					if q == s {
						continue
					}
					dep := model.Unit{Stage: q, MicroBatch: m, Direction: model.Backward}
					if d, ok := steps[dep]; ok && d >= bStep {
						report(KindDependency, "%s at step %d does not precede %s at step %d", dep, d, b, bStep)
					}
				}
			}
		}
	}

	if want := model.ComputeMakespan(sched.Slots); sched.Makespan != want {
		report(KindMakespanMismatch, "declared makespan %d, slots end at %d", sched.Makespan, want)
	}
	return out
}

// Check validates sched and returns ErrScheduleInvalid wrapping every
// violation, or nil when the schedule is valid.
func Check(sg *model.StageGraph, sched *model.Schedule) error {
	violations := Validate(sg, sched)
	if len(violations) == 0 {
		return nil
	}
	var combined error
	for _, v := range violations {
		combined = multierr.Append(combined, v)
	}
	return cerror.WrapError(cerror.ErrScheduleInvalid, combined, len(violations))
}
