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

package partition

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-shellwords"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/retry"
	"go.uber.org/zap"
)

// ExternalSolver is a general purpose graph partitioning solver. A nil
// assignment with a nil error means the solver has no answer. Whatever it
// returns is checked before use and replaced by the heuristic result if it
// is unusable.
type ExternalSolver interface {
	Partition(ctx context.Context, g *graph.Graph, k int) (*model.Assignment, error)
}

// Identifier is implemented by solvers whose answers depend on how they are
// set up, such as the command they run.
type Identifier interface {
	Identity() string
}

// SolverIdentity names solver for cache keys. Solvers that do not
// implement Identifier are named after their type.
func SolverIdentity(solver ExternalSolver) string {
	switch s := solver.(type) {
	case nil:
		return ""
	case Identifier:
		return s.Identity()
	default:
		return fmt.Sprintf("%T", solver)
	}
}

// ExternalFunc adapts a function to ExternalSolver.
type ExternalFunc func(ctx context.Context, g *graph.Graph, k int) (*model.Assignment, error)

// Partition implements ExternalSolver.
func (f ExternalFunc) Partition(ctx context.Context, g *graph.Graph, k int) (*model.Assignment, error) {
	return f(ctx, g, k)
}

// DefaultExecTimeout bounds a single ExecSolver invocation.
const DefaultExecTimeout = 30 * time.Second

// ExecSolver runs an external command as solver. The command receives
// {"stages": K, "graph": <graph record>} as JSON on stdin and answers with
// {"stages": {"<node id>": <stage>, ...}} on stdout. An empty answer, or
// one without stages, means no answer.
type ExecSolver struct {
	args    []string
	timeout time.Duration
	tries   int
}

// ExecOption configures an ExecSolver.
type ExecOption func(*ExecSolver)

// WithExecTries makes the solver rerun a command that fails or times out,
// up to tries runs in total.
func WithExecTries(tries int) ExecOption {
	return func(s *ExecSolver) {
		if tries > 0 {
			s.tries = tries
		}
	}
}

type execRequest struct {
	Stages int           `json:"stages"`
	Graph  *graph.Record `json:"graph"`
}

type execResponse struct {
	Stages map[string]int `json:"stages"`
}

// NewExecSolver parses command with shell quoting rules.
func NewExecSolver(command string, timeout time.Duration, opts ...ExecOption) (*ExecSolver, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrInvalidConfig, err, "external solver command")
	}
	if len(args) == 0 {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs("external solver command is empty")
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	s := &ExecSolver{args: args, timeout: timeout, tries: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Identity implements Identifier, two solvers running the same argument
// list share an identity.
func (s *ExecSolver) Identity() string {
	return fmt.Sprintf("exec%q", s.args)
}

// Partition implements ExternalSolver.
func (s *ExecSolver) Partition(ctx context.Context, g *graph.Graph, k int) (*model.Assignment, error) {
	input, err := json.Marshal(&execRequest{Stages: k, Graph: g.ToRecord()})
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrExternalSolver, err, "encode request")
	}

	var out []byte
	err = retry.Do(ctx, func() error {
		var runErr error
		out, runErr = s.run(ctx, input, k)
		return runErr
	}, retry.WithMaxTries(s.tries),
		retry.WithBackoffBaseDelay(100*time.Millisecond),
		retry.WithBackoffMaxDelay(2*time.Second),
		retry.WithIsRetryableErr(func(error) bool { return ctx.Err() == nil }))
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, nil
	}
	var resp execResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, cerror.WrapError(cerror.ErrExternalSolver, err, "decode response")
	}
	if resp.Stages == nil {
		return nil, nil
	}
	a := model.NewAssignment(k)
	for id, stage := range resp.Stages {
		a.Set(id, stage)
	}
	return a, nil
}

// run executes the command once and returns its trimmed stdout.
func (s *ExecSolver) run(ctx context.Context, input []byte, k int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug("external solver finished",
		zap.Strings("command", s.args),
		zap.Int("stages", k),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrExternalSolver, err,
			strings.TrimSpace(stderr.String()))
	}
	return bytes.TrimSpace(stdout.Bytes()), nil
}
