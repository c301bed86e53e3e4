// Copyright © 2023-2024 The mashdist Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mash

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

// Executor abstracts the invocation of the external mash binary so tests
// can substitute a fake without shelling out.
type Executor interface {
	// Run executes the command and returns captured stdout and stderr.
	Run(name string, args ...string) (stdout string, stderr string, err error)

	// RunStream executes the command with stdout copied to w. Each stderr
	// line is passed to onLine as it arrives (onLine may be nil); the full
	// stderr text is returned for diagnostics.
	RunStream(w io.Writer, onLine func(string), name string, args ...string) (stderr string, err error)
}

// SysExecutor runs commands with os/exec.
type SysExecutor struct{}

func (SysExecutor) Run(name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (SysExecutor) RunStream(w io.Writer, onLine func(string), name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = w

	pipe, err := cmd.StderrPipe()
	if err != nil {
		return "", errors.Wrapf(err, "open stderr pipe of %s", name)
	}
	if err = cmd.Start(); err != nil {
		return "", errors.Wrapf(err, "start %s", name)
	}

	var captured bytes.Buffer
	scanner := bufio.NewScanner(io.TeeReader(pipe, &captured))
	scanner.Buffer(make([]byte, 0, 16384), 1<<20)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	scanErr := scanner.Err()

	err = cmd.Wait()
	if err == nil && scanErr != nil {
		err = errors.Wrapf(scanErr, "read stderr of %s", name)
	}
	return captured.String(), err
}

// ErrInconsistentSketch indicates an existing sketch file that was not
// generated from the current set of genomes.
var ErrInconsistentSketch = errors.New("mash: sketch file not consistent with input genomes")

// ErrDBParamMismatch indicates a reference sketch database built with
// different sketching parameters than the ones requested.
var ErrDBParamMismatch = errors.New("mash: sketch database parameter mismatch")

// ExecError reports a failed invocation of the mash binary along with the
// diagnostic output captured from the process.
type ExecError struct {
	Subcommand string
	Stderr     string
	Err        error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("error running mash %s", e.Subcommand)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }
