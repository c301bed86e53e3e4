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
	"errors"
	"os"
	"strings"
	"testing"
)

func newTestSketches(t *testing.T) (*SketchFile, *SketchFile) {
	t.Helper()
	qry := &SketchFile{
		Genomes: map[string]string{"q1": "/a/q1.fna"},
		Path:    "/sketches/qry.msh",
	}
	ref := &SketchFile{
		Genomes: map[string]string{"r1": "/b/r1.fna", "r2": "/b/r2.fna"},
		Path:    "/sketches/ref.msh",
	}
	return qry, ref
}

func TestDistanceFile(t *testing.T) {
	qry, ref := newTestSketches(t)
	fake := &fakeExec{distOut: "/b/r1.fna\t/a/q1.fna\t0.05\t0.0001\t10/400\n" +
		"/b/r2.fna\t/a/q1.fna\t0.09\t0.001\t2/400\n"}
	opt := &Options{Executor: fake, Threads: 2}

	tmp := t.TempDir()
	d, err := NewDistanceFile(qry, ref, tmp, "run1", 0.1, 1.0, opt)
	if err != nil {
		t.Fatalf("NewDistanceFile: %v", err)
	}

	// reference sketch first, query sketch second
	args := strings.Join(fake.calls[0], " ")
	if !strings.Contains(args, ref.Path+" "+qry.Path) {
		t.Errorf("dist invocation %q should pass reference before query", args)
	}
	for _, want := range []string{"-p 2", "-d 0.1", "-v 1"} {
		if !strings.Contains(args, want) {
			t.Errorf("dist invocation %q misses %q", args, want)
		}
	}

	data, err := os.ReadFile(d.Path)
	if err != nil {
		t.Fatalf("distance result file not written: %v", err)
	}
	if string(data) != fake.distOut {
		t.Errorf("unexpected result file content: %q", data)
	}

	results, err := d.Read(0.1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	hits := results["/a/q1.fna"]
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hit := hits["r1.fna"]; hit != (Hit{0.05, 0.0001, 10, 400}) {
		t.Errorf("unexpected hit for r1.fna: %+v", hit)
	}
	if hit := hits["r2.fna"]; hit != (Hit{0.09, 0.001, 2, 400}) {
		t.Errorf("unexpected hit for r2.fna: %+v", hit)
	}
}

func TestDistanceFileReadFilter(t *testing.T) {
	qry, ref := newTestSketches(t)
	fake := &fakeExec{distOut: "/b/r1.fna\t/a/q1.fna\t0.05\t0.0001\t10/400\n"}

	d, err := NewDistanceFile(qry, ref, t.TempDir(), "run1", 0.1, 1.0, &Options{Executor: fake})
	if err != nil {
		t.Fatal(err)
	}

	// the read-time threshold is independent of the -d passed to mash
	results, err := d.Read(0.01)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("hit with distance 0.05 not excluded by threshold 0.01: %+v", results)
	}
}

func TestDistanceFileReadSkipsNonDataLines(t *testing.T) {
	qry, ref := newTestSketches(t)
	fake := &fakeExec{distOut: "#query\treference\tdistance\n" +
		"some warning emitted into stdout\n" +
		"/b/r1.fna\t/a/q1.fna\t0.05\t0.0001\t10/400\n" +
		"\n"}

	d, err := NewDistanceFile(qry, ref, t.TempDir(), "run1", 0.1, 1.0, &Options{Executor: fake})
	if err != nil {
		t.Fatal(err)
	}
	results, err := d.Read(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results["/a/q1.fna"]) != 1 {
		t.Errorf("non-data lines should be skipped silently, got %+v", results)
	}
}

func TestDistanceFileFailure(t *testing.T) {
	qry, ref := newTestSketches(t)
	fake := &fakeExec{distErr: true, distStderr: "mash: dist exploded"}

	d, err := NewDistanceFile(qry, ref, t.TempDir(), "run1", 0.1, 1.0, &Options{Executor: fake})
	if err == nil {
		t.Fatal("expected error from failing dist invocation")
	}
	if d != nil {
		t.Error("DistanceFile returned despite failure")
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("got error %v, want *ExecError", err)
	}
	if !strings.Contains(err.Error(), "mash: dist exploded") {
		t.Errorf("error %q does not carry captured stderr", err)
	}
}

func TestDistanceFileFailureRemovesPartialFile(t *testing.T) {
	qry, ref := newTestSketches(t)
	fake := &fakeExec{distErr: true}

	tmp := t.TempDir()
	_, err := NewDistanceFile(qry, ref, tmp, "run1", 0.1, 1.0, &Options{Executor: fake})
	if err == nil {
		t.Fatal("expected error")
	}

	// a later read must not consume a stale partial result file
	if _, statErr := os.Stat(tmp + "/run1." + DistanceFileName); !os.IsNotExist(statErr) {
		t.Error("partial distance result file left behind after failure")
	}
}
