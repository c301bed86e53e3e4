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
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestRunnerRun(t *testing.T) {
	qry := map[string]string{"q1": "/a/q1.fna"}
	ref := map[string]string{"r1": "/b/r1.fna"}

	fake := &fakeExec{distOut: "/b/r1.fna\t/a/q1.fna\t0.05\t0.0001\t10/400\n"}
	runner := NewRunner(t.TempDir(), "run1", &Options{Executor: fake, KmerSize: 16, SketchSize: 1000})

	out, err := runner.Run(qry, ref, 0.1, 1.0, 0.1, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[string]map[string]Hit{
		"q1": {"r1": {0.05, 0.0001, 10, 400}},
	}
	if len(out) != len(want) || len(out["q1"]) != len(want["q1"]) || out["q1"]["r1"] != want["q1"]["r1"] {
		t.Errorf("Run = %+v, want %+v", out, want)
	}
}

func TestRunnerRunFilteredOut(t *testing.T) {
	qry := map[string]string{"q1": "/a/q1.fna"}
	ref := map[string]string{"r1": "/b/r1.fna"}

	fake := &fakeExec{distOut: "/b/r1.fna\t/a/q1.fna\t0.5\t0.0001\t10/400\n"}
	runner := NewRunner(t.TempDir(), "run1", &Options{Executor: fake})

	out, err := runner.Run(qry, ref, 1.0, 1.0, 0.1, "")
	if err != nil {
		t.Fatal(err)
	}
	// absent entries mean "no hit within threshold", not zero distance
	if len(out) != 0 {
		t.Errorf("expected empty result, got %+v", out)
	}
}

func TestRunnerRunRelocatedRefDB(t *testing.T) {
	tmp := t.TempDir()

	// reference sketch database built elsewhere: embedded paths are
	// stale, base names still match the current reference set
	dbPath := filepath.Join(tmp, "refs.msh")
	if err := os.WriteFile(dbPath, []byte("sketch"), 0644); err != nil {
		t.Fatal(err)
	}

	refPath := filepath.Join(tmp, "genomes", "r1.fna")
	qry := map[string]string{"q1": "/a/q1.fna"}
	ref := map[string]string{"r1": refPath}

	fake := &fakeExec{
		infoOut: map[string]string{dbPath: "1000\t4641652\t/old/location/r1.fna\t-\n"},
		distOut: "/old/location/r1.fna\t/a/q1.fna\t0.02\t0.0001\t300/400\n",
	}
	runner := NewRunner(tmp, "run1", &Options{Executor: fake})

	out, err := runner.Run(qry, ref, 0.1, 1.0, 0.1, dbPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if hit := out["q1"]["r1"]; hit != (Hit{0.02, 0.0001, 300, 400}) {
		t.Errorf("stale embedded path not re-keyed to current reference id: %+v", out)
	}
}

func TestRunnerRunUnknownReference(t *testing.T) {
	qry := map[string]string{"q1": "/a/q1.fna"}
	ref := map[string]string{"r1": "/b/r1.fna"}

	fake := &fakeExec{distOut: "/b/other.fna\t/a/q1.fna\t0.05\t0.0001\t10/400\n"}
	runner := NewRunner(t.TempDir(), "run1", &Options{Executor: fake})

	if _, err := runner.Run(qry, ref, 0.1, 1.0, 0.1, ""); err == nil {
		t.Fatal("expected error for a hit not resolvable to a reference id")
	}
}

func TestVersion(t *testing.T) {
	if v := Version(&Options{Executor: &fakeExec{versionOut: "2.3\n"}}); v != "2.3" {
		t.Errorf("Version = %q, want 2.3", v)
	}
	if v := Version(&Options{Executor: &fakeExec{versionErr: fmt.Errorf("executable file not found")}}); v != VersionUnknown {
		t.Errorf("Version = %q, want %q on probe failure", v, VersionUnknown)
	}
	if v := Version(&Options{Executor: &fakeExec{}}); v != VersionUnknown {
		t.Errorf("Version = %q, want %q on empty output", v, VersionUnknown)
	}
}

func TestInfo(t *testing.T) {
	fake := &fakeExec{infoOut: map[string]string{
		"/db/refs.msh": "#Hashes\tLength\tID\tComment\n" +
			"1000\t4641652\t/b/r1.fna\t-\n" +
			"900\t4539675\t/b/r2.fna\t-\n",
	}}

	entries, err := Info("/db/refs.msh", &Options{Executor: fake})
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0] != (InfoEntry{"/b/r1.fna", 1000, 4641652}) {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}

	fake.infoErr = true
	if _, err = Info("/db/refs.msh", &Options{Executor: fake}); err == nil {
		t.Error("expected error from failing info invocation")
	}
}
