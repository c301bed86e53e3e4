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
	"strconv"
	"strings"
)

// Hit is one row of 'mash dist' output: the estimated distance between a
// query and a reference sketch.
type Hit struct {
	Dist    float64
	PValue  float64
	SharedN int // matched hashes
	SharedD int // total hashes compared
}

// parseDistLine parses one tab-delimited line of 'mash dist' output:
//
//	reference<TAB>query<TAB>distance<TAB>p-value<TAB>shared/total
//
// ok is false for lines not matching this shape (blank lines, headers),
// and for records violating 0 <= distance <= 1 or shared > total.
func parseDistLine(line string, items *[]string) (ref string, qry string, hit Hit, ok bool) {
	if line == "" || line[0] == '#' {
		return "", "", hit, false
	}
	if line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}

	stringSplitNByByte(line, '\t', 6, items)
	if len(*items) != 5 {
		return "", "", hit, false
	}

	var err error
	if hit.Dist, err = strconv.ParseFloat((*items)[2], 64); err != nil {
		return "", "", hit, false
	}
	if hit.PValue, err = strconv.ParseFloat((*items)[3], 64); err != nil {
		return "", "", hit, false
	}

	i := strings.IndexByte((*items)[4], '/')
	if i < 0 {
		return "", "", hit, false
	}
	if hit.SharedN, err = strconv.Atoi((*items)[4][:i]); err != nil {
		return "", "", hit, false
	}
	if hit.SharedD, err = strconv.Atoi((*items)[4][i+1:]); err != nil {
		return "", "", hit, false
	}

	if hit.Dist < 0 || hit.Dist > 1 || hit.SharedN > hit.SharedD {
		return "", "", hit, false
	}

	return (*items)[0], (*items)[1], hit, true
}

// InfoEntry is one genome entry embedded in a sketch file, as reported by
// 'mash info -t'.
type InfoEntry struct {
	Path   string
	Hashes int
	Length int
}

// parseInfoLine parses one tab-delimited line of 'mash info -t' output:
//
//	hashes<TAB>length<TAB>path[<TAB>comment]
//
// The header line starts with '#' and is skipped.
func parseInfoLine(line string, items *[]string) (entry InfoEntry, ok bool) {
	if line == "" || line[0] == '#' {
		return entry, false
	}
	if line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}

	stringSplitNByByte(line, '\t', 4, items)
	if len(*items) < 3 {
		return entry, false
	}

	var err error
	if entry.Hashes, err = strconv.Atoi((*items)[0]); err != nil {
		return entry, false
	}
	if entry.Length, err = strconv.Atoi((*items)[1]); err != nil {
		return entry, false
	}
	entry.Path = (*items)[2]
	if entry.Path == "" {
		return entry, false
	}

	return entry, true
}

func stringSplitNByByte(s string, sep byte, n int, a *[]string) {
	if a == nil {
		tmp := make([]string, n)
		a = &tmp
	}

	// a previous call may have trimmed the reused buffer
	*a = (*a)[:cap(*a)]

	n--
	i := 0
	for i < n {
		m := strings.IndexByte(s, sep)
		if m < 0 {
			break
		}
		(*a)[i] = s[:m]
		s = s[m+1:]
		i++
	}
	(*a)[i] = s

	(*a) = (*a)[:i+1]
}
