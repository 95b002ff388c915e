// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protogen

import (
	"sort"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protogen/decl"
)

// locations indexes a file's source-code info by structural path for
// binary-searched comment lookup during the walk.
type locations struct {
	locs []*descriptorpb.SourceCodeInfo_Location
}

func newLocations(info *descriptorpb.SourceCodeInfo) locations {
	locs := append([]*descriptorpb.SourceCodeInfo_Location(nil), info.GetLocation()...)
	sort.SliceStable(locs, func(i, j int) bool {
		return comparePaths(locs[i].GetPath(), locs[j].GetPath()) < 0
	})
	return locations{locs: locs}
}

// comments returns the documentation recorded at the structural path, or a
// zero Comments when the path has no location entry.
func (l locations) comments(path []int32) decl.Comments {
	i := sort.Search(len(l.locs), func(i int) bool {
		return comparePaths(l.locs[i].GetPath(), path) >= 0
	})
	if i >= len(l.locs) || comparePaths(l.locs[i].GetPath(), path) != 0 {
		return decl.Comments{}
	}
	loc := l.locs[i]
	return decl.Comments{
		LeadingDetached: loc.GetLeadingDetachedComments(),
		Leading:         loc.GetLeadingComments(),
		Trailing:        loc.GetTrailingComments(),
	}
}

func comparePaths(a, b []int32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
