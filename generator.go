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
	"context"
	"errors"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/semaphore"
	"google.golang.org/protobuf/types/descriptorpb"
)

// GeneratedFile is one output of a generation run.
type GeneratedFile struct {
	// Name is the output file name, derived from the schema package.
	Name string
	// Content is the complete rendered source.
	Content []byte
}

// Generator turns a set of file descriptors into generated source files.
// The zero value uses a default configuration; a Generator is cheap and
// need not be reused.
type Generator struct {
	// Config controls type mapping, boxing, attributes, and output layout.
	// Nil means defaults throughout.
	Config *Config

	// MaxParallelism caps the number of files generated concurrently.
	// Values less than one select a limit based on available CPUs.
	MaxParallelism int
}

type fileResult struct {
	ready chan struct{}
	out   *GeneratedFile
	err   error
}

// Generate produces one output file per matching input descriptor. All
// given files participate in type resolution and cycle analysis; only
// those matching the configured file patterns are rendered. Results appear
// in input order. Generation is all-or-nothing: any failure discards the
// batch and is returned.
func (g *Generator) Generate(ctx context.Context, files ...*descriptorpb.FileDescriptorProto) ([]*GeneratedFile, error) {
	cfg := g.Config
	if cfg == nil {
		cfg = &Config{}
	}
	sess, err := newSession(cfg, files)
	if err != nil {
		return nil, err
	}

	var outputs []*descriptorpb.FileDescriptorProto
	for _, fd := range files {
		if cfg.matchesPatterns(fd.GetName()) {
			outputs = append(outputs, fd)
		}
	}

	par := g.MaxParallelism
	if par <= 0 {
		par = min(runtime.GOMAXPROCS(-1), runtime.NumCPU())
	}
	sem := semaphore.NewWeighted(int64(par))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*fileResult, len(outputs))
	for i := range outputs {
		results[i] = &fileResult{ready: make(chan struct{})}
	}
	for i, fd := range outputs {
		fd := fd
		res := results[i]
		go func() {
			defer close(res.ready)
			if err := sem.Acquire(ctx, 1); err != nil {
				res.err = err
				return
			}
			defer sem.Release(1)
			res.out, res.err = sess.generateFile(fd)
			if res.err != nil {
				cancel()
			}
		}()
	}

	generated := make([]*GeneratedFile, 0, len(outputs))
	var firstErr error
	for _, res := range results {
		<-res.ready
		if res.err != nil {
			// Cancellation errors only echo whichever failure triggered
			// them; keep the real cause.
			if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(res.err, context.Canceled)) {
				firstErr = res.err
			}
			continue
		}
		generated = append(generated, res.out)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return generated, nil
}

func (c *Config) matchesPatterns(name string) bool {
	if len(c.filePatterns) == 0 {
		return true
	}
	for _, pattern := range c.filePatterns {
		// Patterns were validated when the session was built.
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
