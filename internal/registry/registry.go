// Package registry resolves a class by internal name across a small,
// fixed-order chain of sources, for callers of classfile/cfg that need to
// look up an owner class referenced by name rather than one they already
// hold in hand (an exception handler's catch type, a reference tuple's
// owner). It implements classfile.ClassSource; it is deliberately not a JVM
// class loader — no delegation model, no linkage/verification, just lookup
// with an in-memory cache.
package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/classfile"
)

// Source resolves one class by internal (slash-separated) name, or reports
// that it does not hold that class.
type Source interface {
	Resolve(name string) (*classfile.ClassFile, error)
}

// Chain tries each Source in order, caching the first hit. It satisfies
// classfile.ClassSource directly, so a *Chain can be dropped into
// classfile.Options.Source.
type Chain struct {
	sources []Source

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
}

// NewChain returns a Chain trying sources in the given order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources, cache: make(map[string]*classfile.ClassFile)}
}

// Resolve returns the first source's successful lookup of name, caching it.
func (c *Chain) Resolve(name string) (*classfile.ClassFile, error) {
	c.mu.Lock()
	if cf, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return cf, nil
	}
	c.mu.Unlock()

	var lastErr error
	for _, src := range c.sources {
		cf, err := src.Resolve(name)
		if err == nil {
			c.mu.Lock()
			c.cache[name] = cf
			c.mu.Unlock()
			return cf, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Newf("registry: no sources configured")
	}
	return nil, errors.Wrapf(lastErr, "resolving class %q", name)
}

// DirSource loads name+".class" files from a classpath directory.
type DirSource struct {
	Dir string
}

func (s *DirSource) Resolve(name string) (*classfile.ClassFile, error) {
	path := filepath.Join(s.Dir, name+".class")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	cf, err := classfile.Read(context.Background(), binio.NewReader(f), classfile.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cf, nil
}

// JmodSource loads classes out of a JDK .jmod archive, which is a zip
// archive prefixed by a 4-byte "JM\x01\x00" header and stores classes under
// a classes/ top-level directory.
type JmodSource struct {
	Path string

	once      sync.Once
	openErr   error
	zipReader *zip.Reader
}

func (s *JmodSource) ensureOpen() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			s.openErr = errors.Wrapf(err, "reading %s", s.Path)
			return
		}
		if len(data) < 4 {
			s.openErr = errors.Newf("jmod: %s is too short to carry the JM header", s.Path)
			return
		}
		body := data[4:] // skip "JM\x01\x00"
		s.zipReader, s.openErr = zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if s.openErr != nil {
			s.openErr = errors.Wrapf(s.openErr, "opening %s as zip", s.Path)
		}
	})
	return s.openErr
}

func (s *JmodSource) Resolve(name string) (*classfile.ClassFile, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	target := "classes/" + name + ".class"
	for _, file := range s.zipReader.File {
		if file.Name != target {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s in %s", target, s.Path)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s in %s", target, s.Path)
		}
		cf, err := classfile.Read(context.Background(), binio.NewReader(bytes.NewReader(data)), classfile.Options{})
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", target)
		}
		return cf, nil
	}
	return nil, errors.Newf("jmod: class %q not found in %s", name, s.Path)
}
