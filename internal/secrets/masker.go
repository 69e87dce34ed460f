// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Redacted replaces secret values.
const Redacted = "***"

// minLineLength is the shortest line of a multi-line secret masked on its own.
const minLineLength = 16

// Masker replaces known secret values in strings. It is safe for concurrent use.
type Masker struct {
	mu   sync.RWMutex
	seen map[string]struct{}
	// secrets is ordered longest first so a secret that contains another
	// is replaced whole.
	secrets []string
}

// NewMasker creates an empty masker.
func NewMasker() *Masker {
	return &Masker{seen: make(map[string]struct{})}
}

// AddSecret registers a value to be masked. Long lines of a multi-line
// value (such as a PEM body) are registered individually too.
func (m *Masker) AddSecret(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(value)
	if strings.Contains(value, "\n") {
		for _, line := range strings.Split(value, "\n") {
			if line = strings.TrimSpace(line); len(line) >= minLineLength {
				m.add(line)
			}
		}
	}
	sort.SliceStable(m.secrets, func(i, j int) bool {
		return len(m.secrets[i]) > len(m.secrets[j])
	})
}

func (m *Masker) add(value string) {
	if _, ok := m.seen[value]; ok {
		return
	}
	m.seen[value] = struct{}{}
	m.secrets = append(m.secrets, value)
}

// Mask replaces all known secrets in s with "***".
func (m *Masker) Mask(s string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, secret := range m.secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, Redacted)
		}
	}
	return s
}

// Handler wraps next so that messages and attribute values are masked
// before they are written.
func (m *Masker) Handler(next slog.Handler) slog.Handler {
	return &maskingHandler{next: next, masker: m}
}

type maskingHandler struct {
	next   slog.Handler
	masker *Masker
}

func (h *maskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, h.masker.Mask(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *maskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.maskAttr(a)
	}
	return &maskingHandler{next: h.next.WithAttrs(masked), masker: h.masker}
}

func (h *maskingHandler) WithGroup(name string) slog.Handler {
	return &maskingHandler{next: h.next.WithGroup(name), masker: h.masker}
}

func (h *maskingHandler) maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.masker.Mask(v.String()))
	case slog.KindGroup:
		group := v.Group()
		masked := make([]any, len(group))
		for i, ga := range group {
			masked[i] = h.maskAttr(ga)
		}
		return slog.Group(a.Key, masked...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.masker.Mask(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
