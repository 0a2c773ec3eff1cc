package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ErrorSampler reduces log noise from an upstream that keeps failing the
// same way. The first occurrence of a key is logged, then every Nth.
type ErrorSampler struct {
	mu       sync.Mutex
	counts   map[string]int
	interval int
	logger   *slog.Logger
}

// NewErrorSampler creates a sampler logging every interval-th occurrence.
// A nil logger means slog.Default().
func NewErrorSampler(interval int, logger *slog.Logger) *ErrorSampler {
	if interval < 1 {
		interval = 10
	}
	return &ErrorSampler{
		counts:   make(map[string]int),
		interval: interval,
		logger:   logger,
	}
}

// ShouldLog counts one occurrence of key and reports whether to log it.
func (s *ErrorSampler) ShouldLog(key string) bool {
	_, ok := s.observe(key)
	return ok
}

// Warn logs msg at warn level if this occurrence of key is sampled. The
// running count is attached as "occurrences".
func (s *ErrorSampler) Warn(ctx context.Context, key, msg string, args ...any) {
	count, ok := s.observe(key)
	if !ok {
		return
	}
	s.log().WarnContext(ctx, msg, append(args, "occurrences", count)...)
}

// Error is Warn at error level.
func (s *ErrorSampler) Error(ctx context.Context, key, msg string, args ...any) {
	count, ok := s.observe(key)
	if !ok {
		return
	}
	s.log().ErrorContext(ctx, msg, append(args, "occurrences", count)...)
}

// Count returns how many times key was observed since the last reset.
func (s *ErrorSampler) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Reset forgets key, typically after the upstream recovered.
func (s *ErrorSampler) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
}

func (s *ErrorSampler) observe(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	count := s.counts[key]
	return count, count == 1 || count%s.interval == 0
}

func (s *ErrorSampler) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
