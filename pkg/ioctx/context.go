// Package ioctx carries the standard streams through a context so commands
// can be exercised against buffers.
package ioctx

import (
	"context"
	"io"
	"strings"
)

type stream int

const (
	stdin stream = iota
	stdout
	stderr
)

type key struct{ stream stream }

// WithStdio places all three streams on the context at once.
func WithStdio(ctx context.Context, in io.Reader, out, errOut io.Writer) context.Context {
	ctx = StdinToContext(ctx, in)
	ctx = StdoutToContext(ctx, out)
	return StderrToContext(ctx, errOut)
}

// StdinFromContext returns the input stream, or an empty reader so that
// formatting stdin without one set reads an empty document.
func StdinFromContext(ctx context.Context) io.Reader {
	if r, ok := ctx.Value(key{stdin}).(io.Reader); ok {
		return r
	}
	return strings.NewReader("")
}

func StdinToContext(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, key{stdin}, r)
}

// StdoutFromContext returns where formatted output goes, discarding it if
// unset.
func StdoutFromContext(ctx context.Context) io.Writer {
	return writer(ctx, stdout)
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, key{stdout}, w)
}

// StderrFromContext returns where logs and check reports go, discarding them
// if unset.
func StderrFromContext(ctx context.Context) io.Writer {
	return writer(ctx, stderr)
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, key{stderr}, w)
}

func writer(ctx context.Context, s stream) io.Writer {
	if w, ok := ctx.Value(key{s}).(io.Writer); ok {
		return w
	}
	return io.Discard
}
