package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/value"
)

// WriteJSON streams res as {"collection": [item, ...], ...}.
func WriteJSON(ctx context.Context, w io.Writer, res *engine.Result, opts ...Option) error {
	cfg := newConfig(opts)
	bw := bufio.NewWriter(w)
	jw := &jsonWriter{w: bw, indent: cfg.indent}

	jw.raw("{")
	written := 0
	for _, name := range res.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		seq, ok := res.Collection(name)
		if !ok {
			continue
		}
		if written > 0 {
			jw.raw(",")
		}
		written++
		jw.newline(1)
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		jw.raw(string(key))
		jw.raw(":")
		if jw.indent != "" {
			jw.raw(" ")
		}
		if err := jw.collection(ctx, seq); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	if written > 0 {
		jw.newline(0)
	}
	jw.raw("}\n")
	if jw.err != nil {
		return jw.err
	}
	return bw.Flush()
}

type jsonWriter struct {
	w      *bufio.Writer
	indent string
	err    error
}

func (j *jsonWriter) raw(s string) {
	if j.err == nil {
		_, j.err = j.w.WriteString(s)
	}
}

func (j *jsonWriter) newline(depth int) {
	if j.indent == "" {
		return
	}
	j.raw("\n")
	for range depth {
		j.raw(j.indent)
	}
}

func (j *jsonWriter) collection(ctx context.Context, seq engine.Sequence) error {
	j.raw("[")
	err := seq.Stream(func(i int, item *value.Object) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			j.raw(",")
		}
		j.newline(2)
		data, err := value.Marshal(item)
		if err != nil {
			return err
		}
		if j.indent != "" {
			var buf bytes.Buffer
			if err := json.Indent(&buf, data, j.indent+j.indent, j.indent); err != nil {
				return err
			}
			data = buf.Bytes()
		}
		j.raw(string(data))
		return j.err
	})
	if err != nil {
		return err
	}
	if seq.Len() > 0 {
		j.newline(1)
	}
	j.raw("]")
	return j.err
}
