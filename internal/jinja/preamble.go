package jinja

import (
	"fmt"
	"strings"

	"github.com/helgesson/go-battgw/internal/transform"
)

// ValuesVar is the dict expression the frame preamble binds the parsed
// key/value pairs to. Field fragments compiled for self-parsing mode read
// their raw values from it.
const ValuesVar = "vals.d"

// FramePreamble emits a template block that re-implements the wire-frame
// parser inside the template engine: split the bound raw-message variable on
// commas, each piece on '=' with a single split, and accumulate pairs with
// two non-empty parts into a dict. It produces exactly the pairs
// decoder.ParseFrame would produce from the same frame, including
// last-write-wins for duplicate keys.
func FramePreamble(rawVar string) string {
	return fmt.Sprintf(
		"{%% set vals = namespace(d={}) %%}"+
			"{%% for item in %s.split(',') %%}"+
			"{%% set kv = item.split('=', 1) %%}"+
			"{%% if kv | length == 2 and kv[0] and kv[1] %%}"+
			"{%% set vals.d = dict(vals.d, **{kv[0]: kv[1]}) %%}"+
			"{%% endif %%}"+
			"{%% endfor %%}",
		rawVar)
}

// FieldTemplate builds the complete value template for one field in
// raw-frame self-parsing mode: the frame preamble, a presence guard over the
// field's source keys, and the compiled transform reading from the parsed
// dict. The guard mirrors the field assignment engine, which skips a field
// unless every source key is present; a frame of a different report kind on
// the same topic renders nothing instead of a fabricated zero. A nil
// transform defaults to number.
func FieldTemplate(t *transform.Transform, keys []string, rawVar string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("field needs at least one source key")
	}

	var frag Fragment
	var err error
	if len(keys) > 1 {
		if t == nil {
			return "", fmt.Errorf("multi-key field needs a multi-value transform")
		}
		frag, err = CompileMultiKey(*t, keys, ValuesVar)
	} else {
		tt := transform.Number()
		if t != nil {
			tt = *t
		}
		frag, err = Compile(tt, fmt.Sprintf("%s.get(%s, '')", ValuesVar, q(keys[0])))
	}
	if err != nil {
		return "", err
	}

	guards := make([]string, len(keys))
	for i, key := range keys {
		guards[i] = fmt.Sprintf("%s in %s", q(key), ValuesVar)
	}
	return FramePreamble(rawVar) +
		fmt.Sprintf("{%% if %s %%}", strings.Join(guards, " and ")) +
		frag.Render() +
		"{% endif %}", nil
}
