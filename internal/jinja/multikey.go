package jinja

import (
	"fmt"
	"strings"

	"github.com/helgesson/go-battgw/internal/transform"
)

// CompileMultiKey translates a multi-value transform into a fragment over a
// set of raw values reachable from prefix, a dict-valued expression such as
// the one the frame preamble binds. Missing keys resolve to none so they can
// be filtered out; sum defaults them to 0 instead, so absence contributes
// nothing to the total.
func CompileMultiKey(t transform.Transform, keys []string, prefix string) (Fragment, error) {
	if !t.IsMultiKey() {
		return Fragment{}, fmt.Errorf("transform %s is single-value, use Compile", t.Kind)
	}
	if len(keys) == 0 {
		return Fragment{}, fmt.Errorf("multi-key transform %s needs at least one source key", t.Kind)
	}

	c := &compiler{}
	if t.Kind == transform.KindSum {
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = fmt.Sprintf("%s.get(%s) | float(0)", prefix, q(k))
		}
		return Expression(fmt.Sprintf("[%s] | sum", strings.Join(items, ", "))), nil
	}

	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = fmt.Sprintf("%s.get(%s)", prefix, q(k))
	}
	vs := c.fresh("vs")
	prologue := fmt.Sprintf("{%% set %s = [%s] | reject('none') | map('float') | list %%}",
		vs, strings.Join(items, ", "))
	guard := vs + " | length > 0"

	var reduced string
	switch t.Kind {
	case transform.KindMin:
		reduced = vs + " | min"
	case transform.KindMax:
		reduced = vs + " | max"
	case transform.KindDiff:
		reduced = fmt.Sprintf("(%s | max) - (%s | min)", vs, vs)
	case transform.KindAverage:
		reduced = fmt.Sprintf("(%s | sum) / (%s | length)", vs, vs)
		if t.RoundMean {
			// floor(v+0.5) so half-ties land where the decoder puts them.
			reduced = fmt.Sprintf("((%s) + 0.5) | round(0, 'floor') | int", reduced)
		}
	}
	if t.Scale > 0 {
		reduced = fmt.Sprintf("(%s) / %s", reduced, num(t.Scale))
	}
	return Block(prologue, fmt.Sprintf("%s if %s else 0", reduced, guard)), nil
}
