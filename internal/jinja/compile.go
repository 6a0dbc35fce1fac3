package jinja

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/helgesson/go-battgw/internal/transform"
)

// Compile translates a single-value transform into a template fragment over
// inputExpr, an expression yielding the raw string the interpreter would
// receive. Multi-value transforms must go through CompileMultiKey.
func Compile(t transform.Transform, inputExpr string) (Fragment, error) {
	c := &compiler{}
	return c.compile(t, inputExpr)
}

// compiler hands out fresh temporary names so that composed fragments never
// shadow each other's bindings.
type compiler struct {
	n int
}

func (c *compiler) fresh(prefix string) string {
	name := prefix + strconv.Itoa(c.n)
	c.n++
	return name
}

func (c *compiler) compile(t transform.Transform, input string) (Fragment, error) {
	switch t.Kind {
	case transform.KindNumber:
		return Expression(input + " | float(0)"), nil
	case transform.KindDivide:
		return Expression(fmt.Sprintf("(%s | float(0)) / %s", input, num(t.Factor))), nil
	case transform.KindMultiply:
		return Expression(fmt.Sprintf("(%s | float(0)) * %s", input, num(t.Factor))), nil
	case transform.KindBoolean:
		return Expression(boolExpr(fmt.Sprintf("(%s | int(0) | bitwise_and(1)) > 0", input))), nil
	case transform.KindBitBoolean:
		mask := 1 << t.Bit
		return Expression(boolExpr(fmt.Sprintf("(%s | int(0) | bitwise_and(%d)) > 0", input, mask))), nil
	case transform.KindEqualsBoolean:
		return Expression(boolExpr(fmt.Sprintf("%s == %s", input, q(t.Cmp)))), nil
	case transform.KindNotEqualsBoolean:
		return Expression(boolExpr(fmt.Sprintf("%s != %s", input, q(t.Cmp)))), nil
	case transform.KindTemperature:
		v := c.fresh("v")
		prologue := fmt.Sprintf("{%% set %s = %s | float(0) %%}", v, input)
		expr := fmt.Sprintf("%s - 256 if %s > 127 and %s <= 255 else %s", v, v, v, v)
		return Block(prologue, expr), nil
	case transform.KindTimeString:
		p := c.fresh("parts")
		prologue := fmt.Sprintf("{%% set %s = %s.split(':') %%}", p, input)
		expr := fmt.Sprintf("'%%02d:%%02d' | format(%s[0] | int(0), %s[1] | int(0)) if %s | length == 2 else '00:00'", p, p, p)
		return Block(prologue, expr), nil
	case transform.KindNegate:
		return Expression(fmt.Sprintf("-(%s | float(0))", input)), nil
	case transform.KindParseInt:
		return Expression(input + " | int(0)"), nil
	case transform.KindIdentity:
		return Expression(input), nil
	case transform.KindMap:
		return c.compileMap(t, input), nil
	case transform.KindRound:
		// The round filter's default method is banker's rounding; spelling
		// out floor(v+0.5) keeps half-ties on the same side as the decoder.
		if t.HasDecimals && t.Decimals > 0 {
			p := int(math.Pow(10, float64(t.Decimals)))
			return Expression(fmt.Sprintf("(((%s | float(0)) * %d + 0.5) | round(0, 'floor')) / %d", input, p, p)), nil
		}
		return Expression(fmt.Sprintf("((%s | float(0)) + 0.5) | round(0, 'floor') | int", input)), nil
	case transform.KindChain:
		return c.compileChain(t, input)
	case transform.KindTimePeriodField:
		return c.compileTimePeriod(t, input)
	case transform.KindMpptPVField:
		return c.compileMpptPV(t, input)
	case transform.KindBitMaskToWeekday:
		d := c.fresh("days")
		prologue := fmt.Sprintf(
			"{%% set %s = namespace(s='') %%}"+
				"{%% for i in range(7) %%}"+
				"{%% if %s | int(0) | bitwise_and(2**i) %%}"+
				"{%% set %s.s = %s.s ~ i %%}"+
				"{%% endif %%}"+
				"{%% endfor %%}",
			d, input, d, d)
		return Block(prologue, d+".s"), nil
	default:
		return Fragment{}, fmt.Errorf("transform %s is multi-key, use CompileMultiKey", t.Kind)
	}
}

func (c *compiler) compileMap(t transform.Transform, input string) Fragment {
	m := c.fresh("mapped")
	var sb strings.Builder
	def := "''"
	if t.HasDefault {
		def = lit(t.Default)
	}
	fmt.Fprintf(&sb, "{%% set %s = %s %%}", m, def)
	for i, e := range t.Table {
		tag := "elif"
		if i == 0 {
			tag = "if"
		}
		fmt.Fprintf(&sb, "{%% %s %s == %s %%}{%% set %s = %s %%}", tag, input, q(e.Key), m, lit(e.Value))
	}
	sb.WriteString("{% endif %}")
	return Block(sb.String(), m)
}

// compileChain folds the steps left to right. Expression steps splice their
// inner text straight into the next step's input; block steps capture their
// rendered text into a temporary first.
func (c *compiler) compileChain(t transform.Transform, input string) (Fragment, error) {
	if len(t.Steps) == 0 {
		return Expression(input), nil
	}
	var prologue strings.Builder
	cur := input
	var last Fragment
	for i, step := range t.Steps {
		if step.IsMultiKey() {
			return Fragment{}, fmt.Errorf("chain: multi-key transform %s not allowed inside chain", step.Kind)
		}
		f, err := c.compile(step, cur)
		if err != nil {
			return Fragment{}, err
		}
		if i == len(t.Steps)-1 {
			last = f
			break
		}
		if f.IsBlock() {
			name := c.fresh("tmp")
			prologue.WriteString(f.prologue)
			fmt.Fprintf(&prologue, "{%% set %s %%}{{ %s }}{%% endset %%}", name, f.expr)
			cur = name
		} else {
			cur = "(" + f.expr + ")"
		}
	}
	full := prologue.String() + last.prologue
	if full == "" {
		return Expression(last.expr), nil
	}
	return Block(full, last.expr), nil
}

func (c *compiler) compileTimePeriod(t transform.Transform, input string) (Fragment, error) {
	p := c.fresh("parts")
	prologue := fmt.Sprintf("{%% set %s = %s.split('|') %%}", p, input)
	guard := p + " | length >= 7"
	switch t.Field {
	case transform.PeriodStartTime:
		return Block(prologue, timeExpr(p, 0, 1, guard)), nil
	case transform.PeriodEndTime:
		return Block(prologue, timeExpr(p, 2, 3, guard)), nil
	case transform.PeriodWeekday:
		d := c.fresh("days")
		loop := fmt.Sprintf(
			"{%% set %s = namespace(s='') %%}"+
				"{%% if %s %%}"+
				"{%% for i in range(7) %%}"+
				"{%% if %s[4] | int(0) | bitwise_and(2**i) %%}"+
				"{%% set %s.s = %s.s ~ i %%}"+
				"{%% endif %%}"+
				"{%% endfor %%}"+
				"{%% else %%}"+
				"{%% set %s.s = '0123456' %%}"+
				"{%% endif %%}",
			d, guard, p, d, d, d)
		return Block(prologue+loop, d+".s"), nil
	case transform.PeriodPower:
		return Block(prologue, fmt.Sprintf("%s[5] | int(0) if %s else 0", p, guard)), nil
	case transform.PeriodEnabled:
		return Block(prologue, fmt.Sprintf("'true' if %s and %s[6] == '1' else 'false'", guard, p)), nil
	default:
		return Fragment{}, fmt.Errorf("timePeriodField: unknown field %q", t.Field)
	}
}

func timeExpr(p string, hourIdx, minuteIdx int, guard string) string {
	return fmt.Sprintf("'%%d:%%02d' | format(%s[%d] | int(0), %s[%d] | int(0)) if %s else '00:00'",
		p, hourIdx, p, minuteIdx, guard)
}

func (c *compiler) compileMpptPV(t transform.Transform, input string) (Fragment, error) {
	idx := 0
	switch t.Field {
	case transform.PVVoltage:
		idx = 0
	case transform.PVCurrent:
		idx = 1
	case transform.PVPower:
		idx = 2
	default:
		return Fragment{}, fmt.Errorf("mpptPvField: unknown field %q", t.Field)
	}
	p := c.fresh("parts")
	prologue := fmt.Sprintf("{%% set %s = %s.split('|') %%}", p, input)
	expr := fmt.Sprintf("(%s[%d] | int(0)) / 10 if %s | length >= 3 else 0", p, idx, p)
	return Block(prologue, expr), nil
}

// boolExpr renders a boolean condition as the literal text true/false so the
// template output matches the interpreter's formatting.
func boolExpr(cond string) string {
	return fmt.Sprintf("'true' if %s else 'false'", cond)
}

// q single-quotes a string literal for use inside a template expression.
func q(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// lit renders a Go value as a template literal. Booleans become quoted
// true/false text to match the interpreter's rendering.
func lit(v any) string {
	switch x := v.(type) {
	case string:
		return q(x)
	case bool:
		return q(strconv.FormatBool(x))
	case float64:
		return num(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return q(fmt.Sprint(x))
	}
}
