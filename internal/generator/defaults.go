package generator

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dataforge/internal/value"
)

func defaults() map[string]Generator {
	return map[string]Generator{
		"sequence": Func(generateSequence),
		"number":   Func(generateNumber),
		"float":    Func(generateFloat),
		"boolean":  Func(generateBoolean),
		"uuid":     Func(generateUUID),
		"string":   Func(generateString),
		"lorem":    Func(generateLorem),
		"date":     Func(generateDate),
		"choice":   choiceGenerator{},
		"name":     nameGenerator{},
		"internet": internetGenerator{},
		"address":  addressGenerator{},
		"company":  companyGenerator{},
		"phone":    Func(generatePhone),
		"country":  countryGenerator{},
		"finance":  financeGenerator{},
		"book":     bookGenerator{},
		"csv":      newCSVGenerator(),
	}
}

// sequence: start (1), increment (1). One counter per schema node per run.
func generateSequence(ctx *Context) (value.Value, error) {
	start, err := optionInt(ctx.Options, "start", 1)
	if err != nil {
		return nil, err
	}
	step, err := optionInt(ctx.Options, "increment", 1)
	if err != nil {
		return nil, err
	}
	return value.Int(ctx.State.Next(ctx.Key, start, step)), nil
}

// number: uniform integer in [min, max], defaults [0, 100].
func generateNumber(ctx *Context) (value.Value, error) {
	lo, err := optionInt(ctx.Options, "min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := optionInt(ctx.Options, "max", 100)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("field '%s': number max %d is below min %d", ctx.Field, hi, lo)
	}
	return value.Int(lo + ctx.Rand.Int64N(hi-lo+1)), nil
}

// float: uniform in [min, max), rounded to decimals (2).
func generateFloat(ctx *Context) (value.Value, error) {
	lo, err := optionFloat(ctx.Options, "min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := optionFloat(ctx.Options, "max", 1)
	if err != nil {
		return nil, err
	}
	decimals, err := optionInt(ctx.Options, "decimals", 2)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("field '%s': float max %v is below min %v", ctx.Field, hi, lo)
	}
	f := lo + ctx.Rand.Float64()*(hi-lo)
	scale := math.Pow(10, float64(decimals))
	return value.Float(math.Round(f*scale) / scale), nil
}

// boolean: true with the given probability (0.5).
func generateBoolean(ctx *Context) (value.Value, error) {
	p, err := optionFloat(ctx.Options, "probability", 0.5)
	if err != nil {
		return nil, err
	}
	return value.Bool(ctx.Rand.Float64() < p), nil
}

// uuid: random (version 4) UUID drawn from the seeded source.
func generateUUID(ctx *Context) (value.Value, error) {
	id, err := uuid.NewRandomFromReader(randReader{ctx.Rand})
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", ctx.Field, err)
	}
	return value.String(id.String()), nil
}

// randReader exposes a rand.Rand as an io.Reader.
type randReader struct {
	r *rand.Rand
}

func (rr randReader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], rr.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// string: random characters from alphabet; length, or minLength..maxLength.
func generateString(ctx *Context) (value.Value, error) {
	alphabet, err := optionString(ctx.Options, "alphabet", alphanumeric)
	if err != nil {
		return nil, err
	}
	if alphabet == "" {
		return nil, fmt.Errorf("field '%s': string alphabet is empty", ctx.Field)
	}
	n, err := optionInt(ctx.Options, "length", -1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		lo, err := optionInt(ctx.Options, "minLength", 10)
		if err != nil {
			return nil, err
		}
		hi, err := optionInt(ctx.Options, "maxLength", lo)
		if err != nil {
			return nil, err
		}
		if hi < lo || lo < 0 {
			return nil, fmt.Errorf("field '%s': invalid string length range [%d, %d]", ctx.Field, lo, hi)
		}
		n = lo + ctx.Rand.Int64N(hi-lo+1)
	}
	runes := []rune(alphabet)
	var b strings.Builder
	for i := int64(0); i < n; i++ {
		b.WriteRune(runes[ctx.Rand.IntN(len(runes))])
	}
	return value.String(b.String()), nil
}

// lorem: space-separated filler words (5).
func generateLorem(ctx *Context) (value.Value, error) {
	n, err := optionInt(ctx.Options, "words", 5)
	if err != nil {
		return nil, err
	}
	words := make([]string, n)
	for i := range words {
		words[i] = pick(ctx.Rand, loremWords)
	}
	return value.String(strings.Join(words, " ")), nil
}

// date: uniform day in [from, to], formatted with format.
func generateDate(ctx *Context) (value.Value, error) {
	const layout = "2006-01-02"
	fromText, err := optionString(ctx.Options, "from", "2020-01-01")
	if err != nil {
		return nil, err
	}
	toText, err := optionString(ctx.Options, "to", "2025-12-31")
	if err != nil {
		return nil, err
	}
	format, err := optionString(ctx.Options, "format", layout)
	if err != nil {
		return nil, err
	}
	from, err := time.Parse(layout, fromText)
	if err != nil {
		return nil, fmt.Errorf("field '%s': invalid date from: %w", ctx.Field, err)
	}
	to, err := time.Parse(layout, toText)
	if err != nil {
		return nil, fmt.Errorf("field '%s': invalid date to: %w", ctx.Field, err)
	}
	days := int64(to.Sub(from).Hours() / 24)
	if days < 0 {
		return nil, fmt.Errorf("field '%s': date to is before from", ctx.Field)
	}
	day := from.AddDate(0, 0, int(ctx.Rand.Int64N(days+1)))
	return value.String(day.Format(format)), nil
}

func pick(r *rand.Rand, list []string) string {
	return list[r.IntN(len(list))]
}

// nameGenerator produces {firstName, lastName, fullName}.
type nameGenerator struct{}

func (g nameGenerator) Generate(ctx *Context) (value.Value, error) {
	first := pick(ctx.Rand, firstNames)
	last := pick(ctx.Rand, lastNames)
	return value.ObjectOf(
		value.P("firstName", value.String(first)),
		value.P("lastName", value.String(last)),
		value.P("fullName", value.String(first+" "+last)),
	), nil
}

func (g nameGenerator) Fields() map[string]Func {
	return map[string]Func{
		"firstName": func(ctx *Context) (value.Value, error) {
			return value.String(pick(ctx.Rand, firstNames)), nil
		},
		"lastName": func(ctx *Context) (value.Value, error) {
			return value.String(pick(ctx.Rand, lastNames)), nil
		},
	}
}

// internetGenerator produces {username, domain, email}.
type internetGenerator struct{}

func (internetGenerator) Generate(ctx *Context) (value.Value, error) {
	user := username(ctx.Rand)
	domain := pick(ctx.Rand, domains)
	return value.ObjectOf(
		value.P("username", value.String(user)),
		value.P("domain", value.String(domain)),
		value.P("email", value.String(user+"@"+domain)),
	), nil
}

func (internetGenerator) GenerateAtPath(ctx *Context, path string) (value.Value, error) {
	switch path {
	case "username":
		return value.String(username(ctx.Rand)), nil
	case "domain":
		return value.String(pick(ctx.Rand, domains)), nil
	case "email":
		return value.String(username(ctx.Rand) + "@" + pick(ctx.Rand, domains)), nil
	default:
		return value.Null{}, nil
	}
}

func username(r *rand.Rand) string {
	return strings.ToLower(pick(r, firstNames)) + "." + strings.ToLower(pick(r, lastNames)) +
		fmt.Sprintf("%d", r.IntN(100))
}

// addressGenerator produces {street, city, postalCode, country}.
type addressGenerator struct{}

func (addressGenerator) Generate(ctx *Context) (value.Value, error) {
	return value.ObjectOf(
		value.P("street", value.String(fmt.Sprintf("%d %s", 1+ctx.Rand.IntN(9999), pick(ctx.Rand, streets)))),
		value.P("city", value.String(pick(ctx.Rand, cities))),
		value.P("postalCode", value.String(fmt.Sprintf("%05d", ctx.Rand.IntN(100000)))),
		value.P("country", value.String(pick(ctx.Rand, countries))),
	), nil
}
