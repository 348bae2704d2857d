package generator

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/roach88/dataforge/internal/value"
)

// companyGenerator produces {name, industry, profession, buzzword}.
type companyGenerator struct{}

func (companyGenerator) Generate(ctx *Context) (value.Value, error) {
	return value.ObjectOf(
		value.P("name", value.String(companyName(ctx.Rand))),
		value.P("industry", value.String(pick(ctx.Rand, industries))),
		value.P("profession", value.String(pick(ctx.Rand, professions))),
		value.P("buzzword", value.String(pick(ctx.Rand, buzzwords))),
	), nil
}

func (companyGenerator) Fields() map[string]Func {
	return map[string]Func{
		"name":       func(ctx *Context) (value.Value, error) { return value.String(companyName(ctx.Rand)), nil },
		"industry":   pickFunc(industries),
		"profession": pickFunc(professions),
		"buzzword":   pickFunc(buzzwords),
	}
}

func companyName(r *rand.Rand) string {
	return pick(r, lastNames) + " " + pick(r, companySuffixes)
}

func pickFunc(list []string) Func {
	return func(ctx *Context) (value.Value, error) {
		return value.String(pick(ctx.Rand, list)), nil
	}
}

// phone: format default | international | cell | mobile | extension.
// Unknown formats fall back to default.
func generatePhone(ctx *Context) (value.Value, error) {
	format, err := optionString(ctx.Options, "format", "default")
	if err != nil {
		return nil, err
	}
	r := ctx.Rand
	line := fmt.Sprintf("%03d-%04d", 200+r.IntN(800), r.IntN(10000))
	switch strings.ToLower(format) {
	case "international":
		c := countryRows[r.IntN(len(countryRows))]
		return value.String(fmt.Sprintf("+%d %03d-%s", c.callingCode, 200+r.IntN(800), line)), nil
	case "cell", "mobile":
		return value.String(fmt.Sprintf("(%03d) %s", 200+r.IntN(800), line)), nil
	case "extension":
		return value.String(strconv.Itoa(100 + r.IntN(9900))), nil
	default:
		return value.String(fmt.Sprintf("%03d-%s", 200+r.IntN(800), line)), nil
	}
}

// countryGenerator produces {name, countryCode, capital, currency,
// currencyCode} from one country, so the fields agree.
type countryGenerator struct{}

func (countryGenerator) Generate(ctx *Context) (value.Value, error) {
	c := countryRows[ctx.Rand.IntN(len(countryRows))]
	return value.ObjectOf(
		value.P("name", value.String(c.name)),
		value.P("countryCode", value.String(c.code)),
		value.P("capital", value.String(c.capital)),
		value.P("currency", value.String(c.currency)),
		value.P("currencyCode", value.String(c.currencyCode)),
	), nil
}

// financeGenerator produces {iban, bic, creditCard}. IBANs carry valid
// ISO 7064 check digits and card numbers a valid Luhn digit.
type financeGenerator struct{}

func (financeGenerator) Generate(ctx *Context) (value.Value, error) {
	return value.ObjectOf(
		value.P("iban", value.String(iban(ctx.Rand))),
		value.P("bic", value.String(bic(ctx.Rand))),
		value.P("creditCard", value.String(creditCard(ctx.Rand))),
	), nil
}

func (financeGenerator) Fields() map[string]Func {
	return map[string]Func{
		"iban":       func(ctx *Context) (value.Value, error) { return value.String(iban(ctx.Rand)), nil },
		"bic":        func(ctx *Context) (value.Value, error) { return value.String(bic(ctx.Rand)), nil },
		"creditCard": func(ctx *Context) (value.Value, error) { return value.String(creditCard(ctx.Rand)), nil },
	}
}

const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomFrom(r *rand.Rand, alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.IntN(len(alphabet))]
	}
	return string(b)
}

func iban(r *rand.Rand) string {
	f := ibanFormats[r.IntN(len(ibanFormats))]
	bban := randomFrom(r, upper, f.letters) + randomFrom(r, "0123456789", f.nums)
	check := 98 - ibanRemainder(bban+f.country+"00")
	return fmt.Sprintf("%s%02d%s", f.country, check, bban)
}

// ibanRemainder returns s mod 97 with letters read as 10..35.
func ibanRemainder(s string) int {
	rem := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		default:
			rem = (rem*100 + int(c-'A') + 10) % 97
		}
	}
	return rem
}

func bic(r *rand.Rand) string {
	c := countryRows[r.IntN(len(countryRows))]
	return randomFrom(r, upper, 4) + c.code + randomFrom(r, upper+"0123456789", 2)
}

// creditCard returns a 16 digit number starting with 4.
func creditCard(r *rand.Rand) string {
	digits := make([]byte, 16)
	digits[0] = '4'
	for i := 1; i < 15; i++ {
		digits[i] = byte('0' + r.IntN(10))
	}
	digits[15] = byte('0' + luhnDigit(digits[:15]))
	return string(digits)
}

func luhnDigit(payload []byte) int {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// bookGenerator produces {title, author, publisher, genre}.
type bookGenerator struct{}

func (bookGenerator) Generate(ctx *Context) (value.Value, error) {
	return value.ObjectOf(
		value.P("title", value.String(bookTitle(ctx.Rand))),
		value.P("author", value.String(pick(ctx.Rand, firstNames)+" "+pick(ctx.Rand, lastNames))),
		value.P("publisher", value.String(pick(ctx.Rand, publishers))),
		value.P("genre", value.String(pick(ctx.Rand, genres))),
	), nil
}

func (bookGenerator) Fields() map[string]Func {
	return map[string]Func{
		"title": func(ctx *Context) (value.Value, error) { return value.String(bookTitle(ctx.Rand)), nil },
		"author": func(ctx *Context) (value.Value, error) {
			return value.String(pick(ctx.Rand, firstNames) + " " + pick(ctx.Rand, lastNames)), nil
		},
		"publisher": pickFunc(publishers),
		"genre":     pickFunc(genres),
	}
}

func bookTitle(r *rand.Rand) string {
	return "The " + pick(r, titleWords) + " " + pick(r, titleNouns)
}
