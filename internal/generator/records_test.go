package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/value"
)

func TestRecords_Deterministic(t *testing.T) {
	for _, name := range []string{"company", "phone", "country", "finance", "book"} {
		t.Run(name, func(t *testing.T) {
			g := mustLookup(t, name)
			a, err := g.Generate(makeTestContext(11))
			require.NoError(t, err)
			b, err := g.Generate(makeTestContext(11))
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestRecords_Keys(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{"company", []string{"name", "industry", "profession", "buzzword"}},
		{"country", []string{"name", "countryCode", "capital", "currency", "currencyCode"}},
		{"finance", []string{"iban", "bic", "creditCard"}},
		{"book", []string{"title", "author", "publisher", "genre"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := mustLookup(t, tt.name).Generate(makeTestContext(3))
			require.NoError(t, err)
			obj, ok := v.(*value.Object)
			require.True(t, ok)
			assert.Equal(t, tt.keys, obj.Keys())
		})
	}
}

func TestCountry_FieldsAgree(t *testing.T) {
	g := mustLookup(t, "country")
	for seed := range uint64(20) {
		v, err := g.Generate(makeTestContext(seed))
		require.NoError(t, err)
		name := value.Text(value.Lookup(v, "name"))
		code := value.Text(value.Lookup(v, "countryCode"))

		var found bool
		for _, c := range countryRows {
			if c.name == name {
				found = true
				assert.Equal(t, c.code, code)
				assert.Equal(t, c.capital, value.Text(value.Lookup(v, "capital")))
			}
		}
		assert.True(t, found, "unknown country %q", name)
	}
}

func TestPhone_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", `^[2-9]\d{2}-[2-9]\d{2}-\d{4}$`},
		{"international", `^\+\d{1,3} [2-9]\d{2}-[2-9]\d{2}-\d{4}$`},
		{"mobile", `^\([2-9]\d{2}\) [2-9]\d{2}-\d{4}$`},
		{"CELL", `^\([2-9]\d{2}\) [2-9]\d{2}-\d{4}$`},
		{"extension", `^\d{3,4}$`},
		{"fax", `^[2-9]\d{2}-[2-9]\d{2}-\d{4}$`},
	}
	g := mustLookup(t, "phone")
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var opts []value.Pair
			if tt.format != "" {
				opts = append(opts, value.P("format", value.String(tt.format)))
			}
			for seed := range uint64(10) {
				v, err := g.Generate(makeTestContext(seed, opts...))
				require.NoError(t, err)
				assert.Regexp(t, tt.want, value.Text(v))
			}
		})
	}
}

func TestFinance_CheckDigits(t *testing.T) {
	assert.Equal(t, 1, ibanRemainder("WEST12345698765432GB82"))
	assert.Equal(t, 1, luhnDigit([]byte("411111111111111")))

	g := mustLookup(t, "finance")
	for seed := range uint64(25) {
		v, err := g.Generate(makeTestContext(seed))
		require.NoError(t, err)

		iban := value.Text(value.Lookup(v, "iban"))
		assert.Equal(t, 1, ibanRemainder(iban[4:]+iban[:4]), "iban %s", iban)

		card := value.Text(value.Lookup(v, "creditCard"))
		require.Len(t, card, 16)
		assert.Equal(t, int(card[15]-'0'), luhnDigit([]byte(card[:15])), "card %s", card)

		assert.Regexp(t, `^[A-Z]{6}[A-Z0-9]{2}$`, value.Text(value.Lookup(v, "bic")))
	}
}

func TestProduce_RecordFieldSuppliers(t *testing.T) {
	v, err := Produce(mustLookup(t, "book"), makeTestContext(4), "genre")
	require.NoError(t, err)
	assert.Contains(t, genres, value.Text(v))

	v, err = Produce(mustLookup(t, "company"), makeTestContext(4), "industry")
	require.NoError(t, err)
	assert.Contains(t, industries, value.Text(v))

	v, err = Produce(mustLookup(t, "country"), makeTestContext(4), "currencyCode")
	require.NoError(t, err)
	assert.Len(t, value.Text(v), 3)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSV_SequentialCycles(t *testing.T) {
	path := writeCSV(t, "sku,name\nA1,anvil\nB2,bolt\n")
	g := mustLookup(t, "csv")
	ctx := makeTestContext(1, value.P("file", value.String(path)))

	var got []string
	for range 5 {
		v, err := g.Generate(ctx)
		require.NoError(t, err)
		got = append(got, value.Text(value.Lookup(v, "sku")))
	}
	assert.Equal(t, []string{"A1", "B2", "A1", "B2", "A1"}, got)

	v, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "name"}, v.(*value.Object).Keys())
	assert.Equal(t, value.String("bolt"), value.Lookup(v, "name"))
}

func TestCSV_Random(t *testing.T) {
	path := writeCSV(t, "id\n1\n2\n3\n")
	g := mustLookup(t, "csv")
	ctx := makeTestContext(8, value.P("file", value.String(path)), value.P("sequential", value.Bool(false)))

	for range 20 {
		v, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"1", "2", "3"}, value.Text(value.Lookup(v, "id")))
	}
}

func TestCSV_Failures(t *testing.T) {
	g := mustLookup(t, "csv")

	_, err := g.Generate(makeTestContext(1))
	assert.ErrorContains(t, err, `requires option "file"`)

	_, err = g.Generate(makeTestContext(1, value.P("file", value.String(filepath.Join(t.TempDir(), "missing.csv")))))
	assert.Error(t, err)

	_, err = g.Generate(makeTestContext(1, value.P("file", value.String("x.csv")), value.P("sequential", value.String("yes"))))
	assert.ErrorContains(t, err, "must be a boolean")

	v, err := g.Generate(makeTestContext(1, value.P("file", value.String(writeCSV(t, "only,header\n")))))
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, v)
}
