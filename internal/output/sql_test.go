package output

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/value"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE "users" ("id" INTEGER, "name" TEXT, "tags" TEXT, "address" TEXT)`)
	require.NoError(t, err)
	return db
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "NULL", Literal(value.Null{}))
	assert.Equal(t, "NULL", Literal(nil))
	assert.Equal(t, "42", Literal(value.Int(42)))
	assert.Equal(t, "1.5", Literal(value.Float(1.5)))
	assert.Equal(t, "TRUE", Literal(value.Bool(true)))
	assert.Equal(t, "'it''s'", Literal(value.String("it's")))
	assert.Equal(t, `'{"a":[1,"x"]}'`, Literal(value.ObjectOf(value.P("a", value.Array{value.Int(1), value.String("x")}))))
}

func TestArg(t *testing.T) {
	assert.Nil(t, Arg(value.Null{}))
	assert.Equal(t, int64(3), Arg(value.Int(3)))
	assert.Equal(t, 2.5, Arg(value.Float(2.5)))
	assert.Equal(t, false, Arg(value.Bool(false)))
	assert.Equal(t, "s", Arg(value.String("s")))
	assert.Equal(t, `["a"]`, Arg(value.Array{value.String("a")}))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdent("users"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}

func TestStatement_Forms(t *testing.T) {
	w := NewSQLWriter(WithLogger(quiet()))
	item := value.ObjectOf(value.P("id", value.Int(1)), value.P("name", value.String("O'Neil")))
	st := w.Statement("users", item)

	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES (?, ?);`, st.SQL())
	assert.Equal(t, []any{int64(1), "O'Neil"}, st.Args())
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES (1, 'O''Neil');`, st.Render())
}

func TestStatement_ProjectionFillsMissingWithNull(t *testing.T) {
	w := NewSQLWriter(WithColumns("users", "name", "email"), WithLogger(quiet()))
	st := w.Statement("users", value.ObjectOf(value.P("id", value.Int(1)), value.P("name", value.String("a"))))
	assert.Equal(t, `INSERT INTO "users" ("name", "email") VALUES ('a', NULL);`, st.Render())
}

func TestSQLWriter_TableNames(t *testing.T) {
	plain := NewSQLWriter()
	assert.Equal(t, "orderLine", plain.Table("orderLine"))

	plural := NewSQLWriter(WithPluralize(true))
	assert.Equal(t, "order_lines", plural.Table("orderLine"))
	assert.Equal(t, "categories", plural.Table("category"))
}

func TestSQLWriter_Write(t *testing.T) {
	res := run(t, literalSchema)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, res, FormatSQL, WithLogger(quiet())))

	want := strings.Join([]string{
		`INSERT INTO "users" ("id", "name", "tags", "address") VALUES (1, 'ada', '["a","b"]', '{"city":"Oslo"}');`,
		`INSERT INTO "users" ("id", "name", "tags", "address") VALUES (2, 'ada', '["a","b"]', '{"city":"Oslo"}');`,
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestSQLWriter_Batches(t *testing.T) {
	res := run(t, `users: {count: 5, item: id: {gen: "sequence"}}`)
	seq, _ := res.Collection("users")

	var got []string
	w := NewSQLWriter(WithBatchSize(2))
	require.NoError(t, w.Statements(context.Background(), "users", seq, func(st Statement) error {
		got = append(got, st.Render())
		return nil
	}))
	assert.Equal(t, []string{
		`INSERT INTO "users" ("id") VALUES (1), (2);`,
		`INSERT INTO "users" ("id") VALUES (3), (4);`,
		`INSERT INTO "users" ("id") VALUES (5);`,
	}, got)
}

func TestSQLWriter_ExecutesInSQLite(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		res := run(t, literalSchema, engine.WithMemoryOptimization(lazy))
		seq, _ := res.Collection("users")

		rendered := openMemory(t)
		params := openMemory(t)
		w := NewSQLWriter(WithBatchSize(10), WithLogger(quiet()))
		require.NoError(t, w.Statements(context.Background(), "users", seq, func(st Statement) error {
			if _, err := rendered.Exec(st.Render()); err != nil {
				return err
			}
			_, err := params.Exec(st.SQL(), st.Args()...)
			return err
		}))

		for _, db := range []*sql.DB{rendered, params} {
			var n int
			require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "users"`).Scan(&n))
			assert.Equal(t, 2, n)

			var city string
			var sum int
			require.NoError(t, db.QueryRow(`SELECT json_extract("address", '$.city'), SUM("id") FROM "users"`).Scan(&city, &sum))
			assert.Equal(t, "Oslo", city)
			assert.Equal(t, 3, sum)
		}
	}
}
