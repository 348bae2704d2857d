package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/testutil"
	"github.com/roach88/dataforge/internal/value"
)

func TestScenario_SequentialRoundRobin(t *testing.T) {
	src := `
		users: {count: 3, item: id: {gen: "sequence", start: 1}}
		orders: {count: 9, item: userId: {ref: "users[*].id", sequential: true}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			for _, seed := range []int64{1, 2, 99} {
				res := runSchema(t, src, WithSeed(seed), WithMemoryOptimization(mode.lazy))
				got := column(t, res, "orders", "userId")
				for i, v := range got {
					assert.Equal(t, value.Int(1+i%3), v, "order %d seed %d", i, seed)
				}
			}
		})
	}
}

func TestScenario_ConditionalSelection(t *testing.T) {
	src := `
		products: {count: 10, item: {
			id: {gen: "sequence"}
			price: {gen: "sequence", start: 10, increment: 10}
		}}
		orders: {count: 30, item: product: {ref: "products[price>50].id"}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(3), WithMemoryOptimization(mode.lazy))
			for _, v := range column(t, res, "orders", "product") {
				n, ok := value.AsFloat(v)
				require.True(t, ok)
				assert.GreaterOrEqual(t, n, 6.0)
				assert.LessOrEqual(t, n, 10.0)
			}
		})
	}
}

func TestScenario_ConditionalNoMatchFollowsPolicy(t *testing.T) {
	src := `
		products: {count: 10, item: price: {gen: "sequence", start: 10, increment: 10}}
		orders: {count: 2, item: product: {ref: "products[price>500].price"}}
	`
	res := runSchema(t, src, WithSeed(1))
	assert.Equal(t, []value.Value{value.Null{}, value.Null{}}, column(t, res, "orders", "product"))

	_, err := newEngine(t, src, WithFailurePolicy(Throw)).Run(t.Context())
	require.Error(t, err)
	assert.True(t, IsFilteringError(err))
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Contains(t, err.Error(), "matched no items")
}

func TestScenario_RangeWindowSequential(t *testing.T) {
	src := `
		users: {count: 10, item: id: {gen: "sequence"}}
		picks: {count: 7, item: user: {ref: "users[-3:-1].id", sequential: true}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(11), WithMemoryOptimization(mode.lazy))
			assert.Equal(t, ints(8, 9, 10, 8, 9, 10, 8), column(t, res, "picks", "user"))
		})
	}
}

func TestConditional_AndOrAndBindings(t *testing.T) {
	src := `
		users: {count: 6, item: {
			id: {gen: "sequence"}
			group: {gen: "choice", options: ["a", "b"]}
			score: {gen: "number", min: 0, max: 100}
		}}
		reports: {count: 20, item: {
			"$u": {ref: "users[*]"}
			peer: {ref: "users[group=$u.group].group"}
			mine: {ref: "$u.group"}
			either: {ref: "users[id=1 or id=2].id"}
			both: {ref: "users[id>=2 and id<=3].id"}
		}}
	`
	res := runSchema(t, src, WithSeed(8))
	for _, r := range collect(t, res, "reports") {
		peer, _ := r.Get("peer")
		mine, _ := r.Get("mine")
		assert.Equal(t, mine, peer)
		assert.Contains(t, ints(1, 2), value.Lookup(r, "either"))
		assert.Contains(t, ints(2, 3), value.Lookup(r, "both"))
		assert.False(t, r.Has("$u"))
	}
}

func TestFiltering_GeneratedNeverExcluded(t *testing.T) {
	src := `
		u: {count: 25, item: {
			status: {gen: "choice", options: ["a", "b", "c"], filter: ["a", "b"]}
			n: {gen: "number", min: 1, max: 3, filter: [1, 2]}
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(4), WithMemoryOptimization(mode.lazy))
			for _, item := range collect(t, res, "u") {
				assert.Equal(t, value.String("c"), value.Lookup(item, "status"))
				assert.Equal(t, value.Int(3), value.Lookup(item, "n"))
			}
		})
	}
}

func TestFiltering_ExhaustionFollowsPolicy(t *testing.T) {
	src := `u: {count: 2, item: n: {gen: "number", min: 1, max: 1, filter: [1]}}`

	res := runSchema(t, src, WithSeed(1), WithMaxRetries(5))
	assert.Equal(t, []value.Value{value.Null{}, value.Null{}}, column(t, res, "u", "n"))

	_, err := newEngine(t, src, WithMaxRetries(5), WithFailurePolicy(Throw)).Run(t.Context())
	require.Error(t, err)
	assert.True(t, IsFilteringError(err))
	assert.Contains(t, err.Error(), "field 'u.n': failed to generate a valid value after 5 retries")
}

func TestFiltering_RetriesPlainGenerator(t *testing.T) {
	g := testutil.NewCyclingGenerator(value.String("a"), value.String("b"), value.String("c"))
	reg := testutil.Registry(map[string]generator.Generator{"cycle": g})
	tree := testutil.CompileCUEWith(t, `u: {count: 2, item: s: {gen: "cycle", filter: ["a"]}}`, reg)

	eng, err := New(tree, reg, quiet(), WithSeed(1))
	require.NoError(t, err)
	res, err := eng.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []value.Value{value.String("b"), value.String("c")}, column(t, res, "u", "s"))
	assert.Equal(t, 3, g.Calls(), "the excluded first value is retried once")
}

func TestFiltering_ChoiceAllExcluded(t *testing.T) {
	src := `u: item: s: {gen: "choice", options: ["a"], filter: ["a"]}`
	_, err := newEngine(t, src, WithFailurePolicy(Throw)).Run(t.Context())
	assert.True(t, IsFilteringError(err))
	assert.NotErrorIs(t, err, ErrNoCandidates)
}

func TestFiltering_References(t *testing.T) {
	src := `
		users: {count: 3, item: id: {gen: "sequence"}}
		orders: {count: 12, item: {
			uid: {ref: "users[*].id", filter: [1, 2]}
			none: {ref: "users[*].id", filter: [1, 2, 3]}
			fixed: {ref: "users[0].id", filter: [1]}
		}}
	`
	res := runSchema(t, src, WithSeed(2))
	for _, o := range collect(t, res, "orders") {
		assert.Equal(t, value.Int(3), value.Lookup(o, "uid"))
		assert.Equal(t, value.Null{}, value.Lookup(o, "none"))
		assert.Equal(t, value.Null{}, value.Lookup(o, "fixed"))
	}

	_, err := newEngine(t, src, WithFailurePolicy(Throw)).Run(t.Context())
	require.Error(t, err)
	assert.True(t, IsFilteringError(err))
	assert.False(t, IsReferenceError(err))
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Contains(t, err.Error(), "no valid values after filtering")
}

func TestFiltering_SelfReference(t *testing.T) {
	src := `u: item: {a: 5, b: {ref: "this.a", filter: [5]}, c: {ref: "this.a", filter: [6]}}`
	res := runSchema(t, src)
	item := collect(t, res, "u")[0]
	assert.Equal(t, value.Null{}, value.Lookup(item, "b"))
	assert.Equal(t, value.Int(5), value.Lookup(item, "c"))
}

func TestMerge_DefinitionsConcatenateInOrder(t *testing.T) {
	src := `
		admins: {name: "users", count: 2, item: role: "admin"}
		early: {count: 4, item: who: {ref: "users[*].role"}}
		members: {name: "users", count: 3, item: role: "member"}
		audit: {count: 5, item: who: {ref: "users[*].role", sequential: true}}
	`
	admin, member := value.String("admin"), value.String("member")
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(6), WithMemoryOptimization(mode.lazy))
			assert.Equal(t, []string{"users", "early", "audit"}, res.Names())
			assert.Equal(t, []value.Value{admin, admin, member, member, member}, column(t, res, "users", "role"))
			assert.Equal(t, []value.Value{admin, admin, admin, admin}, column(t, res, "early", "who"))
			assert.Equal(t, []value.Value{admin, admin, member, member, member}, column(t, res, "audit", "who"))

			seq, _ := res.Collection("users")
			last, err := seq.At(4)
			require.NoError(t, err)
			assert.Equal(t, member, value.Lookup(last, "role"))
		})
	}
}

func TestTags_SharedAcrossDefinitions(t *testing.T) {
	src := `
		cats: {name: "animals", count: 2, tags: ["pet"], item: kind: "cat"}
		dogs: {name: "animals", count: 3, tags: ["pet"], item: kind: "dog"}
		owners: {count: 6, item: pet: {ref: "byTag[pet].kind", sequential: true}}
	`
	cat, dog := value.String("cat"), value.String("dog")
	res := runSchema(t, src)
	assert.Equal(t, []value.Value{cat, cat, dog, dog, dog, cat}, column(t, res, "owners", "pet"))
}

func TestTags_Dynamic(t *testing.T) {
	src := `
		cats: {count: 2, tags: ["cat"], item: kind: "cat"}
		dogs: {count: 2, tags: ["dog"], item: kind: "dog"}
		pets: {count: 10, item: {
			want: {gen: "choice", options: ["cat", "dog"]}
			got: {ref: "byTag[this.want].kind"}
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(12), WithMemoryOptimization(mode.lazy))
			for _, p := range collect(t, res, "pets") {
				assert.Equal(t, value.Lookup(p, "want"), value.Lookup(p, "got"))
			}
		})
	}
}

func TestPicks(t *testing.T) {
	src := `
		users: {count: 3, pick: {last: 2}, item: id: {gen: "sequence"}}
		audits: {count: 2, item: {
			by: {ref: "last.id"}
			whole: {ref: "last"}
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithMemoryOptimization(mode.lazy))
			assert.Equal(t, ints(3, 3), column(t, res, "audits", "by"))
			assert.Equal(t, ints(3, 3), column(t, res, "audits", "whole.id"))
		})
	}
}

func TestIndexedAndRangeEdges(t *testing.T) {
	src := `
		users: {count: 3, item: id: {gen: "sequence"}}
		refs: {count: 3, item: {
			first: {ref: "users[0].id"}
			outside: {ref: "users[7].id"}
			empty: {ref: "users[5:6].id"}
			head: {ref: "users[:0].id"}
		}}
	`
	res := runSchema(t, src)
	assert.Equal(t, ints(1, 1, 1), column(t, res, "refs", "first"))
	assert.Equal(t, []value.Value{value.Null{}, value.Null{}, value.Null{}}, column(t, res, "refs", "outside"))
	assert.Equal(t, []value.Value{value.Null{}, value.Null{}, value.Null{}}, column(t, res, "refs", "empty"))
	assert.Equal(t, ints(1, 1, 1), column(t, res, "refs", "head"))
}

func TestSelfReferences(t *testing.T) {
	src := `
		u: {count: 2, item: {
			first: "Ada"
			address: city: "Oslo"
			greeting: {ref: "this.first"}
			city: {ref: "this.address.city"}
			early: {ref: "this.late"}
			late: 1
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithMemoryOptimization(mode.lazy))
			for _, item := range collect(t, res, "u") {
				assert.Equal(t, value.String("Ada"), value.Lookup(item, "greeting"))
				assert.Equal(t, value.String("Oslo"), value.Lookup(item, "city"))
				assert.Equal(t, value.Null{}, value.Lookup(item, "early"))
			}
		})
	}
}

func TestShadowBindings(t *testing.T) {
	src := `
		users: {count: 4, item: {
			id: {gen: "sequence"}
			country: {gen: "choice", options: ["NL", "DE"]}
		}}
		orders: {count: 15, item: {
			"$user": {ref: "users[*]"}
			buyer: {ref: "$user.id"}
			buyerCountry: {ref: "$user.country"}
			seller: {ref: "users[*].id", filter: [{ref: "$user.id"}]}
			local: {ref: "users[country=$user.country].country"}
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(21), WithMemoryOptimization(mode.lazy))
			users := collect(t, res, "users")
			for _, o := range collect(t, res, "orders") {
				assert.Equal(t, []string{"buyer", "buyerCountry", "seller", "local"}, o.Keys())

				buyer := value.Lookup(o, "buyer")
				assert.NotEqual(t, buyer, value.Lookup(o, "seller"))

				n, ok := value.AsFloat(buyer)
				require.True(t, ok)
				owner := users[int(n)-1]
				assert.Equal(t, value.Lookup(owner, "country"), value.Lookup(o, "buyerCountry"))
				assert.Equal(t, value.Lookup(o, "buyerCountry"), value.Lookup(o, "local"))
			}
		})
	}
}

func TestSpreads(t *testing.T) {
	src := `
		users: {count: 2, item: {id: {gen: "sequence"}, name: {gen: "name.firstName"}}}
		profiles: {count: 3, item: {
			"...n": {gen: "name", fields: ["first:firstName"]}
			"...u": {ref: "users[*]", fields: ["userId:id", "missing"]}
			own: "x"
			"...all": {ref: "users[0]"}
		}}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res := runSchema(t, src, WithSeed(5), WithMemoryOptimization(mode.lazy))
			for _, p := range collect(t, res, "profiles") {
				assert.Equal(t, []string{"first", "userId", "own", "id", "name"}, p.Keys())
				assert.Equal(t, value.Int(1), value.Lookup(p, "id"))
			}
		})
	}
}

func TestRuntimeAndGeneratedOptions(t *testing.T) {
	src := `
		u: {count: 20, item: {
			tier: {gen: "choice", options: ["gold", "silver"]}
			discount: {gen: "number", min: 0, max: {ref: "this.tier", map: {gold: 50, silver: 5}}}
			lo: {gen: "number", min: 1, max: 1}
			n: {gen: "number", min: {ref: "this.lo"}, max: {gen: "choice", options: [3]}}
		}}
	`
	res := runSchema(t, src, WithSeed(17))
	for _, item := range collect(t, res, "u") {
		d, _ := value.AsFloat(value.Lookup(item, "discount"))
		if value.Lookup(item, "tier") == value.String("silver") {
			assert.LessOrEqual(t, d, 5.0)
		} else {
			assert.LessOrEqual(t, d, 50.0)
		}
		n, _ := value.AsFloat(value.Lookup(item, "n"))
		assert.GreaterOrEqual(t, n, 1.0)
		assert.LessOrEqual(t, n, 3.0)
	}
}

func TestArrays(t *testing.T) {
	src := `
		posts: {count: 10, item: {
			scores: {array: {minSize: 1, maxSize: 3, item: {gen: "number", min: 1, max: 5}}}
			tags: {count: 2, value: "x"}
			pairs: {array: {size: 2, item: {a: 1, b: {gen: "boolean"}}}}
		}}
	`
	res := runSchema(t, src, WithSeed(30))
	for _, p := range collect(t, res, "posts") {
		scores := value.Lookup(p, "scores").(value.Array)
		assert.GreaterOrEqual(t, len(scores), 1)
		assert.LessOrEqual(t, len(scores), 3)
		assert.Equal(t, value.Array{value.String("x"), value.String("x")}, value.Lookup(p, "tags"))
		assert.Equal(t, value.Int(1), value.Lookup(p, "pairs.1.a"))
	}
}
