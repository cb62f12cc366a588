package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func toFrame(t *testing.T, e *Engine, name string, columns ...string) *frame.Frame {
	t.Helper()
	tb, err := e.Table(name)
	require.NoError(t, err)
	f, err := tb.ToFrame(columns...)
	require.NoError(t, err)
	return f
}

func TestTables(t *testing.T) {
	e := New()
	src := df()
	wrapped, err := e.AddTable("test_frame", src)
	require.NoError(t, err)
	_, err = e.AddTableFunc("test_func", registry.NewFunc(func(a registry.Args) (any, error) {
		tf, err := registry.Arg[*Table](a, "test_frame")
		if err != nil {
			return nil, err
		}
		f, err := tf.ToFrame()
		if err != nil {
			return nil, err
		}
		return scale(f, 0.5), nil
	}, registry.Params("test_frame")...))
	require.NoError(t, err)

	assert.Equal(t, []string{"test_frame", "test_func"}, e.ListTables())

	t.Run("static", func(t *testing.T) {
		tb, err := e.Table("test_frame")
		require.NoError(t, err)
		assert.Equal(t, wrapped.Name(), tb.Name())

		cols, err := tb.Columns()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, cols)
		local, err := tb.LocalColumns()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, local)
		n, err := tb.Len()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		idx, err := tb.Index()
		require.NoError(t, err)
		assert.Equal(t, keys(src.Index()), keys(idx))

		a, err := tb.Column("a")
		require.NoError(t, err)
		requireSeries(t, frame.Ints(1, 2, 3), a)
	})

	t.Run("function", func(t *testing.T) {
		tb, err := e.Table("test_func")
		require.NoError(t, err)

		requireFrame(t, scale(src, 0.5), toFrame(t, e, "test_func"))
		only, err := src.Select("a")
		require.NoError(t, err)
		requireFrame(t, scale(only, 0.5), toFrame(t, e, "test_func", "a"))

		b, err := tb.Column("b")
		require.NoError(t, err)
		requireSeries(t, frame.Floats(2, 2.5, 3), b)

		cols, err := tb.Columns()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, cols)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := e.Table("asdf")
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
		_, err = wrapped.Column("nope")
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})
}

func TestTableFuncCache(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 2.0))
	fn := registry.NewFunc(func(a registry.Args) (any, error) {
		x, err := registry.Arg[float64](a, "variable")
		if err != nil {
			return nil, err
		}
		return scale(df(), x), nil
	}, registry.WithExpr("variable", "x"))
	tb, err := e.AddTableFunc("table", fn, Cache(cache.ScopeForever))
	require.NoError(t, err)

	steps := []struct {
		name   string
		act    func()
		factor float64
	}{
		{name: "first", act: func() {}, factor: 2},
		{name: "upstream change is not seen", act: func() { require.NoError(t, e.AddInjectable("x", 3.0)) }, factor: 2},
		{name: "clear cached", act: tb.ClearCached, factor: 3},
		{name: "upstream change again", act: func() { require.NoError(t, e.AddInjectable("x", 4.0)) }, factor: 3},
		{name: "clear all", act: e.ClearCache, factor: 4},
		{name: "upstream change once more", act: func() { require.NoError(t, e.AddInjectable("x", 5.0)) }, factor: 4},
		{name: "re-register", act: func() {
			_, err := e.AddTableFunc("table", fn, Cache(cache.ScopeForever))
			require.NoError(t, err)
		}, factor: 5},
	}
	for _, s := range steps {
		s.act()
		requireFrame(t, scale(df(), s.factor), toFrame(t, e, "table"))
	}
}

func TestTableFuncCacheDisabled(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 2.0))
	_, err := e.AddTableFunc("table", registry.NewFunc(func(a registry.Args) (any, error) {
		x, err := registry.Arg[float64](a, "x")
		if err != nil {
			return nil, err
		}
		return scale(df(), x), nil
	}, registry.Params("x")...), Cache(cache.ScopeForever))
	require.NoError(t, err)

	e.DisableCache()
	requireFrame(t, scale(df(), 2), toFrame(t, e, "table"))
	require.NoError(t, e.AddInjectable("x", 3.0))
	requireFrame(t, scale(df(), 3), toFrame(t, e, "table"))

	e.EnableCache()
	require.NoError(t, e.AddInjectable("x", 4.0))
	requireFrame(t, scale(df(), 3), toFrame(t, e, "table"))
}

func TestTableCopySemantics(t *testing.T) {
	e := New()
	src := df()
	backing, _ := src.Column("a")
	constant := func(registry.Args) (any, error) { return src, nil }

	for _, copied := range []bool{true, false} {
		suffix := "uncopied"
		if copied {
			suffix = "copied"
		}
		_, err := e.AddTable("frame_"+suffix, src, CopyCol(copied))
		require.NoError(t, err)
		_, err = e.AddTableFunc("func_"+suffix, registry.NewFunc(constant), CopyCol(copied))
		require.NoError(t, err)
		_, err = e.AddTableFunc("cached_"+suffix, registry.NewFunc(constant), CopyCol(copied), Cache(cache.ScopeForever))
		require.NoError(t, err)

		_, err = e.AddTable("columns_"+suffix, frame.New(src.Index()), CopyCol(copied))
		require.NoError(t, err)
		for _, c := range []string{"a", "b"} {
			_, err = e.AddColumnFunc("columns_"+suffix, c, registry.NewFunc(
				func(a registry.Args) (any, error) { return a["col"], nil },
				registry.WithExpr("col", "frame_uncopied."+c),
			), CopyCol(copied))
			require.NoError(t, err)
		}
	}

	for _, name := range e.ListTables() {
		t.Run(name, func(t *testing.T) {
			tb, err := e.Table(name)
			require.NoError(t, err)
			tb2, err := e.Table(name)
			require.NoError(t, err)

			f1 := toFrame(t, e, name)
			f2 := toFrame(t, e, name)
			requireFrame(t, src, f1)
			a1, _ := f1.Column("a")
			a2, _ := f2.Column("a")
			assert.NotSame(t, backing, a1, "ToFrame always copies")
			assert.NotSame(t, a1, a2)

			c1, err := tb.Column("a")
			require.NoError(t, err)
			c2, err := tb2.Column("a")
			require.NoError(t, err)
			requireSeries(t, backing.Values(), c1)
			if strings.HasSuffix(name, "_uncopied") {
				assert.Same(t, backing, c1)
				assert.Same(t, c1, c2)
			} else {
				assert.NotSame(t, backing, c1)
				assert.NotSame(t, c1, c2)
			}
		})
	}
}

func TestColumnCopyColThroughTable(t *testing.T) {
	// --- Arrange ---
	e := New()
	idx := frame.Strings("x", "y", "z")
	_, err := e.AddTable("t", frame.New(idx), CopyCol(false))
	require.NoError(t, err)
	_, err = e.AddColumn("t", "copied", frame.MustSeries("copied", idx, frame.Ints(1, 2, 3)))
	require.NoError(t, err)
	_, err = e.AddColumn("t", "shared", frame.MustSeries("shared", idx, frame.Ints(4, 5, 6)), CopyCol(false))
	require.NoError(t, err)
	tbl, err := e.Table("t")
	require.NoError(t, err)

	// --- Act ---
	c1, err := tbl.Column("copied")
	require.NoError(t, err)
	c2, err := tbl.Column("copied")
	require.NoError(t, err)
	r1, err := e.Resolve("t.copied")
	require.NoError(t, err)
	r2, err := e.Resolve("t.copied")
	require.NoError(t, err)
	s1, err := tbl.Column("shared")
	require.NoError(t, err)
	s2, err := e.Resolve("t.shared")
	require.NoError(t, err)

	// --- Assert ---
	assert.NotSame(t, c1, c2, "the column's own copy_col applies through its table")
	assert.NotSame(t, r1, r2, "and through a dotted expression")
	assert.Same(t, s1, s2, "neither side asks for a copy")

	c1.Set(0, cty.NumberIntVal(100))
	again, err := tbl.Column("copied")
	require.NoError(t, err)
	requireSeries(t, frame.Ints(1, 2, 3), again)
}

func TestColumnsAndTables(t *testing.T) {
	e := New()
	_, err := e.AddTable("test_frame", df())
	require.NoError(t, err)
	_, err = e.AddTableFunc("test_func", registry.NewFunc(func(a registry.Args) (any, error) {
		f, err := a["test_frame"].(*Table).ToFrame()
		if err != nil {
			return nil, err
		}
		return scale(f, 0.5), nil
	}, registry.Params("test_frame")...))
	require.NoError(t, err)

	idx := frame.Strings("x", "y", "z")
	_, err = e.AddColumn("test_frame", "c", frame.MustSeries("c", idx, frame.Ints(7, 8, 9)))
	require.NoError(t, err)
	_, err = e.AddColumnFunc("test_func", "d", registry.NewFunc(func(a registry.Args) (any, error) {
		f, err := a["test_func"].(*Table).ToFrame("b")
		if err != nil {
			return nil, err
		}
		b, _ := f.Column("b")
		return scaleSeries(b, 2), nil
	}, registry.Params("test_func")...))
	require.NoError(t, err)
	_, err = e.AddColumnFunc("test_func", "e", registry.NewFunc(func(a registry.Args) (any, error) {
		d := a["column"].(*frame.Series)
		return d.Map(func(v cty.Value) cty.Value { return v.Add(cty.NumberIntVal(1)) }), nil
	}, registry.WithExpr("column", "test_func.d")))
	require.NoError(t, err)

	tf, err := e.Table("test_frame")
	require.NoError(t, err)
	cols, err := tf.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cols)
	local, err := tf.LocalColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, local)

	requireFrame(t, frame.MustFrame(idx,
		frame.MustSeries("a", idx, frame.Ints(1, 2, 3)),
		frame.MustSeries("b", idx, frame.Ints(4, 5, 6)),
		frame.MustSeries("c", idx, frame.Ints(7, 8, 9)),
	), toFrame(t, e, "test_frame"))
	requireFrame(t, frame.MustFrame(idx,
		frame.MustSeries("a", idx, frame.Ints(1, 2, 3)),
		frame.MustSeries("c", idx, frame.Ints(7, 8, 9)),
	), toFrame(t, e, "test_frame", "a", "c"))

	requireFrame(t, frame.MustFrame(idx,
		frame.MustSeries("a", idx, frame.Floats(0.5, 1, 1.5)),
		frame.MustSeries("b", idx, frame.Floats(2, 2.5, 3)),
		frame.MustSeries("c", idx, frame.Floats(3.5, 4, 4.5)),
		frame.MustSeries("d", idx, frame.Floats(4, 5, 6)),
		frame.MustSeries("e", idx, frame.Floats(5, 6, 7)),
	), toFrame(t, e, "test_func"))
	requireFrame(t, frame.MustFrame(idx,
		frame.MustSeries("b", idx, frame.Floats(2, 2.5, 3)),
		frame.MustSeries("d", idx, frame.Floats(4, 5, 6)),
	), toFrame(t, e, "test_func", "b", "d"))

	assert.Equal(t, []string{"test_frame.c", "test_func.d", "test_func.e"}, e.ListColumns())
}

func TestColumnsForUnregisteredTable(t *testing.T) {
	e := New()
	_, err := e.AddColumn("table1", "col10", frame.MustSeries("col10", frame.Strings("a", "b"), frame.Ints(1, 2)))
	require.NoError(t, err)
	_, err = e.AddColumnFunc("table1", "col11", registry.NewFunc(func(registry.Args) (any, error) {
		return frame.MustSeries("x", frame.Strings("a", "b"), frame.Ints(4, 5)), nil
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"col10", "col11"}, e.Registry().ColumnsFor("table1"))

	col, err := e.Column("table1", "col11")
	require.NoError(t, err)
	s, err := col.Series()
	require.NoError(t, err)
	assert.Equal(t, "col11", s.Name())
}

func TestColumnCache(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 2.0))
	series := frame.MustSeries("col", frame.Strings("x", "y", "z"), frame.Ints(1, 2, 3))
	_, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }))
	require.NoError(t, err)
	fn := registry.NewFunc(func(a registry.Args) (any, error) {
		return scaleSeries(series, a["variable"].(float64)), nil
	}, registry.WithExpr("variable", "x"))
	col, err := e.AddColumnFunc("table", "col", fn, Cache(cache.ScopeForever))
	require.NoError(t, err)

	check := func(factor float64) {
		t.Helper()
		s, err := col.Series()
		require.NoError(t, err)
		requireSeries(t, scaleSeries(series, factor).Values(), s)
	}
	setX := func(v float64) { require.NoError(t, e.AddInjectable("x", v)) }

	check(2)
	setX(3)
	check(2)
	col.ClearCached()
	check(3)
	setX(4)
	check(3)
	e.ClearCache()
	check(4)
	setX(5)
	tb, err := e.Table("table")
	require.NoError(t, err)
	tb.ClearCached()
	check(4) // clearing the table leaves its columns cached
	_, err = e.AddColumnFunc("table", "col", fn, Cache(cache.ScopeForever))
	require.NoError(t, err)
	check(5)
}

func TestColumnCacheDisabled(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 2.0))
	series := frame.MustSeries("col", frame.Strings("x", "y", "z"), frame.Ints(1, 2, 3))
	col, err := e.AddColumnFunc("table", "col", registry.NewFunc(func(a registry.Args) (any, error) {
		return scaleSeries(series, a["x"].(float64)), nil
	}, registry.Params("x")...), Cache(cache.ScopeForever))
	require.NoError(t, err)

	check := func(factor float64) {
		t.Helper()
		s, err := col.Series()
		require.NoError(t, err)
		requireSeries(t, scaleSeries(series, factor).Values(), s)
	}

	require.NoError(t, e.CacheDisabled(func() error {
		check(2)
		require.NoError(t, e.AddInjectable("x", 3.0))
		check(3)
		return nil
	}))
	require.NoError(t, e.AddInjectable("x", 4.0))
	check(3)
}

func TestUpdateCol(t *testing.T) {
	e := New()
	wrapped, err := e.AddTable("table", df())
	require.NoError(t, err)
	idx := frame.Strings("x", "y", "z")

	require.NoError(t, wrapped.UpdateCol("b", frame.MustSeries("b", idx, frame.Ints(7, 8, 9))))
	b, err := wrapped.Column("b")
	require.NoError(t, err)
	requireSeries(t, frame.Ints(7, 8, 9), b)

	require.NoError(t, wrapped.UpdateColFromSeries("a", frame.MustSeries("a", nil, nil), false))
	a, err := wrapped.Column("a")
	require.NoError(t, err)
	requireSeries(t, frame.Ints(1, 2, 3), a)

	require.NoError(t, wrapped.UpdateColFromSeries("a", frame.MustSeries("a", frame.Strings("y"), frame.Ints(99)), false))
	a, err = wrapped.Column("a")
	require.NoError(t, err)
	requireSeries(t, frame.Ints(1, 99, 3), a)

	err = wrapped.UpdateColFromSeries("a", frame.MustSeries("a", frame.Strings("w"), frame.Ints(1)), false)
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	require.NoError(t, wrapped.UpdateCol("new", frame.MustSeries("new", frame.Strings("z", "x"), frame.Ints(30, 10))))
	n, err := wrapped.Column("new")
	require.NoError(t, err)
	assert.Equal(t, []string{"n:10", "null", "n:30"}, keys(n.Values()))
}

func TestUpdateCol_FunctionTable(t *testing.T) {
	e := New()
	tb, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }))
	require.NoError(t, err)
	idx := frame.Strings("x", "y", "z")

	err = tb.UpdateCol("a", frame.MustSeries("a", idx, frame.Ints(0, 0, 0)))
	assert.ErrorIs(t, err, errdefs.ErrValidation)
	err = tb.UpdateColFromSeries("a", frame.MustSeries("a", idx, frame.Ints(0, 0, 0)), false)
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	require.NoError(t, tb.UpdateCol("c", frame.MustSeries("c", idx, frame.Ints(7, 8, 9))))
	cols, err := tb.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cols)
	assert.Equal(t, []string{"table.c"}, e.ListColumns())
}

func TestLocalColumnCollision(t *testing.T) {
	e := New()
	tb, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }))
	require.NoError(t, err)
	_, err = e.AddColumn("table", "new", frame.MustSeries("new", frame.Strings("x"), frame.Ints(1)))
	require.NoError(t, err)

	local, err := tb.LocalColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, local)

	_, err = e.AddColumn("table", "a", frame.MustSeries("a", frame.Strings("x"), frame.Ints(1)))
	require.NoError(t, err)
	_, err = tb.ToFrame()
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	_, err = e.AddTable("static", df())
	require.NoError(t, err)
	_, err = e.AddColumn("static", "a", frame.MustSeries("a", frame.Strings("x"), frame.Ints(1)))
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestSteps(t *testing.T) {
	e := New()
	_, err := e.AddTable("test_table", df())
	require.NoError(t, err)
	df2 := scale(df(), 0.5)
	_, err = e.AddTable("test_table2", df2)
	require.NoError(t, err)

	require.NoError(t, e.AddStep("test_model", registry.NewFunc(func(a registry.Args) (any, error) {
		tt, err := registry.Arg[*Table](a, "test_table")
		if err != nil {
			return nil, err
		}
		f, err := tt.ToFrame()
		if err != nil {
			return nil, err
		}
		col, _ := f.Column("a")
		other, _ := f.Column("b")
		want, _ := df2.Column("b")
		if !want.Rename("b").Equal(a["test_column"].(*frame.Series)) {
			return nil, errors.New("test_column was not injected from test_table2.b")
		}
		return nil, tt.UpdateCol("a", addSeries(col, other))
	}, registry.Param{Name: "test_table"}, registry.WithExpr("test_column", "test_table2.b"))))

	_, err = e.Step("asdf")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	step, err := e.Step("test_model")
	require.NoError(t, err)
	used, err := step.TablesUsed()
	require.NoError(t, err)
	assert.Equal(t, []string{"test_table", "test_table2"}, used)

	_, err = step.Run()
	require.NoError(t, err)

	idx := frame.Strings("x", "y", "z")
	requireFrame(t, frame.MustFrame(idx,
		frame.MustSeries("a", idx, frame.Ints(5, 7, 9)),
		frame.MustSeries("b", idx, frame.Ints(4, 5, 6)),
	), toFrame(t, e, "test_table"))
	assert.Equal(t, []string{"test_model"}, e.ListSteps())
}

func TestCollectVariables(t *testing.T) {
	e := New()
	_, err := e.AddTable("df", df())
	require.NoError(t, err)
	require.NoError(t, e.AddInjectable("answer", 42))
	_, err = e.AddTableFunc("source table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }), Cache(cache.ScopeForever))
	require.NoError(t, err)

	_, err = e.Inject(registry.Params("asdf"), nil)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	_, err = e.Inject([]registry.Param{registry.WithExpr("df_a", "asdf.a")}, nil)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	args, err := e.Inject([]registry.Param{
		{Name: "df"},
		{Name: "answer"},
		registry.WithExpr("source_label", "source table"),
		registry.WithExpr("df_a", "df.a"),
		registry.WithValue("fallback", 7),
		registry.WithValue("answer2", 1),
	}, registry.Args{"answer2": 2})
	require.NoError(t, err)

	assert.IsType(t, &Table{}, args["df"])
	assert.Equal(t, 42, args["answer"])
	assert.Equal(t, "source table", args["source_label"].(*Table).Name())
	requireSeries(t, frame.Ints(1, 2, 3), args["df_a"].(*frame.Series))
	assert.Equal(t, 7, args["fallback"])
	assert.Equal(t, 2, args["answer2"])
}

func TestDefaultIgnoredWhenNameIsRegistered(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("rate", 0.1))
	require.NoError(t, e.AddInjectable("other", 0.9))

	args, err := e.Inject([]registry.Param{
		registry.WithExpr("rate", "other"),
		registry.WithValue("other", 5),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.1, args["rate"])
	assert.Equal(t, 0.9, args["other"])
}

func TestInjectables(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("answer", 42))
	require.NoError(t, e.AddInjectableFunc("func1", registry.NewFunc(func(a registry.Args) (any, error) {
		return a["answer"].(int) * 2, nil
	}, registry.Params("answer")...)))
	require.NoError(t, e.AddInjectableFunc("func2", registry.NewFunc(func(a registry.Args) (any, error) {
		return a["variable"].(int) / 2, nil
	}, registry.WithExpr("variable", "x")), NoAutocall()))
	require.NoError(t, e.AddInjectableFunc("func3", registry.NewFunc(func(a registry.Args) (any, error) {
		return a["func2"].(*Callable).Call(4)
	}, registry.Params("func2")...)))
	require.NoError(t, e.AddInjectableFunc("func4", registry.NewFunc(func(a registry.Args) (any, error) {
		return a["func"].(int) / 2, nil
	}, registry.WithExpr("func", "func1"))))

	resolve := func(name string) any {
		t.Helper()
		v, err := e.Resolve(name)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 42, resolve("answer"))
	assert.Equal(t, 84, resolve("func1"))
	f2, ok := resolve("func2").(*Callable)
	require.True(t, ok)
	v, err := f2.Call(4)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, resolve("func3"))
	assert.Equal(t, 42, resolve("func4"))

	_, err = f2.Call()
	assert.ErrorIs(t, err, errdefs.ErrNotFound, "x is neither passed nor registered")
	_, err = f2.Call(1, 2)
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	_, err = e.Resolve("asdf")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.Equal(t, []string{"answer", "func1", "func2", "func3", "func4"}, e.ListInjectables())
}

func TestInjectablesCache(t *testing.T) {
	e := New()
	x := 2
	fn := registry.NewFunc(func(registry.Args) (any, error) { return x * x, nil })
	require.NoError(t, e.AddInjectableFunc("inj", fn, Cache(cache.ScopeForever)))
	inj, err := e.Injectable("inj")
	require.NoError(t, err)
	value := func() any {
		t.Helper()
		v, err := inj.Value()
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, 4, value())
	x = 3
	assert.Equal(t, 4, value())
	inj.ClearCached()
	assert.Equal(t, 9, value())
	x = 4
	assert.Equal(t, 9, value())
	e.ClearCache()
	assert.Equal(t, 16, value())
	x = 5
	assert.Equal(t, 16, value())
	require.NoError(t, e.AddInjectableFunc("inj", fn, Cache(cache.ScopeForever)))
	assert.Equal(t, 25, value())

	e.DisableCache()
	x = 6
	assert.Equal(t, 36, value())
	e.EnableCache()
	x = 7
	assert.Equal(t, 36, value(), "the value computed while disabled is served")
}

func TestMemoizedInjectable(t *testing.T) {
	e := New()
	outside := "x"
	require.NoError(t, e.AddInjectableFunc("x", registry.NewFunc(func(a registry.Args) (any, error) {
		return outside + a["s"].(string), nil
	}, registry.Params("s")...), Memoize(cache.ScopeForever)))

	getx := func() *Callable {
		t.Helper()
		v, err := e.Resolve("x")
		require.NoError(t, err)
		return v.(*Callable)
	}
	call := func(arg string) any {
		t.Helper()
		v, err := getx().Call(arg)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "xy", call("y"))
	outside = "z"
	assert.Equal(t, "xy", call("y"))
	assert.Equal(t, "zw", call("w"), "a new argument is a new entry")
	getx().ClearCached()
	assert.Equal(t, "zy", call("y"))

	e.DisableCache()
	outside = "a"
	assert.Equal(t, "ay", call("y"))
	e.EnableCache()
	outside = "b"
	assert.Equal(t, "ay", call("y"))
}

func TestMemoizedInjectable_KeysByValue(t *testing.T) {
	// --- Arrange ---
	e := New()
	calls := 0
	require.NoError(t, e.AddInjectableFunc("total", registry.NewFunc(func(a registry.Args) (any, error) {
		calls++
		return a["s"], nil
	}, registry.Params("s")...), Memoize(cache.ScopeForever)))
	v, err := e.Resolve("total")
	require.NoError(t, err)
	total := v.(*Callable)
	idx := frame.Strings("x", "y")

	// --- Act ---
	_, err = total.Call(frame.MustSeries("s", idx, frame.Ints(1, 2)))
	require.NoError(t, err)
	_, err = total.Call(frame.MustSeries("s", idx, frame.Ints(1, 2)))
	require.NoError(t, err)
	_, err = total.Call(frame.MustSeries("s", idx, frame.Ints(1, 3)))
	require.NoError(t, err)
	_, err = total.Call(int64(4))
	require.NoError(t, err)
	_, err = total.Call(4)
	require.NoError(t, err)
	_, errUnkeyed := total.Call(map[string]int{"a": 1})

	// --- Assert ---
	assert.Equal(t, 3, calls, "equal series and equal numbers share an entry")
	assert.Equal(t, 3, e.Cache().Len(cache.StoreMemo))
	for _, k := range e.Cache().Keys(cache.StoreMemo) {
		assert.NotContains(t, k, "0x")
	}
	assert.ErrorIs(t, errUnkeyed, errdefs.ErrValidation)
}

func TestClearCacheScopes(t *testing.T) {
	e := New()
	_, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }), Cache(cache.ScopeForever))
	require.NoError(t, err)
	_, err = e.AddColumnFunc("table", "z", registry.NewFunc(func(a registry.Args) (any, error) {
		s, _ := df().Column("a")
		return s, nil
	}, registry.Params("table")...), Cache(cache.ScopeIteration))
	require.NoError(t, err)
	require.NoError(t, e.AddInjectableFunc("x", registry.NewFunc(func(registry.Args) (any, error) { return "x", nil }), Cache(cache.ScopeStep)))
	require.NoError(t, e.AddInjectableFunc("y", registry.NewFunc(func(a registry.Args) (any, error) {
		return a["s"].(string) + "y", nil
	}, registry.Params("s")...), Memoize(cache.ScopeIteration)))

	_, err = e.Resolve("table.z")
	require.NoError(t, err)
	_, err = e.Resolve("x")
	require.NoError(t, err)
	y, err := e.Resolve("y")
	require.NoError(t, err)
	_, err = y.(*Callable).Call("x")
	require.NoError(t, err)

	c := e.Cache()
	assert.Equal(t, []string{"table"}, c.Keys(cache.StoreTable))
	assert.Equal(t, []string{cache.ColumnKey("table", "z")}, c.Keys(cache.StoreColumn))
	assert.Equal(t, []string{"x"}, c.Keys(cache.StoreInjectable))
	assert.Equal(t, 1, c.Len(cache.StoreMemo))

	e.ClearScope(cache.ScopeStep)
	assert.Equal(t, []string{"table"}, c.Keys(cache.StoreTable))
	assert.Equal(t, []string{cache.ColumnKey("table", "z")}, c.Keys(cache.StoreColumn))
	assert.Empty(t, c.Keys(cache.StoreInjectable))
	assert.Equal(t, 1, c.Len(cache.StoreMemo))

	e.ClearScope(cache.ScopeIteration)
	assert.Equal(t, []string{"table"}, c.Keys(cache.StoreTable))
	assert.Empty(t, c.Keys(cache.StoreColumn))
	assert.Equal(t, 0, c.Len(cache.StoreMemo))

	e.ClearScope(cache.ScopeForever)
	assert.Empty(t, c.Keys(cache.StoreTable))
}

func TestWithInjectables(t *testing.T) {
	e := New()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, e.AddInjectable(n, n))
	}

	require.NoError(t, e.WithInjectables(nil, func() error {
		assert.Equal(t, []string{"a", "b", "c"}, e.ListInjectables())
		return nil
	}))

	boom := errors.New("boom")
	err := e.WithInjectables(map[string]any{"c": "d", "x": "x"}, func() error {
		assert.ElementsMatch(t, []string{"a", "b", "c", "x"}, e.ListInjectables())
		v, err := e.Resolve("c")
		require.NoError(t, err)
		assert.Equal(t, "d", v)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"a", "b", "c"}, e.ListInjectables())
	v, err := e.Resolve("c")
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestEvalVariable(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 3))
	v, err := e.EvalVariable("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	require.NoError(t, e.AddInjectableFunc("func", registry.NewFunc(func(a registry.Args) (any, error) {
		return strings.Repeat("xyz", a["x"].(int)), nil
	}, registry.Params("x")...)))
	v, err = e.EvalVariable("func", nil)
	require.NoError(t, err)
	assert.Equal(t, "xyzxyzxyz", v)
	v, err = e.EvalVariable("func", map[string]any{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, "xyzxyz", v)
	v, err = e.EvalVariable("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, v, "overrides are temporary")

	_, err = e.AddTableFunc("table", registry.NewFunc(func(a registry.Args) (any, error) {
		return scale(df(), float64(a["x"].(int))), nil
	}, registry.Params("x")...))
	require.NoError(t, err)
	v, err = e.EvalVariable("table.a", nil)
	require.NoError(t, err)
	requireSeries(t, frame.Floats(3, 6, 9), v.(*frame.Series))

	_, err = e.EvalVariable("nope", nil)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.ErrorContains(t, err, `failed to evaluate "nope"`)
}

func TestEvalStep(t *testing.T) {
	e := New()
	require.NoError(t, e.AddInjectable("x", 3))
	require.NoError(t, e.AddStep("model", registry.NewFunc(func(a registry.Args) (any, error) {
		return scale(df(), float64(a["x"].(int))), nil
	}, registry.Params("x")...)))

	v, err := e.EvalStep("model", nil)
	require.NoError(t, err)
	requireFrame(t, scale(df(), 3), v.(*frame.Frame))
	v, err = e.EvalStep("model", map[string]any{"x": 5})
	require.NoError(t, err)
	requireFrame(t, scale(df(), 5), v.(*frame.Frame))
}

func TestAlwaysTableHandle(t *testing.T) {
	e := New()
	_, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) {
		return scale(df(), 0.5), nil
	}))
	require.NoError(t, err)
	_, err = e.AddTableFunc("table2", registry.NewFunc(func(a registry.Args) (any, error) {
		tb, err := registry.Arg[*Table](a, "table")
		if err != nil {
			return nil, err
		}
		f, err := tb.ToFrame()
		if err != nil {
			return nil, err
		}
		return scale(f, 0.5), nil
	}, registry.Params("table")...))
	require.NoError(t, err)

	v, err := e.EvalVariable("table2", nil)
	require.NoError(t, err)
	tb, ok := v.(*Table)
	require.True(t, ok)
	f, err := tb.ToFrame()
	require.NoError(t, err)
	requireFrame(t, scale(df(), 0.25), f)
}

func TestCyclicDependency(t *testing.T) {
	e := New(WithMaxDepth(16))
	require.NoError(t, e.AddInjectableFunc("a", registry.NewFunc(func(a registry.Args) (any, error) { return a["b"], nil }, registry.Params("b")...)))
	require.NoError(t, e.AddInjectableFunc("b", registry.NewFunc(func(a registry.Args) (any, error) { return a["a"], nil }, registry.Params("a")...)))

	_, err := e.Resolve("a")
	assert.ErrorIs(t, err, errdefs.ErrStructural)
	assert.Equal(t, 0, e.depth)
}

func TestFunctionErrorsPropagate(t *testing.T) {
	e := New()
	boom := errors.New("boom")
	_, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return nil, boom }), Cache(cache.ScopeForever))
	require.NoError(t, err)
	_, err = e.AddTableFunc("wrong", registry.NewFunc(func(registry.Args) (any, error) { return 1, nil }))
	require.NoError(t, err)

	_, err = e.Resolve("table.a")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.Cache().Len(cache.StoreTable))

	_, err = e.Resolve("wrong.a")
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestRemoveAndClear(t *testing.T) {
	e := New()
	_, err := e.AddTableFunc("table", registry.NewFunc(func(registry.Args) (any, error) { return df(), nil }), Cache(cache.ScopeForever))
	require.NoError(t, err)
	_, err = e.Resolve("table.a")
	require.NoError(t, err)
	assert.True(t, e.IsTable("table"))

	require.NoError(t, e.Remove(registry.KindTable, "table"))
	assert.False(t, e.IsTable("table"))
	assert.Equal(t, 0, e.Cache().Len(cache.StoreTable))
	assert.ErrorIs(t, e.Remove(registry.KindTable, "table"), errdefs.ErrNotFound)

	require.NoError(t, e.AddInjectable("x", 1))
	e.Clear()
	assert.False(t, e.IsInjectable("x"))
	assert.Empty(t, e.ListTables())
}

func TestRemoveTable_DropsColumnsAndBroadcasts(t *testing.T) {
	// --- Arrange ---
	e := New()
	_, err := e.AddTable("households", frame.MustFrame(frame.Strings("h1", "h2"),
		frame.MustSeries("building_id", frame.Strings("h1", "h2"), frame.Strings("b1", "b1"))))
	require.NoError(t, err)
	_, err = e.AddTable("buildings", frame.MustFrame(frame.Strings("b1"),
		frame.MustSeries("rent", frame.Strings("b1"), frame.Ints(5))))
	require.NoError(t, err)
	_, err = e.AddColumnFunc("households", "rent_share", registry.NewFunc(func(registry.Args) (any, error) {
		return frame.MustSeries("rent_share", frame.Strings("h1", "h2"), frame.Ints(1, 1)), nil
	}), Cache(cache.ScopeForever))
	require.NoError(t, err)
	require.NoError(t, e.Broadcast(broadcast.Broadcast{Cast: "buildings", Onto: "households", CastIndex: true, OntoOn: "building_id"}))
	_, err = e.Resolve("households.rent_share")
	require.NoError(t, err)
	require.Equal(t, 1, e.Cache().Len(cache.StoreColumn))

	// --- Act ---
	err = e.Remove(registry.KindTable, "households")

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, e.ListColumns())
	assert.Empty(t, e.ListBroadcasts())
	assert.Equal(t, 0, e.Cache().Len(cache.StoreColumn))

	_, err = e.AddTable("households", frame.MustFrame(frame.Strings("h1"),
		frame.MustSeries("building_id", frame.Strings("h1"), frame.Strings("b1"))))
	require.NoError(t, err)
	_, err = e.MergeTables("households", []string{"households", "buildings"}, nil)
	assert.ErrorIs(t, err, errdefs.ErrStructural, "the old broadcast does not come back with the name")
}

func TestRemoveBroadcast(t *testing.T) {
	e := New()
	require.NoError(t, e.Broadcast(broadcast.Broadcast{Cast: "a", Onto: "b", CastIndex: true, OntoOn: "a_id"}))
	require.NoError(t, e.Broadcast(broadcast.Broadcast{Cast: "c", Onto: "b", CastIndex: true, OntoOn: "c_id"}))

	require.NoError(t, e.RemoveBroadcast("a", "b"))

	assert.Equal(t, []broadcast.Broadcast{{Cast: "c", Onto: "b", CastIndex: true, OntoOn: "c_id"}}, e.ListBroadcasts())
	assert.ErrorIs(t, e.RemoveBroadcast("a", "b"), errdefs.ErrNotFound)
}
