package psql

import (
	"strings"
	"testing"

	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
)

func TestCompileRecursion(t *testing.T) {
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 3)
	tq.output(rec, "descendant_name", "name", "text")

	sql, md := compileTest(t, tq, Config{DBType: "postgres"})

	for _, part := range []string{
		// the root materializes first and carries the link column
		`WITH RECURSIVE "__cte_1" AS (SELECT "animals_1"."name" AS "animal_name", "animals_1"."animal_id" FROM "public"."animals" AS "animals_1")`,
		// closure anchor: seed rows linked from the outer cte, depth 0, path started
		`"__rcte_1" AS (SELECT DISTINCT "animals_2"."animal_id" AS "animal_id", "animals_2"."animal_id" AS "parentof_id", 0 AS "__depth", CAST("animals_2"."animal_id" AS TEXT) || ',' AS "__path" FROM "public"."animals" AS "animals_2" INNER JOIN "__cte_1" ON ("animals_2"."animal_id" = "__cte_1"."animal_id")`,
		// closure step: bounded depth and the cycle guard on the path string
		` UNION ALL SELECT "animals_3"."animal_id", "__rcte_1"."parentof_id", ("__rcte_1"."__depth" + 1) AS "__depth", "__rcte_1"."__path" || CAST("animals_3"."animal_id" AS TEXT) || ',' AS "__path" FROM "public"."animals" AS "animals_3" INNER JOIN "__rcte_1" ON ("animals_3"."parentof_id" = "__rcte_1"."animal_id") WHERE (("__rcte_1"."__depth" < 3) AND NOT (("__rcte_1"."__path" LIKE '%' || CAST("animals_3"."animal_id" AS TEXT) || '%')))`,
		// the recursive scope joins the closure and the outer cte
		`"__cte_2" AS (SELECT "animals_2"."name" AS "descendant_name", "__rcte_1"."parentof_id" AS "__link_1" FROM "public"."animals" AS "animals_2" INNER JOIN "__rcte_1" ON ("animals_2"."animal_id" = "__rcte_1"."animal_id") INNER JOIN "__cte_1" ON ("__rcte_1"."parentof_id" = "__cte_1"."animal_id"))`,
		// final query stitches the two materializations
		`SELECT "__cte_1"."animal_name", "__cte_2"."descendant_name" FROM "__cte_1" INNER JOIN "__cte_2" ON ("__cte_1"."animal_id" = "__cte_2"."__link_1")`,
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in:\n%s", part, sql)
		}
	}

	cols := md.Columns()
	if len(cols) != 2 || cols[0].Name != "animal_name" || cols[1].Name != "descendant_name" {
		t.Fatalf("unexpected result columns: %+v", cols)
	}
}

func TestCompileRecursionInbound(t *testing.T) {
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirIn, "Animal_ParentOf", "Animal", 2)
	tq.output(rec, "ancestor_name", "name", "text")

	sql, _ := compileTest(t, tq, Config{DBType: "postgres"})
	// the closure walks the fk backwards: step consumes animal_id,
	// produces parentof_id
	for _, part := range []string{
		`"animals_2"."animal_id" AS "parentof_id", "animals_2"."animal_id" AS "animal_id"`,
		`ON ("animals_3"."animal_id" = "__rcte_1"."parentof_id")`,
		`"__rcte_1"."animal_id" AS "__link_1"`,
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in:\n%s", part, sql)
		}
	}
}

func TestCompileRecursionOverJunction(t *testing.T) {
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_FriendsWith", "Animal", 5)
	tq.output(rec, "friend_name", "name", "text")

	sql, _ := compileTest(t, tq, Config{DBType: "postgres"})
	// the closure runs over the junction table itself
	for _, part := range []string{
		`FROM "public"."animal_friendswith" AS "animal_friendswith_3" INNER JOIN "__rcte_1" ON ("animal_friendswith_3"."animal_id" = "__rcte_1"."friendswith_id")`,
		`"__rcte_1"."__depth" < 5`,
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in:\n%s", part, sql)
		}
	}
}

func TestCompileRecursionLargeDepthCycleGuard(t *testing.T) {
	// a friendship cycle in the data must terminate through the path
	// guard even with a very large bound
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_FriendsWith", "Animal", 150)
	tq.output(rec, "friend_name", "name", "text")

	sql, _ := compileTest(t, tq, Config{DBType: "postgres"})
	if !strings.Contains(sql, `"__rcte_1"."__depth" < 150`) {
		t.Fatalf("missing depth bound in:\n%s", sql)
	}
	if !strings.Contains(sql, `NOT (("__rcte_1"."__path" LIKE `) {
		t.Fatalf("missing cycle guard in:\n%s", sql)
	}
}

func TestCompileRecursionWithSubtree(t *testing.T) {
	// a traversal hanging off the recursive scope flattens into the
	// recursive scope's own materialization
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 3)
	tq.output(rec, "descendant_name", "name", "text")
	sp := tq.traverse(rec, "Animal_OfSpecies", "Species")
	tq.output(sp, "descendant_species", "name", "text")

	sql, md := compileTest(t, tq, Config{DBType: "postgres"})
	if !strings.Contains(sql, `"__cte_2"."descendant_species"`) {
		t.Fatalf("expected hoisted output from recursive subtree in:\n%s", sql)
	}
	if len(md.Columns()) != 3 {
		t.Fatalf("unexpected result columns: %+v", md.Columns())
	}
}

func TestCompileNestedRecursion(t *testing.T) {
	// a recursion under a recursion: the middle materialization carries
	// both its link back to the root cte and the link column the inner
	// closure anchors on
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 2)
	tq.output(rec, "descendant_name", "name", "text")
	fr := tq.recurse(rec, qcode.DirOut, "Animal_FriendsWith", "Animal", 2)
	tq.output(fr, "friend_name", "name", "text")

	sql, md := compileTest(t, tq, Config{DBType: "postgres"})

	for _, part := range []string{
		// middle cte: output, forward link for the inner closure, back link
		`"__cte_2" AS (SELECT "animals_2"."name" AS "descendant_name", "animals_2"."animal_id", "__rcte_1"."parentof_id" AS "__link_1" FROM "public"."animals" AS "animals_2" INNER JOIN "__rcte_1" ON ("animals_2"."animal_id" = "__rcte_1"."animal_id") INNER JOIN "__cte_1" ON ("__rcte_1"."parentof_id" = "__cte_1"."animal_id"))`,
		// inner closure anchors on the middle cte, not the root
		`"__rcte_2" AS (SELECT DISTINCT "animals_4"."animal_id" AS "friendswith_id", "animals_4"."animal_id" AS "animal_id", 0 AS "__depth", CAST("animals_4"."animal_id" AS TEXT) || ',' AS "__path" FROM "public"."animals" AS "animals_4" INNER JOIN "__cte_2" ON ("animals_4"."animal_id" = "__cte_2"."animal_id")`,
		// inner closure steps through the junction table
		`INNER JOIN "__rcte_2" ON ("animal_friendswith_5"."animal_id" = "__rcte_2"."friendswith_id")`,
		// inner recursive scope materializes with its own back link
		`"__cte_3" AS (SELECT "animals_4"."name" AS "friend_name", "__rcte_2"."animal_id" AS "__link_2" FROM "public"."animals" AS "animals_4" INNER JOIN "__rcte_2" ON ("animals_4"."animal_id" = "__rcte_2"."friendswith_id") INNER JOIN "__cte_2" ON ("__rcte_2"."animal_id" = "__cte_2"."animal_id"))`,
		// final query stitches all three materializations
		`SELECT "__cte_1"."animal_name", "__cte_2"."descendant_name", "__cte_3"."friend_name" FROM "__cte_1" INNER JOIN "__cte_2" INNER JOIN "__cte_3" ON ("__cte_2"."animal_id" = "__cte_3"."__link_2") ON ("__cte_1"."animal_id" = "__cte_2"."__link_1")`,
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("missing %q in:\n%s", part, sql)
		}
	}

	cols := md.Columns()
	if len(cols) != 3 || cols[2].Name != "friend_name" {
		t.Fatalf("unexpected result columns: %+v", cols)
	}
}

func TestCompileRecursionCombinatorUnion(t *testing.T) {
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_name", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 3)
	tq.output(rec, "descendant_name", "name", "text")

	sql, _ := compileTest(t, tq, Config{DBType: "postgres", RecursionCombinator: "union"})
	if !strings.Contains(sql, `) UNION SELECT `) {
		t.Fatalf("expected deduplicating union in:\n%s", sql)
	}
	if strings.Contains(sql, `UNION ALL`) {
		t.Fatalf("unexpected UNION ALL in:\n%s", sql)
	}
}

func TestCompileRecursionCombinatorUnsupported(t *testing.T) {
	schema, err := sdata.GetTestSchema()
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewCompiler(schema, Config{DBType: "mssql", RecursionCombinator: "union"})
	if err == nil {
		t.Fatal("expected capability error")
	}
	ce, ok := err.(*dialect.CapabilityError)
	if !ok {
		t.Fatalf("expected CapabilityError, got %T: %v", err, err)
	}
	if ce.Backend != "mssql" {
		t.Fatalf("got %v", err)
	}
}

func TestCompileRecursionLinkAliasCollision(t *testing.T) {
	// an output alias matching the link column name but backed by a
	// different column would leave two same-named columns in the cte
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_id", "name", "text")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 3)
	tq.output(rec, "descendant_name", "name", "text")

	err := compileTestErr(t, tq, Config{DBType: "postgres"})
	se, ok := err.(*sdata.SchemaError)
	if !ok {
		t.Fatalf("expected SchemaError, got %T: %v", err, err)
	}
	if se.Field != "animal_id" || !strings.Contains(err.Error(), "recursion link column") {
		t.Fatalf("got %v", err)
	}
}

func TestCompileRecursionLinkColumnOutput(t *testing.T) {
	// projecting the link column itself as an output shares one cte
	// column instead of duplicating it
	tq, root := newTestQuery("Animal")
	tq.output(root, "animal_id", "animal_id", "bigint")
	rec := tq.recurse(root, qcode.DirOut, "Animal_ParentOf", "Animal", 3)
	tq.output(rec, "descendant_name", "name", "text")

	sql, md := compileTest(t, tq, Config{DBType: "postgres"})
	if !strings.Contains(sql, `"__cte_1" AS (SELECT "animals_1"."animal_id" AS "animal_id" FROM "public"."animals" AS "animals_1")`) {
		t.Fatalf("got:\n%s", sql)
	}
	cols := md.Columns()
	if len(cols) != 2 || cols[0].Name != "animal_id" || cols[1].Name != "descendant_name" {
		t.Fatalf("unexpected result columns: %+v", cols)
	}
}

func TestCompileRecursionUnknownCombinator(t *testing.T) {
	schema, err := sdata.GetTestSchema()
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewCompiler(schema, Config{DBType: "postgres", RecursionCombinator: "intersect"})
	if err == nil || !strings.Contains(err.Error(), "unknown recursion combinator") {
		t.Fatalf("got %v", err)
	}
}
