package core

import (
	"bytes"
	"strconv"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jb-kensho/graphql-compiler/core/internal/psql"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
)

// graphCompiler holds the immutable compilation state shared by all calls:
// the resolved schema, the backend compiler, the result cache and the
// in-flight dedup group. It is safe for concurrent use.
type graphCompiler struct {
	conf     *Config
	schema   *sdata.DBSchema
	compiler *psql.Compiler
	cache    Cache
	group    singleflight.Group
}

func newGraphCompiler(conf *Config, schema *Schema) (gc *graphCompiler, err error) {
	if conf == nil {
		conf = &Config{}
	}
	if err = conf.Validate(); err != nil {
		return
	}
	if schema == nil {
		return nil, errNoSchema
	}

	db, err := schema.dbSchema()
	if err != nil {
		return
	}
	co, err := psql.NewCompiler(db, psql.Config{
		Vars:                conf.Vars,
		DBType:              conf.DBType,
		DBVersion:           conf.DBVersion,
		RecursionCombinator: conf.RecursionCombinator,
	})
	if err != nil {
		return
	}

	gc = &graphCompiler{conf: conf, schema: db, compiler: co}
	if !conf.DisableCache {
		if err = gc.initCache(); err != nil {
			return nil, err
		}
	}
	return gc, nil
}

// compile returns the cached result when the same tree was compiled before,
// and collapses concurrent compilations of the same tree into one.
func (gc *graphCompiler) compile(q *Query) (*Result, error) {
	key, err := hashstructure.Hash(q, hashstructure.FormatV2, nil)
	if err != nil {
		return gc.compileQuery(q)
	}

	if gc.cache.cache != nil {
		if res, ok := gc.cache.Get(key); ok {
			return res, nil
		}
	}

	v, err, _ := gc.group.Do(strconv.FormatUint(key, 10), func() (interface{}, error) {
		res, err := gc.compileQuery(q)
		if err != nil {
			return nil, err
		}
		if gc.cache.cache != nil {
			gc.cache.Set(key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (gc *graphCompiler) compileQuery(q *Query) (*Result, error) {
	qc, err := q.toQCode()
	if err != nil {
		return nil, err
	}
	if err := qc.Validate(); err != nil {
		return nil, err
	}

	var w bytes.Buffer
	md, err := gc.compiler.Compile(&w, qc)
	if err != nil {
		return nil, err
	}

	res := &Result{SQL: w.String()}
	for _, c := range md.Columns() {
		res.Columns = append(res.Columns, ResultColumn{Name: c.Name, Type: c.Type})
	}
	for _, p := range md.Params() {
		res.Params = append(res.Params, Param{Name: p.Name, Type: p.Type, List: p.IsList})
	}
	return res, nil
}
