package remediate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// build makes a table from literal rows: nil is null, strings stay strings,
// ints and floats become numbers.
func build(cols []string, rows ...[]any) *table.Table {
	t := table.New("test", cols)
	for _, row := range rows {
		r := table.Record{}
		for i, c := range cols {
			var v any
			if i < len(row) {
				v = row[i]
			}
			switch x := v.(type) {
			case nil:
				r[c] = table.Null()
			case string:
				r[c] = table.Str(x)
			case int:
				r[c] = table.Num(float64(x))
			case float64:
				r[c] = table.Num(x)
			case bool:
				r[c] = table.Bool(x)
			default:
				panic(fmt.Sprintf("unsupported literal %T", v))
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func testEnv(dt DatasetType, resolver geocode.Resolver) *env {
	opt := DefaultOptions()
	opt.Now = func() time.Time { return fixedNow }
	if resolver == nil {
		resolver = geocode.Unavailable
	}
	return &env{ctx: context.Background(), dataset: dt, opt: opt, resolver: resolver, logger: zap.NewNop()}
}

func testPipeline(resolver geocode.Resolver) *Pipeline {
	opt := DefaultOptions()
	opt.Now = func() time.Time { return fixedNow }
	return New(resolver, zap.NewNop(), opt)
}

func texts(t *table.Table, col string) []string {
	out := make([]string, t.Len())
	for i, r := range t.Rows {
		out[i] = r[col].String()
	}
	return out
}
