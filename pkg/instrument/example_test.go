package instrument_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/instrument"
	"github.com/calltrack/calltrack/pkg/stores"
	"github.com/calltrack/calltrack/pkg/sysinfo"
)

func Example() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "calltrack")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	// The canned collector keeps the example deterministic.
	rec, err := instrument.New(ctx, instrument.Options{
		Store:     &stores.Config{Dir: dir, BaseName: "log", MaxBytes: 10 * 1024 * 1024},
		Collector: &sysinfo.Static{},
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	division := rec.Register("division", "Divides a by b #level:WARN")
	divide := instrument.Wrap2(division, instrument.Value(math.NaN()),
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		})

	fmt.Println(divide(1, 2))
	fmt.Println(divide(1, 0))

	if err := rec.Close(); err != nil {
		fmt.Println("error:", err)
		return
	}

	reader, err := stores.OpenReader(ctx, dir, "log", 1)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer reader.Close()

	res, err := reader.Get(ctx, []fields.Name{fields.Level, fields.FunctionReturn}, nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, row := range res.Rows {
		fmt.Println(row[1], row[2])
	}

	// Output:
	// 0.5
	// NaN
	// WARN 0.5
	// ERROR NaN
}
