// Command coupon-import loads promo codes from gzipped JSON-lines partner
// feeds into the coupons table. Feeds are noisy: a code is accepted only when
// at least two independent feeds agree on it. Feeds are far larger than
// memory, so agreement is established with per-feed bloom filters in two
// streaming passes.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/solmarket/cart-api/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 4
	maxCodeLen    = 24
)

// feedEntry is one line of a partner feed.
type feedEntry struct {
	code         string
	discountType string
	value        decimal.Decimal
	description  string
}

var defaultValue = decimal.NewFromInt(10)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	files := flag.Args()
	if len(files) < 2 {
		slog.Error("at least two feed files are required", slog.Int("got", len(files)))
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, files []string, databaseURL string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("feeds", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding codes confirmed by 2+ feeds")

	accepted, err := findAcceptedCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find accepted codes")
	}

	slog.Info("accepted codes found", slog.Int("count", len(accepted)))

	if len(accepted) == 0 {
		slog.Info("no codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeCoupons(ctx, repository.NewSeedRepository(pool), accepted); err != nil {
		return errors.Wrap(err, "write coupons to database")
	}

	return nil
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamFeed(ctx, path, func(e feedEntry) {
			filter.AddString(e.code)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress", slog.Int("feed", idx+1), slog.Uint64("codes", count))
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete", slog.Int("feed", idx+1), slog.Uint64("total_codes", count))

		filters[idx] = filter
		return nil
	}
}

// findAcceptedCodes re-streams each feed and tests codes against the OTHER
// feeds' filters. A code is accepted when the merged presence bitmask spans
// two or more feeds. The rule fields from the first feed that carried the
// code win.
func findAcceptedCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]feedEntry, error) {
	type feedResult struct {
		masks   map[string]uint
		entries map[string]feedEntry
	}
	results := make([]feedResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			masks := make(map[string]uint)
			entries := make(map[string]feedEntry)
			feedBit := uint(1) << uint(i)
			var count uint64

			if err := streamFeed(ctx, f, func(e feedEntry) {
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("feed", i+1), slog.Uint64("codes", count))
				}

				for j, filter := range filters {
					if j == i {
						continue
					}
					if filter.TestString(e.code) {
						masks[e.code] |= feedBit | (uint(1) << uint(j))
						if _, ok := entries[e.code]; !ok {
							entries[e.code] = e
						}
						break
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "scan feed %d for candidates", i+1)
			}

			slog.Info("pass 2 complete",
				slog.Int("feed", i+1),
				slog.Uint64("total_codes", count),
				slog.Int("candidates", len(masks)),
			)

			results[i] = feedResult{masks: masks, entries: entries}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r.masks {
			merged[code] |= mask
		}
	}

	accepted := make(map[string]feedEntry)
	for code, mask := range merged {
		if bits.OnesCount(mask) < 2 {
			continue
		}
		for _, r := range results {
			if e, ok := r.entries[code]; ok {
				accepted[code] = e
				break
			}
		}
	}

	return accepted, nil
}

// streamFeed decompresses a feed and calls fn for every well-formed line.
// Malformed lines and codes outside the length bounds are skipped.
func streamFeed(ctx context.Context, path string, fn func(e feedEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, ok := parseLine(scanner.Bytes())
		if !ok {
			continue
		}
		fn(e)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// parseLine decodes one JSON feed line, e.g.
//
//	{"code":"SAVE10","type":"percentage","value":"10","description":"10% off"}
//
// Only code is required; type defaults to percentage 10.
func parseLine(line []byte) (feedEntry, bool) {
	e := feedEntry{
		discountType: "percentage",
		value:        defaultValue,
	}

	d := jx.DecodeBytes(line)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.code = strings.ToUpper(strings.TrimSpace(s))
		case "type":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if s == "percentage" || s == "fixed" {
				e.discountType = s
			}
		case "value":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if v, err := decimal.NewFromString(s); err == nil && v.IsPositive() {
				e.value = v
			}
		case "description":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.description = s
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return feedEntry{}, false
	}

	if len(e.code) < minCodeLen || len(e.code) > maxCodeLen {
		return feedEntry{}, false
	}
	return e, true
}

func writeCoupons(ctx context.Context, seed *repository.SeedRepository, accepted map[string]feedEntry) error {
	slog.Info("writing coupons to database", slog.Int("count", len(accepted)))

	written := 0
	for code, e := range accepted {
		description := e.description
		if description == "" {
			description = "Partner promo code"
		}

		if err := seed.UpsertCoupon(ctx, repository.CouponParams{
			Code:         code,
			DiscountType: e.discountType,
			Value:        e.value,
			Scope:        "all_products",
			Description:  description,
			Active:       true,
		}); err != nil {
			return err
		}

		written++
		if written%100 == 0 || written == len(accepted) {
			slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(accepted)))
		}
	}

	return nil
}
