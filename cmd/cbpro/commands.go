package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/cbpro-client/pkg/cbpro"
	"github.com/Sternrassler/cbpro-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// oneShot builds a command printing the document returned by call.
func oneShot(a *app, use, short string, args cobra.PositionalArgs, call func(ctx context.Context, args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := call(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.printJSON(v)
		},
	}
}

func newProductsCommand(a *app) *cobra.Command {
	return oneShot(a, "products", "List available currency pairs", cobra.NoArgs,
		func(ctx context.Context, _ []string) (any, error) {
			return a.public.Products(ctx)
		})
}

func newBookCommand(a *app) *cobra.Command {
	var level int

	cmd := oneShot(a, "book <product-id>", "Show the order book of a product", cobra.ExactArgs(1),
		func(ctx context.Context, args []string) (any, error) {
			return a.public.ProductOrderBook(ctx, args[0], level)
		})
	cmd.Flags().IntVar(&level, "level", 1, "order book level (1, 2 or 3)")

	return cmd
}

func newTickerCommand(a *app) *cobra.Command {
	return oneShot(a, "ticker <product-id>", "Show the ticker of a product", cobra.ExactArgs(1),
		func(ctx context.Context, args []string) (any, error) {
			return a.public.ProductTicker(ctx, args[0])
		})
}

func newStatsCommand(a *app) *cobra.Command {
	return oneShot(a, "stats <product-id>", "Show 24 hour statistics of a product", cobra.ExactArgs(1),
		func(ctx context.Context, args []string) (any, error) {
			return a.public.Stats24h(ctx, args[0])
		})
}

func newCurrenciesCommand(a *app) *cobra.Command {
	return oneShot(a, "currencies", "List known currencies", cobra.NoArgs,
		func(ctx context.Context, _ []string) (any, error) {
			return a.public.Currencies(ctx)
		})
}

func newTimeCommand(a *app) *cobra.Command {
	return oneShot(a, "time", "Show the exchange server time", cobra.NoArgs,
		func(ctx context.Context, _ []string) (any, error) {
			return a.public.Time(ctx)
		})
}

func newCandlesCommand(a *app) *cobra.Command {
	var (
		start, end  string
		since       time.Duration
		granularity int
	)

	cmd := oneShot(a, "candles <product-id>", "Show historic rates of a product", cobra.ExactArgs(1),
		func(ctx context.Context, args []string) (any, error) {
			params := cbpro.CandleParams{Granularity: granularity}

			switch {
			case start != "" || end != "":
				var err error
				if params.Start, err = time.Parse(time.RFC3339, start); err != nil {
					return nil, fmt.Errorf("--start: %w", err)
				}
				if params.End, err = time.Parse(time.RFC3339, end); err != nil {
					return nil, fmt.Errorf("--end: %w", err)
				}
			case since > 0:
				params.End = time.Now().UTC().Truncate(time.Second)
				params.Start = params.End.Add(-since)
			}

			return a.public.HistoricRates(ctx, args[0], params)
		})

	flags := cmd.Flags()
	flags.StringVar(&start, "start", "", "range start (RFC 3339)")
	flags.StringVar(&end, "end", "", "range end (RFC 3339)")
	flags.DurationVar(&since, "since", 0, "range ending now, e.g. 5h")
	flags.IntVar(&granularity, "granularity", 3600, "candle width in seconds")

	return cmd
}

func newTradesCommand(a *app) *cobra.Command {
	var (
		limit   int
		pages   int
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "trades <product-id>",
		Short: "Page through the trade history of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.PageLimit
			}
			if summary {
				return a.summarizeTrades(cmd.Context(), args[0], limit, pages)
			}
			return a.printTrades(cmd.Context(), args[0], limit, pages)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&limit, "limit", 0, "trades per page (default from config)")
	flags.IntVar(&pages, "pages", 1, "pages to fetch (0 for all)")
	flags.BoolVar(&summary, "summary", false, "print a summary instead of the trades")

	return cmd
}

// printTrades writes one trade per line.
func (a *app) printTrades(ctx context.Context, productID string, limit, pages int) error {
	trades, err := a.public.Trades(ctx, productID, limit)
	if err != nil {
		return err
	}
	defer trades.Close()

	enc := json.NewEncoder(a.out)
	n := 0
	for page, err := range trades.All(ctx) {
		n++
		if err != nil {
			if !a.skipDecodeError(err) {
				return err
			}
			if pages > 0 && n >= pages {
				break
			}
			continue
		}

		items, ok := page.([]any)
		if !ok {
			return fmt.Errorf("unexpected page: %v", page)
		}
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}

		if pages > 0 && n >= pages {
			break
		}
	}

	return nil
}

// skipDecodeError logs err and reports true when it only affects one page.
func (a *app) skipDecodeError(err error) bool {
	var decodeErr *pagination.DecodeError
	if !errors.As(err, &decodeErr) {
		return false
	}
	a.logger.Warn().Err(err).Int("page", decodeErr.Page).Msg("Skipping undecodable trade page")
	return true
}

func (a *app) summarizeTrades(ctx context.Context, productID string, limit, pages int) error {
	trades, err := a.public.TypedTrades(ctx, productID, limit)
	if err != nil {
		return err
	}
	defer trades.Close()

	var s cbpro.TradeSummary
	n := 0
	for page, err := range trades.All(ctx) {
		n++
		if err != nil {
			if !a.skipDecodeError(err) {
				return err
			}
		} else {
			s.Add(page)
		}

		if pages > 0 && n >= pages {
			break
		}
	}

	return a.printJSON(map[string]any{
		"product_id":     productID,
		"pages":          n,
		"trades":         s.Count,
		"buys":           s.Buys,
		"sells":          s.Sells,
		"volume":         s.Volume,
		"vwap":           s.VWAP(),
		"high":           s.High,
		"low":            s.Low,
		"first_trade_id": s.FirstTradeID,
		"last_trade_id":  s.LastTradeID,
	})
}

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete all cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := a.transport.GetCache()
			if manager == nil {
				return fmt.Errorf("no redis_addr configured")
			}

			n, err := manager.Purge(cmd.Context())
			if err != nil {
				return err
			}

			a.logger.Info().Int("keys", n).Msg("Cache purged")
			fmt.Fprintf(a.out, "purged %d cached responses\n", n)
			return nil
		},
	})

	return cmd
}
