// Package cbpro is a client for the public market data endpoints of the
// Coinbase Pro REST API.
//
// One-shot endpoints return the decoded JSON document. Trade history is
// cursor-paginated and is exposed as a pagination stream that requests one
// page at a time:
//
//	pc, err := cbpro.NewPublicClient(cbpro.SandboxURL, httpClient)
//	if err != nil {
//		return err
//	}
//
//	trades, err := pc.TypedTrades(ctx, "BTC-USD", 100)
//	if err != nil {
//		return err
//	}
//	defer trades.Close()
//
//	for page, err := range trades.All(ctx) {
//		if err != nil {
//			return err
//		}
//		summary.Add(page)
//	}
//
// Any pagination.Doer can carry the requests. A *client.Client adds
// response caching and metrics.
package cbpro
