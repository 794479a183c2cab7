// Package pagination turns cursor-paginated exchange endpoints into lazy,
// pull-driven streams.
//
// The exchange returns the continuation cursor of a listing in the CB-AFTER
// response header. A Stream requests the first page as soon as it is
// created; every later page is requested with limit and after=<cursor>
// only once the previous page has been received. A response without the
// header is the last page. Requests are strictly sequential and a Stream
// owns at most one of them at any time.
//
// Example usage:
//
//	s, err := pagination.NewStream(ctx, http.DefaultClient,
//		"https://api.pro.coinbase.com/products/BTC-USD/trades", pagination.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	trades := pagination.NewJSONStream(s)
//	defer trades.Close()
//
//	for v, err := range trades.All(ctx) {
//		if err != nil {
//			// *DecodeError: this page only. *TransportError: last item.
//			continue
//		}
//		handle(v)
//	}
//
// Error handling:
//   - *TransportError is returned once and exhausts the stream
//   - *DecodeError affects a single page; pagination continues
//   - Done marks the end of the sequence
//
// Streams are not restartable. Create a new one to paginate from the start.
package pagination
