// Package twoparty implements a vat network with exactly two vats, a server
// and a client, joined by one duplex byte stream.
//
// A VatNetwork owns a single Connection. The RPC engine obtains it once,
// through Connect on the initiating side or Accept on the listening side,
// and then exchanges messages:
//
//	net := twoparty.NewVatNetwork(conn, conn, twoparty.Options{Side: wire.SideClient})
//	c := net.Connect(wire.SideServer)
//
//	out := c.NewOutgoingMessage(0)
//	body, _ := out.Body()
//	_ = body.Set(map[string]int{"x": 1})
//	sent := out.Send()
//
//	in, err := c.ReceiveIncomingMessage().Wait(ctx)
//
// # Ordering
//
// Sends are written to the stream in the order Send was called. Each write
// waits for the one before it, so a slow write delays later ones but never
// lets them overtake. If a write fails, every send queued behind it fails
// with the same error. Sends that already completed are unaffected.
//
// Only one receive may be outstanding per connection. A second concurrent
// receive fails with ErrReadInFlight and leaves the outstanding one alone.
//
// # Disconnection
//
// Close is the end of a connection's life. It fires the network's
// disconnect signal exactly once, and every future returned by OnDisconnect,
// before or after, resolves at that point.
package twoparty
