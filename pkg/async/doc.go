// Package async provides the completion primitives used by the two-party
// transport.
//
// A Future is a single-assignment result: it is completed exactly once by
// its Resolver and can be awaited by any number of goroutines. A Signal is a
// broadcast-once event whose Branch method hands out independent futures
// that all complete when the signal fires, including futures created after
// the signal has already fired.
//
//	f, r := async.New[int]()
//	go func() { r.Resolve(42) }()
//	v, err := f.Wait(ctx)
package async
