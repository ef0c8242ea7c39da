// Package batcher coalesces JSON-RPC calls into batched round trips.
//
// Every call enqueued while a debounce window is open joins the same batch.
// When the window closes the batch is detached from the scheduler and posted
// upstream as one JSON array; responses are routed back to their callers by
// id, so the order of the response array does not matter.
//
// Example configuration:
//
//	{
//	  "rpcUrl": "https://forno.celo.org",
//	  "batchWait": 50
//	}
package batcher
