// Package tracking runs the perception loop: a dedicated goroutine that
// grabs frames, matches every registered template against them, and
// publishes the results into the shared observation store at a fixed
// frame rate.
//
// Architecture:
//
//	          Start(ctx)
//	              │
//	              ▼
//	   ┌────────────────────┐   factory()    ┌──────────────────────┐
//	   │  tracking goroutine│───────────────▶│ vision coordinator   │
//	   │                    │                │ (capture + matching) │
//	   │  pace → cycle →    │◀───────────────│                      │
//	   │  publish → repeat  │  observations  └──────────────────────┘
//	   └─────────┬──────────┘
//	             │ Update()
//	             ▼
//	   ┌────────────────────┐
//	   │  perception.Store  │◀── policies read here
//	   └────────────────────┘
//
// Thread affinity: screen capture handles on several platforms are bound
// to the OS thread that created them. The service therefore takes a
// coordinator factory rather than a coordinator, and invokes it inside
// the tracking goroutine so capture construction and every subsequent
// grab happen on the same goroutine.
package tracking
