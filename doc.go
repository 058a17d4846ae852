// Package procfixture provides the targets a process monitor such as
// ProcDump is tested against: an HTTP service whose routes raise errors,
// churn the heap, fan out threads or exit the process, plus long-running
// workload and signal-catching modes for a standalone test application.
//
// The fault service is built from a Config and a logger:
//
//	cfg := procfixture.DefaultConfig()
//	srv := procfixture.NewServer(cfg, procfixture.Logger())
//	err := srv.Run(ctx)
//
// Each fault has a fixed GET route:
//
//	/throwinvalidoperation          500, InvalidOperationError escapes
//	/fullgc                         200, blocking full collection
//	/memincrease                    200, small, large and pinned buffers
//	/throwandcatchinvalidoperation  500, after a recovered first error
//	/throwargumentexception         500, ArgumentError escapes
//	/terminate                      process exits, no response
//	/stress                         200, worker threads keep running
//
// # Driving a Test Run
//
// The Harness triggers faults on a running service and WaitForDump blocks
// until the monitor writes a matching dump file:
//
//	h, _ := procfixture.NewHarness("http://localhost:5032")
//	if _, err := h.Trigger(ctx, procfixture.FaultThrowInvalidOperation); err != nil {
//	    return err
//	}
//	dump, err := procfixture.WaitForDump(ctx, "/tmp/dumps", "testwebapi_*")
//
// The fixtures have no recovery logic of their own. An error that escapes a
// route is answered with a 500 and counted, and the process keeps serving.
package procfixture
