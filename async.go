package assetvfs

import (
	"context"

	"github.com/meridian-engine/assetvfs/job"
)

// RequestAsync resolves an asset on the scheduler's worker pool. The
// request's callback fires exactly once with the outcome, failures
// included, on the goroutine that calls the scheduler's Dispatch.
//
// The returned error covers submission only: a VFS without a scheduler,
// a closed scheduler, or a full queue. Once submission succeeds, all
// outcomes flow through the callback.
func (v *VFS) RequestAsync(req Request) error {
	if v.scheduler == nil {
		return ErrNoScheduler
	}

	name := req.Name
	if req.Package != "" {
		name = req.Package + ":" + req.Name
	}

	var result Data
	return v.scheduler.Submit(job.Job{
		Name: name,
		Run: func(context.Context) error {
			result = v.Request(req)
			return result.Err()
		},
		OnDone: func(err error) {
			if err != nil {
				if result.OK() {
					// A panicking request never produced a result.
					result = Data{Name: req.Name, Tag: req.Tag, Status: StatusInternal}
					if req.Binary {
						result.Flags |= FlagBinary
					}
				}
				v.log().Warn("async request failed", "asset", req.Name, "package", req.Package, "status", result.Status)
			}
			if req.Callback != nil {
				req.Callback(result)
			}
		},
	})
}
