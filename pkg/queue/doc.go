// Package queue provides a durable, retryable job queue decoupled from
// the request and webhook paths.
//
// Enqueue stores a job and returns immediately; long-running Workers
// claim jobs with bounded concurrency, execute them under a per-job
// timeout, and retry failures with exponential backoff until the
// attempt budget runs out, at which point the job is parked in a
// dead-letter queue for inspection. An idempotency key makes repeat
// enqueues of the same logical work a no-op.
//
// No ordering is guaranteed between distinct jobs. Within one job,
// attempt N+1 never starts before attempt N's failure is recorded.
//
// Example:
//
//	storage := queue.NewMemoryStorage()
//	defer storage.Close()
//
//	enq, _ := queue.NewEnqueuer(storage)
//	_ = enq.Enqueue(ctx, SendReceipt{PaymentID: id},
//		queue.WithQueue("emails"),
//		queue.WithIdempotencyKey(id.String()))
//
//	w, _ := queue.NewWorker(storage, queue.WithQueues("emails"))
//	_ = w.RegisterHandler(queue.NewJobHandler(handleSendReceipt))
//	_ = w.Start(ctx)
package queue
